package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/Rrens/social-content-generator/internal/domain"
)

// ErrStopped is returned by Next after Stop or context cancellation
var ErrStopped = errors.New("watch stopped")

// SessionLister is the read side a NotifyWatcher re-queries on every signal
type SessionLister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.ChatSession, error)
}

// NotifyWatcher turns a Notifier plus a list query into a live session query for stores
// without native change streams.
type NotifyWatcher struct {
	sessions SessionLister
	notifier Notifier
}

// NewNotifyWatcher creates a watcher
func NewNotifyWatcher(sessions SessionLister, notifier Notifier) *NotifyWatcher {
	return &NotifyWatcher{sessions: sessions, notifier: notifier}
}

func (w *NotifyWatcher) WatchSessions(ctx context.Context, userID string, limit int) (domain.SessionIterator, error) {
	ctx, cancel := context.WithCancel(ctx)
	signals, unsubscribe := w.notifier.Subscribe(userID)

	return &notifyIterator{
		ctx:         ctx,
		cancel:      cancel,
		unsubscribe: unsubscribe,
		signals:     signals,
		sessions:    w.sessions,
		userID:      userID,
		limit:       limit,
	}, nil
}

type notifyIterator struct {
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	signals     <-chan struct{}

	sessions SessionLister
	userID   string
	limit    int

	started  bool
	stopOnce sync.Once
}

// Next returns the initial snapshot first, then one snapshot per change signal
func (it *notifyIterator) Next() ([]domain.ChatSession, error) {
	if it.started {
		select {
		case <-it.ctx.Done():
			return nil, ErrStopped
		case _, ok := <-it.signals:
			if !ok {
				return nil, ErrStopped
			}
		}
	}
	it.started = true

	if it.ctx.Err() != nil {
		return nil, ErrStopped
	}
	return it.sessions.ListByUser(it.ctx, it.userID, it.limit)
}

func (it *notifyIterator) Stop() {
	it.stopOnce.Do(func() {
		it.cancel()
		it.unsubscribe()
	})
}
