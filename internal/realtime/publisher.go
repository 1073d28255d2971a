package realtime

import (
	"context"
	"time"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/rs/zerolog/log"
)

// PublishingSessions decorates a SessionRepository so every successful write signals the
// owning user's subscribers.
type PublishingSessions struct {
	domain.SessionRepository
	notifier Notifier
}

// NewPublishingSessions wraps repo
func NewPublishingSessions(repo domain.SessionRepository, notifier Notifier) *PublishingSessions {
	return &PublishingSessions{SessionRepository: repo, notifier: notifier}
}

func (p *PublishingSessions) Create(ctx context.Context, session *domain.ChatSession) error {
	if err := p.SessionRepository.Create(ctx, session); err != nil {
		return err
	}
	p.publish(ctx, session.UserID)
	return nil
}

func (p *PublishingSessions) UpdateStats(ctx context.Context, id string, stats domain.SessionStats) error {
	if err := p.SessionRepository.UpdateStats(ctx, id, stats); err != nil {
		return err
	}
	p.publishFor(ctx, id)
	return nil
}

func (p *PublishingSessions) Rename(ctx context.Context, id, title string, updatedAt time.Time) error {
	if err := p.SessionRepository.Rename(ctx, id, title, updatedAt); err != nil {
		return err
	}
	p.publishFor(ctx, id)
	return nil
}

func (p *PublishingSessions) DeleteWithMessages(ctx context.Context, id string) error {
	session, err := p.SessionRepository.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := p.SessionRepository.DeleteWithMessages(ctx, id); err != nil {
		return err
	}
	p.publish(ctx, session.UserID)
	return nil
}

func (p *PublishingSessions) publishFor(ctx context.Context, id string) {
	session, err := p.SessionRepository.Get(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("Failed to resolve session owner for notification")
		return
	}
	p.publish(ctx, session.UserID)
}

func (p *PublishingSessions) publish(ctx context.Context, userID string) {
	if err := p.notifier.Publish(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to publish session change")
	}
}
