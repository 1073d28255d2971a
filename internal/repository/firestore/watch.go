package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/Rrens/social-content-generator/internal/domain"
)

// WatchSessions opens a native snapshot listener on the user's session query
func (r *SessionRepository) WatchSessions(ctx context.Context, userID string, limit int) (domain.SessionIterator, error) {
	return &snapshotIterator{it: r.userQuery(userID, limit).Snapshots(ctx)}, nil
}

type snapshotIterator struct {
	it *firestore.QuerySnapshotIterator
}

func (s *snapshotIterator) Next() ([]domain.ChatSession, error) {
	snap, err := s.it.Next()
	if err != nil {
		return nil, fmt.Errorf("firestore session snapshot: %w", err)
	}

	docs, err := snap.Documents.GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore session snapshot: %w", err)
	}

	out := make([]domain.ChatSession, 0, len(docs))
	for _, d := range docs {
		session, err := toSession(d)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, nil
}

func (s *snapshotIterator) Stop() {
	s.it.Stop()
}
