package main

import (
	"context"
	"fmt"

	"github.com/Rrens/social-content-generator/internal/api/handler"
	"github.com/Rrens/social-content-generator/internal/config"
	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/Rrens/social-content-generator/internal/realtime"
	"github.com/Rrens/social-content-generator/internal/repository/firestore"
	"github.com/Rrens/social-content-generator/internal/repository/memory"
	"github.com/Rrens/social-content-generator/internal/repository/mongo"
	"github.com/Rrens/social-content-generator/internal/repository/postgres"
	"github.com/rs/zerolog/log"
)

// stores is the persistence wiring selected by store.driver
type stores struct {
	sessions  domain.SessionRepository
	messages  domain.MessageRepository
	watcher   domain.SessionWatcher
	readiness map[string]handler.ReadinessCheck
	closers   []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the configured driver. Drivers without native change streams publish
// session changes through notifier and watch them with a NotifyWatcher.
func openStores(ctx context.Context, cfg *config.Config, notifier realtime.Notifier) (*stores, error) {
	s := &stores{readiness: make(map[string]handler.ReadinessCheck)}

	var (
		sessions domain.SessionRepository
		messages domain.MessageRepository
	)

	switch cfg.Store.Driver {
	case "", "memory":
		store := memory.NewStore()
		sessions, messages = store.Sessions(), store.Messages()
		log.Warn().Msg("Using in-memory store; data is lost on restart")

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		s.readiness["database"] = db.Ping
		sessions = postgres.NewSessionRepository(db.Pool)
		messages = postgres.NewMessageRepository(db.Pool)

	case "mongo":
		db, err := mongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		s.closers = append(s.closers, func() { _ = db.Close() })
		s.readiness["mongo"] = db.Ping
		sessions = mongo.NewSessionRepository(db)
		messages = mongo.NewMessageRepository(db)

	case "firestore":
		store, err := firestore.NewStore(ctx, cfg.Firestore)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to firestore: %w", err)
		}
		s.closers = append(s.closers, func() { _ = store.Close() })
		repo := store.Sessions()
		s.sessions, s.messages, s.watcher = repo, store.Messages(), repo
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	publishing := realtime.NewPublishingSessions(sessions, notifier)
	s.sessions = publishing
	s.messages = messages
	s.watcher = realtime.NewNotifyWatcher(publishing, notifier)
	return s, nil
}
