package redis

import (
	"context"

	"github.com/Rrens/social-content-generator/internal/realtime"
	"github.com/rs/zerolog/log"
)

// Notifier carries session-change signals between API instances over Redis pub/sub and
// fans them out locally through a realtime.Hub.
type Notifier struct {
	client  *Client
	channel string
	hub     *realtime.Hub
}

// NewNotifier creates a notifier; call Run to start receiving
func NewNotifier(client *Client, channel string, hub *realtime.Hub) *Notifier {
	return &Notifier{client: client, channel: channel, hub: hub}
}

func (n *Notifier) Publish(ctx context.Context, userID string) error {
	return n.client.rdb.Publish(ctx, n.channel, userID).Err()
}

func (n *Notifier) Subscribe(userID string) (<-chan struct{}, func()) {
	return n.hub.Subscribe(userID)
}

// Run relays published user IDs to local subscribers until ctx is done
func (n *Notifier) Run(ctx context.Context) {
	sub := n.client.rdb.Subscribe(ctx, n.channel)
	defer sub.Close()

	log.Info().Str("channel", n.channel).Msg("Session change listener started")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			n.hub.Notify(msg.Payload)
		}
	}
}
