package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/codewandler/userd-go/core/user"
	"github.com/codewandler/userd-go/internal/config"
)

// Wire payloads. Field names are part of the contract with downstream
// consumers; keep them snake_case and stable.
type userUpdatedPayload struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	UpdatedAt         string  `json:"updated_at"`
	ProfilePictureURL *string `json:"profile_picture_url"`
}

type userDeletedPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	DeletedAt string `json:"deleted_at"`
}

func encodeUserUpdated(e user.UpdatedEvent) ([]byte, error) {
	return json.Marshal(userUpdatedPayload{
		ID:                e.ID,
		Name:              e.Name,
		Email:             e.Email,
		UpdatedAt:         e.UpdatedAt.UTC().Format(time.RFC3339Nano),
		ProfilePictureURL: e.ProfilePictureURL,
	})
}

func encodeUserDeleted(e user.DeletedEvent) ([]byte, error) {
	return json.Marshal(userDeletedPayload{
		ID:        e.ID,
		Name:      e.Name,
		Email:     e.Email,
		DeletedAt: e.DeletedAt.UTC().Format(time.RFC3339Nano),
	})
}

// UserUpdatedPublisher returns an event handler that publishes each
// update to the route's subject. Meant to be subscribed on the event
// dispatcher.
func (b *Broker) UserUpdatedPublisher(route config.MessageRoute) func(ctx context.Context, e user.UpdatedEvent) error {
	subject := subjectFor(route.Topic, route.Message)
	return func(ctx context.Context, e user.UpdatedEvent) error {
		data, err := encodeUserUpdated(e)
		if err != nil {
			return err
		}
		return b.publish(ctx, subject, data, slog.String("user_id", e.ID))
	}
}

// UserDeletedPublisher returns an event handler publishing deletions
// to the route's subject.
func (b *Broker) UserDeletedPublisher(route config.MessageRoute) func(ctx context.Context, e user.DeletedEvent) error {
	subject := subjectFor(route.Topic, route.Message)
	return func(ctx context.Context, e user.DeletedEvent) error {
		data, err := encodeUserDeleted(e)
		if err != nil {
			return err
		}
		return b.publish(ctx, subject, data, slog.String("user_id", e.ID))
	}
}

func (b *Broker) publish(ctx context.Context, subject string, data []byte, attrs ...slog.Attr) error {
	msgID := gonanoid.Must()
	_, err := b.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID))
	if err != nil {
		return fmt.Errorf("publish to %q: %w", subject, err)
	}
	b.log.LogAttrs(ctx, slog.LevelDebug, "message published",
		append([]slog.Attr{
			slog.String("subject", subject),
			slog.String("message_id", msgID),
		}, attrs...)...)
	return nil
}
