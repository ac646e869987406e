package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/customer-wishlist/pkg/logger"
	"github.com/google/uuid"
)

const (
	loginConsumerName  = "wishlist-login"
	eventTypeAttribute = "event_type"
)

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type dispatcher interface {
	Dispatch(ctx context.Context, evt LoginEvent) error
}

// Consumer receives user.logged_in messages from Pub/Sub and dispatches them once.
type Consumer struct {
	dispatcher   dispatcher
	manager      idempotencyChecker
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer wires the login consumer.
func NewConsumer(d dispatcher, manager idempotencyChecker, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if d == nil {
		return nil, errors.New("dispatcher is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if subscription == nil {
		return nil, errors.New("login subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		dispatcher:   d,
		manager:      manager,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes[eventTypeAttribute]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != EventTypeUserLoggedIn {
		c.logg.Info(logCtx, "skipping non-login event")
		return processResult{ack: true}
	}

	var evt LoginEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		c.logg.Error(logCtx, "failed to unmarshal login event", err)
		return processResult{ack: true}
	}
	if err := validateLoginEvent(evt); err != nil {
		c.logg.Error(logCtx, "invalid login event", err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{"event_id": evt.EventID.String()})
	logCtx = c.logg.WithUserID(logCtx, evt.UserID)

	already, err := c.manager.CheckAndMarkProcessed(logCtx, loginConsumerName, evt.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "login event already processed")
		return processResult{ack: true}
	}

	if err := c.dispatcher.Dispatch(logCtx, evt); err != nil {
		c.logg.Error(logCtx, "login handlers failed", err)
		if relErr := c.manager.Release(ctx, loginConsumerName, evt.EventID); relErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency marker", relErr)
		}
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "processed login event")
	return processResult{ack: true}
}

func validateLoginEvent(evt LoginEvent) error {
	if evt.EventID == uuid.Nil {
		return errors.New("event id missing")
	}
	if evt.UserID <= 0 {
		return fmt.Errorf("user id must be positive, got %d", evt.UserID)
	}
	return nil
}
