package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// EventTypeUserLoggedIn is the Pub/Sub event_type attribute for logins.
const EventTypeUserLoggedIn = "user.logged_in"

// LoginEvent is raised once a shopper authenticates. GuestToken is the guest
// cookie the browser carried before login, if any.
type LoginEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	UserID     int64     `json:"user_id"`
	GuestToken string    `json:"guest_token,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LoginHandler reacts to a login.
type LoginHandler func(ctx context.Context, evt LoginEvent) error

// Dispatcher fans login events out to registered handlers.
type Dispatcher struct {
	mu    sync.RWMutex
	login []LoginHandler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// OnLogin registers handler. Nil handlers are ignored.
func (d *Dispatcher) OnLogin(handler LoginHandler) {
	if handler == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.login = append(d.login, handler)
}

// Dispatch runs every login handler in registration order. A failing handler
// does not stop the rest; all errors are combined.
func (d *Dispatcher) Dispatch(ctx context.Context, evt LoginEvent) error {
	d.mu.RLock()
	handlers := make([]LoginHandler, len(d.login))
	copy(handlers, d.login)
	d.mu.RUnlock()

	var errs error
	for _, handler := range handlers {
		errs = multierr.Append(errs, handler(ctx, evt))
	}
	return errs
}
