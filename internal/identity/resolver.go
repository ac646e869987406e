package identity

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/customer-wishlist/pkg/config"
	"github.com/google/uuid"
)

const (
	DefaultGuestDays = 30
	MaxGuestDays     = 30
	MinGuestDays     = 1

	defaultCookieName = "wishlist_guest_token"
)

// ErrGuestsDisabled is returned for anonymous callers when guest wishlists are off.
var ErrGuestsDisabled = errors.New("guest wishlists are disabled")

var tokenRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// GuestPolicy is the slice of settings the resolver needs.
type GuestPolicy interface {
	GuestPolicy(ctx context.Context) (allowGuests bool, cookieDays int, err error)
}

// CurrentUserFunc extracts the authenticated user id from a request context.
type CurrentUserFunc func(ctx context.Context) (int64, bool)

// Resolver maps a request to its wishlist owner, minting a guest cookie when needed.
type Resolver struct {
	cfg         config.GuestConfig
	policy      GuestPolicy
	currentUser CurrentUserFunc
	newToken    func() string
	now         func() time.Time
}

// NewResolver builds a Resolver reading guest cookies per cfg. policy supplies
// the live guest settings and currentUser the authenticated user, if any.
func NewResolver(cfg config.GuestConfig, policy GuestPolicy, currentUser CurrentUserFunc) (*Resolver, error) {
	if policy == nil {
		return nil, errors.New("guest policy is required")
	}
	if currentUser == nil {
		return nil, errors.New("current user func is required")
	}
	if strings.TrimSpace(cfg.CookieName) == "" {
		cfg.CookieName = defaultCookieName
	}
	if strings.TrimSpace(cfg.CookiePath) == "" {
		cfg.CookiePath = "/"
	}
	return &Resolver{
		cfg:         cfg,
		policy:      policy,
		currentUser: currentUser,
		newToken:    uuid.NewString,
		now:         time.Now,
	}, nil
}

// Resolve returns User for authenticated callers. Anonymous callers get the
// guest token from their cookie, or a freshly minted one written to w.
func (r *Resolver) Resolve(w http.ResponseWriter, req *http.Request) (Identity, error) {
	ctx := req.Context()
	if userID, ok := r.currentUser(ctx); ok && userID > 0 {
		return User(userID), nil
	}

	allow, days, err := r.policy.GuestPolicy(ctx)
	if err != nil {
		return Identity{}, err
	}
	if !allow {
		return Identity{}, ErrGuestsDisabled
	}

	if token, ok := r.GuestToken(req); ok {
		return Guest(token), nil
	}

	token := r.newToken()
	maxAge := time.Duration(ClampGuestDays(days)) * 24 * time.Hour
	http.SetCookie(w, r.cookie(req, token, maxAge))
	return Guest(token), nil
}

// GuestToken reads an acceptable guest token from the request without side effects.
func (r *Resolver) GuestToken(req *http.Request) (string, bool) {
	c, err := req.Cookie(r.cfg.CookieName)
	if err != nil {
		return "", false
	}
	return SanitizeToken(c.Value)
}

// ClearGuest expires the guest cookie.
func (r *Resolver) ClearGuest(w http.ResponseWriter, req *http.Request) {
	c := r.cookie(req, "", 0)
	c.MaxAge = -1
	c.Expires = time.Unix(1, 0)
	http.SetCookie(w, c)
}

func (r *Resolver) cookie(req *http.Request, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     r.cfg.CookieName,
		Value:    value,
		Path:     r.cfg.CookiePath,
		Domain:   r.cfg.CookieDomain,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.cfg.CookieSecure || req.TLS != nil,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge.Seconds())
		c.Expires = r.now().Add(maxAge).UTC()
	}
	return c
}

// SanitizeToken trims raw and accepts it when it fits the token column and
// uses only URL-safe characters.
func SanitizeToken(raw string) (string, bool) {
	token := strings.TrimSpace(raw)
	if token == "" || len(token) > MaxTokenLength || !tokenRe.MatchString(token) {
		return "", false
	}
	return token, true
}

// ClampGuestDays bounds the cookie lifetime to 1..30 days; zero means default.
func ClampGuestDays(days int) int {
	switch {
	case days == 0:
		return DefaultGuestDays
	case days < MinGuestDays:
		return MinGuestDays
	case days > MaxGuestDays:
		return MaxGuestDays
	}
	return days
}
