package settings

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/customer-wishlist/pkg/errors"
	"github.com/angelmondragon/customer-wishlist/pkg/logger"
	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

type store interface {
	LoadAll(ctx context.Context) (map[string]datatypes.JSON, error)
	SaveAll(ctx context.Context, sections map[string]datatypes.JSON) error
}

// Service is a pull-through cache over the stored settings. The first Get
// loads from the store; Update and Refresh invalidate.
type Service struct {
	store    store
	logg     *logger.Logger
	validate *validator.Validate

	mu     sync.RWMutex
	cached *Settings
}

func NewService(repo *Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settings repo is required")
	}
	return newService(repo, logg), nil
}

func newService(s store, logg *logger.Logger) *Service {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{store: s, logg: logg, validate: newValidator()}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Get returns the current settings.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	s.mu.RLock()
	if s.cached != nil {
		out := *s.cached
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached, nil
	}
	loaded, err := s.load(ctx)
	if err != nil {
		return Settings{}, err
	}
	s.cached = &loaded
	return loaded, nil
}

// Update validates and persists next, then drops the cache.
func (s *Service) Update(ctx context.Context, next Settings) (Settings, error) {
	next.normalize()
	if err := s.validate.Struct(next); err != nil {
		return Settings{}, validationError(err)
	}

	product, err := json.Marshal(next.Product)
	if err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode product settings")
	}
	account, err := json.Marshal(next.MyAccount)
	if err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode my account settings")
	}

	err = s.store.SaveAll(ctx, map[string]datatypes.JSON{
		SectionProduct:   datatypes.JSON(product),
		SectionMyAccount: datatypes.JSON(account),
	})
	if err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save settings")
	}

	s.Refresh()
	s.logg.Info(ctx, "wishlist settings updated")
	return next, nil
}

// Refresh drops the cached copy so the next Get reloads from the store.
func (s *Service) Refresh() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// GuestPolicy reports whether guests may save items and how long their
// cookie lives.
func (s *Service) GuestPolicy(ctx context.Context) (bool, int, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return false, 0, err
	}
	return current.Product.AllowGuests, current.Product.GuestCookieDays, nil
}

// load overlays stored sections onto the defaults so absent sections and
// fields added later keep their default values.
func (s *Service) load(ctx context.Context) (Settings, error) {
	rows, err := s.store.LoadAll(ctx)
	if err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}

	out := Defaults()
	if raw, ok := rows[SectionProduct]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &out.Product); err != nil {
			s.logg.Error(ctx, "stored product settings unreadable, using defaults", err)
			out.Product = DefaultProduct()
		}
	}
	if raw, ok := rows[SectionMyAccount]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &out.MyAccount); err != nil {
			s.logg.Error(ctx, "stored my account settings unreadable, using defaults", err)
			out.MyAccount = DefaultMyAccount()
		}
	}
	return out, nil
}

func validationError(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := map[string]string{}
	for _, fe := range errs {
		details[strings.TrimPrefix(fe.Namespace(), "Settings.")] = fe.Tag()
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}
