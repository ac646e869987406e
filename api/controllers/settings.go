package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/customer-wishlist/api/middleware"
	"github.com/angelmondragon/customer-wishlist/api/responses"
	"github.com/angelmondragon/customer-wishlist/api/validators"
	"github.com/angelmondragon/customer-wishlist/internal/settings"
	pkgerrors "github.com/angelmondragon/customer-wishlist/pkg/errors"
	"github.com/angelmondragon/customer-wishlist/pkg/logger"
)

// SettingsService is the admin view of the wishlist settings.
type SettingsService interface {
	Get(ctx context.Context) (settings.Settings, error)
	Update(ctx context.Context, next settings.Settings) (settings.Settings, error)
}

func SettingsGet(svc SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		current, err := svc.Get(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, current)
	}
}

// SettingsUpdate applies the request body on top of the current settings, so
// omitted fields keep their value.
func SettingsUpdate(svc SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		if _, ok := middleware.UserIDFromContext(ctx); !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		next, err := svc.Get(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := validators.DecodeJSONBody(r, &next); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		saved, err := svc.Update(ctx, next)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, saved)
	}
}
