package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/customer-wishlist/api/middleware"
	"github.com/angelmondragon/customer-wishlist/api/responses"
	"github.com/angelmondragon/customer-wishlist/api/validators"
	"github.com/angelmondragon/customer-wishlist/internal/events"
	"github.com/angelmondragon/customer-wishlist/internal/identity"
	"github.com/angelmondragon/customer-wishlist/internal/wishlist"
	"github.com/angelmondragon/customer-wishlist/internal/woocommerce"
	pkgerrors "github.com/angelmondragon/customer-wishlist/pkg/errors"
	"github.com/angelmondragon/customer-wishlist/pkg/logger"
)

// IdentityResolver maps a request to its wishlist owner.
type IdentityResolver interface {
	Resolve(w http.ResponseWriter, r *http.Request) (identity.Identity, error)
	GuestToken(r *http.Request) (string, bool)
	ClearGuest(w http.ResponseWriter, r *http.Request)
}

// LoginDispatcher fans a login out to its handlers.
type LoginDispatcher interface {
	Dispatch(ctx context.Context, evt events.LoginEvent) error
}

type addWishlistItemPayload struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// WishlistAddItem saves a product for the caller, minting a guest cookie for
// anonymous visitors.
func WishlistAddItem(svc wishlist.Service, resolver IdentityResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || resolver == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		var payload addWishlistItemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		owner, err := resolveOwner(w, r, resolver)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithOwner(ctx, string(owner.Kind()))
		}

		if err := svc.AddItem(ctx, owner, payload.ProductID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"product_id": payload.ProductID,
			"added":      true,
		})
	}
}

// WishlistItemState reports whether the caller already saved a product. It
// never mints a guest cookie.
func WishlistItemState(svc wishlist.Service, resolver IdentityResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || resolver == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var owner identity.Identity
		if userID, ok := middleware.UserIDFromContext(ctx); ok {
			owner = identity.User(userID)
		} else if token, ok := resolver.GuestToken(r); ok {
			owner = identity.Guest(token)
		}

		state, err := svc.ItemState(ctx, owner, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

// WishlistList returns the signed-in user's wishlist.
func WishlistList(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		items, err := svc.ListItems(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// WishlistRemoveItem removes a product from the signed-in user's wishlist.
func WishlistRemoveItem(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.RemoveItem(ctx, userID, productID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"removed": true})
	}
}

// WishlistAddToCart moves a saved product into the shopper's cart. The
// Cart-Token header is passed through to the store.
func WishlistAddToCart(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		cartToken := strings.TrimSpace(r.Header.Get(woocommerce.CartTokenHeader))
		item, err := svc.AddToCart(ctx, userID, productID, cartToken)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if cartToken != "" {
			w.Header().Set(woocommerce.CartTokenHeader, cartToken)
		}
		responses.WriteSuccess(w, item)
	}
}

// WishlistMerge is the login hook. It hands the browser's guest token to the
// login handlers and clears the cookie once they succeed. Handler failures are
// logged and never surfaced to the shopper.
func WishlistMerge(dispatcher LoginDispatcher, resolver IdentityResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if dispatcher == nil || resolver == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "login hook unavailable"))
			return
		}

		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		token, hasGuest := resolver.GuestToken(r)
		if !hasGuest {
			responses.WriteSuccess(w, map[string]bool{"merged": false})
			return
		}

		evt := events.LoginEvent{
			EventID:    uuid.New(),
			UserID:     userID,
			GuestToken: token,
			OccurredAt: time.Now().UTC(),
		}
		if err := dispatcher.Dispatch(ctx, evt); err != nil {
			// the guest cookie is kept so the next login can retry
			if logg != nil {
				logg.Error(logg.WithField(ctx, "event_id", evt.EventID.String()), "login handlers failed", err)
			}
			responses.WriteSuccess(w, map[string]bool{"merged": false})
			return
		}

		resolver.ClearGuest(w, r)
		responses.WriteSuccess(w, map[string]bool{"merged": true})
	}
}

func resolveOwner(w http.ResponseWriter, r *http.Request, resolver IdentityResolver) (identity.Identity, error) {
	owner, err := resolver.Resolve(w, r)
	if err == nil {
		return owner, nil
	}
	if errors.Is(err, identity.ErrGuestsDisabled) {
		return identity.Identity{}, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "sign in to save items to your wishlist")
	}
	if pkgerrors.As(err) != nil {
		return identity.Identity{}, err
	}
	return identity.Identity{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve wishlist owner")
}
