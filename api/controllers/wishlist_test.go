package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/customer-wishlist/api/middleware"
	"github.com/angelmondragon/customer-wishlist/internal/events"
	"github.com/angelmondragon/customer-wishlist/internal/identity"
	"github.com/angelmondragon/customer-wishlist/internal/wishlist"
	"github.com/angelmondragon/customer-wishlist/internal/woocommerce"
	pkgerrors "github.com/angelmondragon/customer-wishlist/pkg/errors"
)

type stubWishlistService struct {
	addErr    error
	addOwner  identity.Identity
	addID     int64
	state     wishlist.ItemStateDTO
	stateOf   identity.Identity
	items     []wishlist.ItemDTO
	removeErr error
	cartToken string
	cartItem  wishlist.CartItemDTO
	cartErr   error
}

func (s *stubWishlistService) AddItem(ctx context.Context, owner identity.Identity, productID int64) error {
	s.addOwner = owner
	s.addID = productID
	return s.addErr
}

func (s *stubWishlistService) RemoveItem(ctx context.Context, userID, productID int64) error {
	return s.removeErr
}

func (s *stubWishlistService) ListItems(ctx context.Context, userID int64) ([]wishlist.ItemDTO, error) {
	return s.items, nil
}

func (s *stubWishlistService) ItemState(ctx context.Context, owner identity.Identity, productID int64) (wishlist.ItemStateDTO, error) {
	s.stateOf = owner
	return s.state, nil
}

func (s *stubWishlistService) AddToCart(ctx context.Context, userID, productID int64, cartToken string) (wishlist.CartItemDTO, error) {
	s.cartToken = cartToken
	return s.cartItem, s.cartErr
}

func (s *stubWishlistService) MergeGuest(ctx context.Context, token string, userID int64) (wishlist.MergeDTO, error) {
	return wishlist.MergeDTO{}, nil
}

func (s *stubWishlistService) HandleLogin(ctx context.Context, evt events.LoginEvent) error {
	return nil
}

type stubResolver struct {
	owner   identity.Identity
	err     error
	token   string
	cleared bool
}

func (s *stubResolver) Resolve(w http.ResponseWriter, r *http.Request) (identity.Identity, error) {
	return s.owner, s.err
}

func (s *stubResolver) GuestToken(r *http.Request) (string, bool) {
	return s.token, s.token != ""
}

func (s *stubResolver) ClearGuest(w http.ResponseWriter, r *http.Request) {
	s.cleared = true
}

type stubDispatcher struct {
	events []events.LoginEvent
	err    error
}

func (s *stubDispatcher) Dispatch(ctx context.Context, evt events.LoginEvent) error {
	s.events = append(s.events, evt)
	return s.err
}

func asUser(req *http.Request, userID int64) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
}

func TestWishlistAddItemCreated(t *testing.T) {
	svc := &stubWishlistService{}
	resolver := &stubResolver{owner: identity.Guest("guest-1")}
	handler := WishlistAddItem(svc, resolver, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wishlist/items", strings.NewReader(`{"product_id":12}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, int64(12), svc.addID)
	assert.Equal(t, identity.Guest("guest-1"), svc.addOwner)
}

func TestWishlistAddItemValidation(t *testing.T) {
	handler := WishlistAddItem(&stubWishlistService{}, &stubResolver{}, nil)

	for _, body := range []string{`{}`, `{"product_id":-1}`, `{"product_id":1,"extra":true}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/wishlist/items", strings.NewReader(body))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusBadRequest, resp.Code, body)
	}
}

func TestWishlistAddItemGuestsDisabled(t *testing.T) {
	resolver := &stubResolver{err: identity.ErrGuestsDisabled}
	handler := WishlistAddItem(&stubWishlistService{}, resolver, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wishlist/items", strings.NewReader(`{"product_id":3}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestWishlistAddItemDuplicate(t *testing.T) {
	svc := &stubWishlistService{addErr: pkgerrors.New(pkgerrors.CodeConflict, "product is already in the wishlist")}
	handler := WishlistAddItem(svc, &stubResolver{owner: identity.User(4)}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wishlist/items", strings.NewReader(`{"product_id":3}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestWishlistItemStateOwners(t *testing.T) {
	added := true
	cases := []struct {
		name   string
		userID int64
		token  string
		want   identity.Identity
	}{
		{"user", 8, "ignored", identity.User(8)},
		{"guest", 0, "guest-2", identity.Guest("guest-2")},
		{"anonymous", 0, "", identity.Identity{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubWishlistService{state: wishlist.ItemStateDTO{ProductID: 5, Added: &added}}
			router := chi.NewRouter()
			router.Get("/items/{productId}/state", WishlistItemState(svc, &stubResolver{token: tc.token}, nil))

			req := httptest.NewRequest(http.MethodGet, "/items/5/state", nil)
			if tc.userID > 0 {
				req = asUser(req, tc.userID)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			require.Equal(t, http.StatusOK, resp.Code)
			assert.Equal(t, tc.want, svc.stateOf)
			assert.Empty(t, resp.Result().Cookies())

			var state wishlist.ItemStateDTO
			decodeData(t, resp, &state)
			require.NotNil(t, state.Added)
			assert.True(t, *state.Added)
		})
	}
}

func TestWishlistItemStateRejectsBadID(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/items/{productId}/state", WishlistItemState(&stubWishlistService{}, &stubResolver{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/items/abc/state", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestWishlistListRequiresUser(t *testing.T) {
	handler := WishlistList(&stubWishlistService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wishlist/items", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestWishlistList(t *testing.T) {
	svc := &stubWishlistService{items: []wishlist.ItemDTO{{ID: 2, ProductID: 10}, {ID: 1, ProductID: 11}}}
	handler := WishlistList(svc, nil)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/wishlist/items", nil), 3)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Items []wishlist.ItemDTO `json:"items"`
	}
	decodeData(t, resp, &body)
	require.Len(t, body.Items, 2)
	assert.Equal(t, int64(10), body.Items[0].ProductID)
}

func TestWishlistRemoveItemNotFound(t *testing.T) {
	svc := &stubWishlistService{removeErr: pkgerrors.New(pkgerrors.CodeNotFound, "failed to remove item from wishlist")}
	router := chi.NewRouter()
	router.Delete("/items/{productId}", WishlistRemoveItem(svc, nil))

	req := asUser(httptest.NewRequest(http.MethodDelete, "/items/9", nil), 3)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestWishlistAddToCartPassesCartToken(t *testing.T) {
	svc := &stubWishlistService{cartItem: wishlist.CartItemDTO{ProductID: 70, VariationID: 77, Quantity: 1}}
	router := chi.NewRouter()
	router.Post("/items/{productId}/cart", WishlistAddToCart(svc, nil))

	req := asUser(httptest.NewRequest(http.MethodPost, "/items/77/cart", nil), 3)
	req.Header.Set(woocommerce.CartTokenHeader, "cart-xyz")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "cart-xyz", svc.cartToken)
	assert.Equal(t, "cart-xyz", resp.Header().Get(woocommerce.CartTokenHeader))

	var item wishlist.CartItemDTO
	decodeData(t, resp, &item)
	assert.Equal(t, int64(77), item.VariationID)
}

func TestWishlistAddToCartUnavailable(t *testing.T) {
	svc := &stubWishlistService{cartErr: pkgerrors.New(pkgerrors.CodeConflict, "product cannot be added to the cart")}
	router := chi.NewRouter()
	router.Post("/items/{productId}/cart", WishlistAddToCart(svc, nil))

	req := asUser(httptest.NewRequest(http.MethodPost, "/items/77/cart", nil), 3)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestWishlistMergeDispatchesAndClears(t *testing.T) {
	dispatcher := &stubDispatcher{}
	resolver := &stubResolver{token: "guest-9"}
	handler := WishlistMerge(dispatcher, resolver, nil)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/wishlist/merge", nil), 21)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, dispatcher.events, 1)
	evt := dispatcher.events[0]
	assert.Equal(t, int64(21), evt.UserID)
	assert.Equal(t, "guest-9", evt.GuestToken)
	assert.NotZero(t, evt.EventID)
	assert.True(t, resolver.cleared)

	var body map[string]bool
	decodeData(t, resp, &body)
	assert.True(t, body["merged"])
}

func TestWishlistMergeWithoutGuestCookie(t *testing.T) {
	dispatcher := &stubDispatcher{}
	resolver := &stubResolver{}
	handler := WishlistMerge(dispatcher, resolver, nil)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/wishlist/merge", nil), 21)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, dispatcher.events)
	assert.False(t, resolver.cleared)
}

func TestWishlistMergeFailureIsSilent(t *testing.T) {
	dispatcher := &stubDispatcher{err: errors.New("db down")}
	resolver := &stubResolver{token: "guest-9"}
	handler := WishlistMerge(dispatcher, resolver, nil)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/wishlist/merge", nil), 21)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, resolver.cleared, "cookie kept for the next login")

	var body map[string]bool
	decodeData(t, resp, &body)
	assert.False(t, body["merged"])
}

func TestWishlistMergeRequiresUser(t *testing.T) {
	handler := WishlistMerge(&stubDispatcher{}, &stubResolver{token: "guest-9"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wishlist/merge", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
