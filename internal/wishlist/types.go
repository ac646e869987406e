package wishlist

import (
	"time"

	"github.com/angelmondragon/customer-wishlist/internal/identity"
	"github.com/angelmondragon/customer-wishlist/pkg/enums"
)

// Entry is one saved product together with its owner.
type Entry struct {
	ID          int64
	ProductID   int64
	DateCreated time.Time
	Owner       identity.Identity
}

// MergeResult summarizes a guest to user fold. Failures collects per-row
// errors; the rows behind them stay owned by the guest token.
type MergeResult struct {
	Reassigned int
	Collapsed  int
	Failures   error
}

// ProductSummary is the catalog view attached to listed entries.
type ProductSummary struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Type        enums.ProductType `json:"type"`
	Permalink   string            `json:"permalink,omitempty"`
	StockStatus enums.StockStatus `json:"stock_status"`
	Purchasable bool              `json:"purchasable"`
}

// ItemDTO is a listed wishlist entry.
type ItemDTO struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	DateCreated time.Time       `json:"date_created"`
	Product     *ProductSummary `json:"product"`
}

// ItemStateDTO tells the storefront how to render the wishlist button.
// For variation families Added is unset and AddedVariationIDs lists the
// sibling variations already saved.
type ItemStateDTO struct {
	ProductID         int64   `json:"product_id"`
	Added             *bool   `json:"added,omitempty"`
	AddedVariationIDs []int64 `json:"added_variation_ids"`
}

// CartItemDTO echoes what was sent to the cart.
type CartItemDTO struct {
	ProductID   int64             `json:"product_id"`
	VariationID int64             `json:"variation_id,omitempty"`
	Quantity    int               `json:"quantity"`
	Variation   map[string]string `json:"variation,omitempty"`
}

// MergeDTO is the login hook response.
type MergeDTO struct {
	Reassigned int `json:"reassigned"`
	Collapsed  int `json:"collapsed"`
}
