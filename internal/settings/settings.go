package settings

import (
	"regexp"
	"strings"
)

// Placement values for the product-page button.
const (
	PlacementAfterAddToCartForm        = "after_add_to_cart_form"
	PlacementBeforeAddToCartForm       = "before_add_to_cart_form"
	PlacementBeforeAddToCartQuantity   = "before_add_to_cart_quantity"
	PlacementAfterSingleProductSummary = "after_single_product_summary"
	PlacementUseShortcode              = "use_shortcode"
)

// Settings is the full admin-editable configuration.
type Settings struct {
	Product   ProductSettings   `json:"product"`
	MyAccount MyAccountSettings `json:"my_account"`
}

// ProductSettings controls the product-page button and guest behavior.
type ProductSettings struct {
	AllowGuests         bool   `json:"allow_guests"`
	GuestCookieDays     int    `json:"guest_cookie_days" validate:"min=1,max=30"`
	Icon                string `json:"icon" validate:"required,max=64"`
	IconSize            int    `json:"icon_size" validate:"min=1,max=100"`
	FontSize            int    `json:"font_size" validate:"min=1,max=99"`
	WishlistLabel       string `json:"wishlist_label" validate:"required,max=120"`
	AddedLabel          string `json:"added_label" validate:"required,max=120"`
	BackgroundColor     string `json:"background_color" validate:"required,hexcolor"`
	TextColor           string `json:"text_color" validate:"required,hexcolor"`
	BrowseWishlistColor string `json:"browse_wishlist_color" validate:"required,hexcolor"`
	Placement           string `json:"placement" validate:"required,oneof=after_add_to_cart_form before_add_to_cart_form before_add_to_cart_quantity after_single_product_summary use_shortcode"`
}

// MyAccountSettings controls the account-area wishlist tab.
type MyAccountSettings struct {
	MenuTitle    string `json:"menu_title" validate:"required,max=120"`
	MenuSlug     string `json:"menu_slug" validate:"required,max=64"`
	ContentTitle string `json:"content_title" validate:"required,max=120"`
	EmptyMessage string `json:"empty_message" validate:"required,max=255"`
}

// Defaults returns the settings used before an admin saves anything.
func Defaults() Settings {
	return Settings{
		Product:   DefaultProduct(),
		MyAccount: DefaultMyAccount(),
	}
}

func DefaultProduct() ProductSettings {
	return ProductSettings{
		AllowGuests:         true,
		GuestCookieDays:     30,
		Icon:                "icon-4",
		IconSize:            20,
		FontSize:            15,
		WishlistLabel:       "Add to Wishlist",
		AddedLabel:          "Added to Wishlist",
		BackgroundColor:     "#2563eb",
		TextColor:           "#fff",
		BrowseWishlistColor: "#52525b",
		Placement:           PlacementAfterAddToCartForm,
	}
}

func DefaultMyAccount() MyAccountSettings {
	return MyAccountSettings{
		MenuTitle:    "My Wishlist",
		MenuSlug:     "my-wishlist",
		ContentTitle: "List of Wishlist",
		EmptyMessage: "Wishlist is empty, add some!",
	}
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9_-]+`)
	slugDashes  = regexp.MustCompile(`-{2,}`)
)

// Slugify lowercases s and reduces it to URL-safe characters.
func Slugify(s string) string {
	slug := strings.ToLower(strings.TrimSpace(s))
	slug = slugInvalid.ReplaceAllString(slug, "-")
	slug = slugDashes.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// normalize trims free text and slugifies the menu slug before validation.
func (s *Settings) normalize() {
	p := &s.Product
	p.Icon = strings.TrimSpace(p.Icon)
	p.WishlistLabel = strings.TrimSpace(p.WishlistLabel)
	p.AddedLabel = strings.TrimSpace(p.AddedLabel)
	p.BackgroundColor = strings.TrimSpace(p.BackgroundColor)
	p.TextColor = strings.TrimSpace(p.TextColor)
	p.BrowseWishlistColor = strings.TrimSpace(p.BrowseWishlistColor)
	p.Placement = strings.TrimSpace(p.Placement)

	m := &s.MyAccount
	m.MenuTitle = strings.TrimSpace(m.MenuTitle)
	m.MenuSlug = Slugify(m.MenuSlug)
	m.ContentTitle = strings.TrimSpace(m.ContentTitle)
	m.EmptyMessage = strings.TrimSpace(m.EmptyMessage)
}
