package wishlist

import (
	"context"
	"time"

	"github.com/angelmondragon/customer-wishlist/internal/events"
	"github.com/angelmondragon/customer-wishlist/internal/identity"
	"github.com/angelmondragon/customer-wishlist/internal/woocommerce"
	"github.com/angelmondragon/customer-wishlist/pkg/enums"
	pkgerrors "github.com/angelmondragon/customer-wishlist/pkg/errors"
	"github.com/angelmondragon/customer-wishlist/pkg/logger"
	"github.com/angelmondragon/customer-wishlist/pkg/metrics"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const enrichConcurrency = 8

// Catalog resolves products from the store catalog.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*woocommerce.Product, error)
}

// Cart places items in a shopper's cart.
type Cart interface {
	AddToCart(ctx context.Context, cartToken string, item woocommerce.CartItem) error
}

// Recorder receives wishlist metrics.
type Recorder interface {
	ItemAdded(ownerKind string)
	ItemRemoved()
	MergeRows(outcome string, n int)
	ObserveMerge(d time.Duration)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	Repo    *Repository
	Catalog Catalog
	Cart    Cart
	Metrics Recorder
	Logger  *logger.Logger
}

// Service exposes business rules for wishlist management.
type Service interface {
	AddItem(ctx context.Context, owner identity.Identity, productID int64) error
	RemoveItem(ctx context.Context, userID, productID int64) error
	ListItems(ctx context.Context, userID int64) ([]ItemDTO, error)
	ItemState(ctx context.Context, owner identity.Identity, productID int64) (ItemStateDTO, error)
	AddToCart(ctx context.Context, userID, productID int64, cartToken string) (CartItemDTO, error)
	MergeGuest(ctx context.Context, token string, userID int64) (MergeDTO, error)
	HandleLogin(ctx context.Context, evt events.LoginEvent) error
}

type service struct {
	repo    *Repository
	catalog Catalog
	cart    Cart
	metrics Recorder
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog is required")
	}
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is required")
	}
	recorder := params.Metrics
	if recorder == nil {
		recorder = metrics.NewWishlistMetrics(nil)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    params.Repo,
		catalog: params.Catalog,
		cart:    params.Cart,
		metrics: recorder,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// AddItem saves productID for owner after checking the product exists.
func (s *service) AddItem(ctx context.Context, owner identity.Identity, productID int64) error {
	if productID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	if !owner.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "wishlist owner is required")
	}
	if _, err := s.loadProduct(ctx, productID); err != nil {
		return err
	}

	exists, err := s.repo.IsInWishlist(ctx, productID, owner)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check wishlist")
	}
	if exists {
		return pkgerrors.New(pkgerrors.CodeConflict, "product is already in the wishlist")
	}

	added, err := s.repo.Add(ctx, productID, owner)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to add item to wishlist")
	}
	if !added {
		// lost a race with a concurrent add for the same owner
		return pkgerrors.New(pkgerrors.CodeConflict, "product is already in the wishlist")
	}
	s.metrics.ItemAdded(string(owner.Kind()))
	return nil
}

// RemoveItem drops productID from a user's wishlist.
func (s *service) RemoveItem(ctx context.Context, userID, productID int64) error {
	if userID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if productID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	deleted, err := s.repo.Delete(ctx, productID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to remove item from wishlist")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "failed to remove item from wishlist")
	}
	s.metrics.ItemRemoved()
	return nil
}

// ListItems returns the user's entries newest first, each with its catalog
// summary. Entries whose product is gone carry a nil Product.
func (s *service) ListItems(ctx context.Context, userID int64) ([]ItemDTO, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}

	items := make([]ItemDTO, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i, entry := range entries {
		items[i] = ItemDTO{ID: entry.ID, ProductID: entry.ProductID, DateCreated: entry.DateCreated}
		g.Go(func() error {
			product, err := s.catalog.GetProduct(gctx, entry.ProductID)
			if err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
					return nil
				}
				return err
			}
			items[i].Product = toSummary(product)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist products")
	}
	return items, nil
}

// ItemState reports how the wishlist button should render for productID. A
// zero owner is an anonymous visitor without a wishlist yet.
func (s *service) ItemState(ctx context.Context, owner identity.Identity, productID int64) (ItemStateDTO, error) {
	if productID <= 0 {
		return ItemStateDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	if !owner.IsZero() && !owner.Valid() {
		return ItemStateDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "wishlist owner is invalid")
	}
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return ItemStateDTO{}, err
	}

	state := ItemStateDTO{ProductID: productID}
	if !product.Type.HasVariations() {
		added := false
		if owner.IsZero() {
			state.Added = &added
			return state, nil
		}
		added, err = s.repo.IsInWishlist(ctx, productID, owner)
		if err != nil {
			return ItemStateDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check wishlist")
		}
		state.Added = &added
		return state, nil
	}

	family := product
	if product.IsVariation() {
		family, err = s.loadProduct(ctx, product.ParentID)
		if err != nil {
			return ItemStateDTO{}, err
		}
	}
	present, err := s.repo.FilterExisting(ctx, family.Variations)
	if err != nil {
		return ItemStateDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check variations")
	}
	state.AddedVariationIDs = present
	return state, nil
}

// AddToCart moves a saved product into the shopper's cart. Variations are
// added through the parent with the variation's attributes.
func (s *service) AddToCart(ctx context.Context, userID, productID int64, cartToken string) (CartItemDTO, error) {
	if userID <= 0 {
		return CartItemDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if productID <= 0 {
		return CartItemDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return CartItemDTO{}, err
	}
	if !product.CanBeBought() {
		return CartItemDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "product cannot be purchased").
			WithDetails(map[string]any{"stock_status": product.StockStatus, "purchasable": product.Purchasable})
	}

	item := woocommerce.CartItem{ProductID: product.ID, Quantity: 1}
	if product.IsVariation() {
		item.ProductID = product.ParentID
		item.VariationID = product.ID
		item.Variation = make(map[string]string, len(product.Attributes))
		for _, attr := range product.Attributes {
			if attr.Name == "" || attr.Option == "" {
				continue
			}
			item.Variation[attr.Name] = attr.Option
		}
	}

	if err := s.cart.AddToCart(ctx, cartToken, item); err != nil {
		if pkgerrors.As(err) != nil {
			return CartItemDTO{}, err
		}
		return CartItemDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add to cart")
	}

	return CartItemDTO{
		ProductID:   item.ProductID,
		VariationID: item.VariationID,
		Quantity:    item.Quantity,
		Variation:   item.Variation,
	}, nil
}

// MergeGuest folds the guest token's entries into userID.
func (s *service) MergeGuest(ctx context.Context, token string, userID int64) (MergeDTO, error) {
	if userID <= 0 {
		return MergeDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	clean, ok := identity.SanitizeToken(token)
	if !ok {
		return MergeDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "guest token is invalid")
	}

	logCtx := s.logg.WithUserID(ctx, userID)
	started := s.now()
	result, err := s.repo.Merge(logCtx, clean, userID)
	s.metrics.ObserveMerge(s.now().Sub(started))
	if err != nil {
		return MergeDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge guest wishlist")
	}

	s.metrics.MergeRows(metrics.MergeOutcomeReassigned, result.Reassigned)
	s.metrics.MergeRows(metrics.MergeOutcomeCollapsed, result.Collapsed)
	if result.Failures != nil {
		failures := multierr.Errors(result.Failures)
		s.metrics.MergeRows(metrics.MergeOutcomeFailed, len(failures))
		for _, failure := range failures {
			s.logg.Error(logCtx, "guest wishlist row not merged", failure)
		}
	}

	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"reassigned": result.Reassigned,
		"collapsed":  result.Collapsed,
	})
	s.logg.Info(logCtx, "guest wishlist merged")
	return MergeDTO{Reassigned: result.Reassigned, Collapsed: result.Collapsed}, nil
}

// HandleLogin is the dispatcher hook for login events. Events without a
// usable guest token are ignored.
func (s *service) HandleLogin(ctx context.Context, evt events.LoginEvent) error {
	if evt.GuestToken == "" {
		return nil
	}
	if _, ok := identity.SanitizeToken(evt.GuestToken); !ok {
		s.logg.Warn(s.logg.WithUserID(ctx, evt.UserID), "login event carried an invalid guest token")
		return nil
	}
	_, err := s.MergeGuest(ctx, evt.GuestToken, evt.UserID)
	return err
}

func (s *service) loadProduct(ctx context.Context, id int64) (*woocommerce.Product, error) {
	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func toSummary(p *woocommerce.Product) *ProductSummary {
	if p == nil {
		return nil
	}
	productType := p.Type
	if productType == "" {
		productType = enums.ProductTypeSimple
	}
	return &ProductSummary{
		ID:          p.ID,
		Name:        p.Name,
		Type:        productType,
		Permalink:   p.Permalink,
		StockStatus: p.StockStatus,
		Purchasable: p.Purchasable,
	}
}
