package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/customer-wishlist/internal/identity"
	"github.com/angelmondragon/customer-wishlist/pkg/db"
	"github.com/angelmondragon/customer-wishlist/pkg/db/models"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errInvalidOwner = errors.New("wishlist owner is invalid")

// Repository encapsulates wishlist persistence.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Add inserts one row for owner. It returns false when the owner already has
// the product.
func (r *Repository) Add(ctx context.Context, productID int64, owner identity.Identity) (bool, error) {
	row, err := newRow(productID, owner)
	if err != nil {
		return false, err
	}
	row.DateCreated = r.now().UTC()

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IsInWishlist reports whether owner has saved productID.
func (r *Repository) IsInWishlist(ctx context.Context, productID int64, owner identity.Identity) (bool, error) {
	q, err := r.ownedBy(ctx, owner)
	if err != nil {
		return false, err
	}
	var count int64
	if err := q.Where("product_id = ?", productID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes productID from a user's wishlist. Guest rows are never touched.
func (r *Repository) Delete(ctx context.Context, productID, userID int64) (bool, error) {
	if userID <= 0 {
		return false, errInvalidOwner
	}
	res := r.db.WithContext(ctx).
		Where("product_id = ? AND user_id = ?", productID, userID).
		Delete(&models.WishlistEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListByUser returns the user's entries, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]Entry, error) {
	if userID <= 0 {
		return nil, errInvalidOwner
	}
	var rows []models.WishlistEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date_created DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, toEntry(row))
	}
	return entries, nil
}

// FilterExisting returns the candidates that appear anywhere in the table,
// across all owners, most recently saved first.
func (r *Repository) FilterExisting(ctx context.Context, candidates []int64) ([]int64, error) {
	ids := sanitizeProductIDs(candidates)
	if len(ids) == 0 {
		return []int64{}, nil
	}

	found := []int64{}
	err := r.db.WithContext(ctx).
		Model(&models.WishlistEntry{}).
		Where("product_id IN ?", ids).
		Group("product_id").
		Order("MAX(date_created) DESC").
		Order("product_id DESC").
		Pluck("product_id", &found).Error
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Merge folds the guest rows for token into userID. Products the user already
// has collapse into the user's row; the rest are reassigned in place so
// their date_created survives. Per-row failures are collected into
// MergeResult.Failures and do not stop the loop.
func (r *Repository) Merge(ctx context.Context, token string, userID int64) (MergeResult, error) {
	var result MergeResult
	if !identity.Guest(token).Valid() || userID <= 0 {
		return result, errInvalidOwner
	}

	var guestProducts []int64
	if err := r.db.WithContext(ctx).
		Model(&models.WishlistEntry{}).
		Where("token = ?", token).
		Order("id ASC").
		Pluck("product_id", &guestProducts).Error; err != nil {
		return result, fmt.Errorf("fetch guest products: %w", err)
	}
	if len(guestProducts) == 0 {
		return result, nil
	}

	var userProducts []int64
	if err := r.db.WithContext(ctx).
		Model(&models.WishlistEntry{}).
		Where("user_id = ?", userID).
		Pluck("product_id", &userProducts).Error; err != nil {
		return result, fmt.Errorf("fetch user products: %w", err)
	}

	owned := make(map[int64]struct{}, len(userProducts))
	for _, id := range userProducts {
		owned[id] = struct{}{}
	}

	for _, productID := range guestProducts {
		if _, dup := owned[productID]; dup {
			if err := r.deleteGuestRow(ctx, token, productID); err != nil {
				result.Failures = multierr.Append(result.Failures, err)
				continue
			}
			result.Collapsed++
			continue
		}

		err := r.db.WithContext(ctx).
			Model(&models.WishlistEntry{}).
			Where("token = ? AND product_id = ?", token, productID).
			Updates(map[string]any{"user_id": userID, "token": nil}).Error
		switch {
		case err == nil:
			owned[productID] = struct{}{}
			result.Reassigned++
		case db.IsUniqueViolation(err, ""):
			// The user gained this product after we read their rows.
			if delErr := r.deleteGuestRow(ctx, token, productID); delErr != nil {
				result.Failures = multierr.Append(result.Failures, delErr)
				continue
			}
			owned[productID] = struct{}{}
			result.Collapsed++
		default:
			result.Failures = multierr.Append(result.Failures, fmt.Errorf("reassign product %d: %w", productID, err))
		}
	}
	return result, nil
}

// PurgeGuestsBefore deletes guest rows created before cutoff. User rows are
// never touched.
func (r *Repository) PurgeGuestsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("token IS NOT NULL AND user_id IS NULL AND date_created < ?", cutoff.UTC()).
		Delete(&models.WishlistEntry{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *Repository) deleteGuestRow(ctx context.Context, token string, productID int64) error {
	err := r.db.WithContext(ctx).
		Where("token = ? AND product_id = ?", token, productID).
		Delete(&models.WishlistEntry{}).Error
	if err != nil {
		return fmt.Errorf("collapse product %d: %w", productID, err)
	}
	return nil
}

func (r *Repository) ownedBy(ctx context.Context, owner identity.Identity) (*gorm.DB, error) {
	q := r.db.WithContext(ctx).Model(&models.WishlistEntry{})
	if !owner.Valid() {
		return nil, errInvalidOwner
	}
	if userID, ok := owner.UserID(); ok {
		return q.Where("user_id = ?", userID), nil
	}
	token, _ := owner.Token()
	return q.Where("token = ?", token), nil
}

func newRow(productID int64, owner identity.Identity) (models.WishlistEntry, error) {
	if productID <= 0 {
		return models.WishlistEntry{}, fmt.Errorf("product id %d must be positive", productID)
	}
	if !owner.Valid() {
		return models.WishlistEntry{}, errInvalidOwner
	}
	row := models.WishlistEntry{ProductID: productID}
	if userID, ok := owner.UserID(); ok {
		row.UserID = &userID
	} else {
		token, _ := owner.Token()
		row.Token = &token
	}
	return row, nil
}

func toEntry(row models.WishlistEntry) Entry {
	e := Entry{ID: row.ID, ProductID: row.ProductID, DateCreated: row.DateCreated}
	switch {
	case row.UserID != nil:
		e.Owner = identity.User(*row.UserID)
	case row.Token != nil:
		e.Owner = identity.Guest(*row.Token)
	}
	return e
}

func sanitizeProductIDs(in []int64) []int64 {
	seen := make(map[int64]struct{}, len(in))
	out := make([]int64, 0, len(in))
	for _, id := range in {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
