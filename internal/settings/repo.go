package settings

import (
	"context"
	"time"

	"github.com/angelmondragon/customer-wishlist/pkg/db/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Section keys in wishlist_settings.
const (
	SectionProduct   = "product"
	SectionMyAccount = "my_account"
)

// Repository persists settings sections as JSON documents.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LoadAll returns every stored section keyed by section name.
func (r *Repository) LoadAll(ctx context.Context) (map[string]datatypes.JSON, error) {
	var rows []models.Setting
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]datatypes.JSON, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// SaveAll upserts the given sections in one transaction.
func (r *Repository) SaveAll(ctx context.Context, sections map[string]datatypes.JSON) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for key, value := range sections {
			row := models.Setting{Key: key, Value: value, UpdatedAt: now}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
