package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting stores one settings section as a JSON document.
type Setting struct {
	Key       string         `gorm:"column:key;primaryKey;type:varchar(64)"`
	Value     datatypes.JSON `gorm:"column:value;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (Setting) TableName() string { return "wishlist_settings" }

// All lists every model owned by this service, in creation order.
func All() []any {
	return []any{&WishlistEntry{}, &Setting{}}
}
