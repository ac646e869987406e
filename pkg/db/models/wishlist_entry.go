package models

import "time"

// WishlistEntry is one saved product. Exactly one of UserID and Token is set.
type WishlistEntry struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID   int64     `gorm:"column:product_id;not null;index:wishlist_entries_product_id_idx;uniqueIndex:wishlist_entries_user_product_key,priority:2,where:user_id IS NOT NULL;uniqueIndex:wishlist_entries_token_product_key,priority:2,where:token IS NOT NULL"`
	DateCreated time.Time `gorm:"column:date_created;not null;autoCreateTime"`
	Token       *string   `gorm:"column:token;type:varchar(64);uniqueIndex:wishlist_entries_token_product_key,priority:1,where:token IS NOT NULL"`
	UserID      *int64    `gorm:"column:user_id;index:wishlist_entries_user_id_idx;uniqueIndex:wishlist_entries_user_product_key,priority:1,where:user_id IS NOT NULL"`
}

func (WishlistEntry) TableName() string { return "wishlist_entries" }
