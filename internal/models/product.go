package models

import "time"

// ProductMetadata is the stored extraction result for a product Link.
// Nil fields were never extracted.
type ProductMetadata struct {
	ID               uint      `gorm:"primaryKey"`
	URLID            uint      `gorm:"column:url_id;uniqueIndex;not null"`
	Link             Link      `gorm:"foreignKey:URLID;constraint:OnDelete:CASCADE"`
	ProductName      *string   `gorm:"size:512"`
	Price            *string   `gorm:"size:64"`
	BrandName        *string   `gorm:"size:255"`
	FeaturedImageURL *string   `gorm:"size:2048"`
	ScrapedAt        time.Time `gorm:"not null;index"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

func (ProductMetadata) TableName() string { return "product_metadata" }

// ProductFields is a best-effort extraction result; nil means "not found on the page".
type ProductFields struct {
	ProductName      *string
	Price            *string
	BrandName        *string
	FeaturedImageURL *string
}

// Empty reports whether no field was extracted.
func (f ProductFields) Empty() bool {
	return f.ProductName == nil && f.Price == nil && f.BrandName == nil && f.FeaturedImageURL == nil
}
