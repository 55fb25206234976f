package models

import "time"

// Analytics holds the click statistics of one Link.
// FirstClickAt is written once; LastClickAt and TotalClicks move on every click.
type Analytics struct {
	ID           uint       `gorm:"primaryKey"`
	URLID        uint       `gorm:"column:url_id;uniqueIndex;not null"`
	Link         Link       `gorm:"foreignKey:URLID;constraint:OnDelete:CASCADE"`
	FirstClickAt *time.Time `gorm:"index"`
	LastClickAt  *time.Time `gorm:"index"`
	TotalClicks  int64      `gorm:"not null;default:0"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
}

func (Analytics) TableName() string { return "analytics" }

// ClickEvent is a raw click passed from the redirect handler to the click workers.
type ClickEvent struct {
	LinkID    uint
	ShortCode string
	Timestamp time.Time
	UserAgent string
	IPAddress string
}
