package models

import "time"

// Link is a short URL record. ShortCode, LongURL, IsProduct and CreatedAt
// never change after creation; IsActive and ClickCount are owned by the registry.
type Link struct {
	ID         uint       `gorm:"primaryKey"`
	ShortCode  string     `gorm:"uniqueIndex;size:10;not null"`
	LongURL    string     `gorm:"size:2048;not null"`
	IsProduct  bool       `gorm:"not null;default:false"`
	ExpiresAt  *time.Time `gorm:"index"`
	IsActive   bool       `gorm:"not null;default:true;index"`
	ClickCount int64      `gorm:"not null;default:0"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index"`
}

// Live reports whether the link may be resolved at instant now.
func (l *Link) Live(now time.Time) bool {
	return l.IsActive && (l.ExpiresAt == nil || l.ExpiresAt.After(now))
}
