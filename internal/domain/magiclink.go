package domain

import "time"

// MagicLink is a scoped, tokenized, time-boxed delegation of limited
// edit capability to a non-authenticated collaborator. Only the SHA-256
// hash of the bearer token is persisted; the raw token is shown once at
// creation.
type MagicLink struct {
	ID           string        `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	SiteID       string        `gorm:"column:site_id;index;type:varchar(36)" json:"site_id"`
	TokenHash    string        `gorm:"column:token_hash;uniqueIndex;type:char(64)" json:"-"`
	Label        string        `gorm:"column:label;type:varchar(255)" json:"label"`
	Capabilities CapabilitySet `gorm:"column:capabilities;type:json;serializer:json" json:"capabilities"`
	Active       bool          `gorm:"column:active;default:true" json:"active"`
	ExpiresAt    *time.Time    `gorm:"column:expires_at" json:"expires_at,omitempty"`
	UsageCount   int           `gorm:"column:usage_count;default:0" json:"usage_count"`
	LastUsedAt   *time.Time    `gorm:"column:last_used_at" json:"last_used_at,omitempty"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (MagicLink) TableName() string { return "magic_links" }

// Expired reports whether the link's expiry has passed. Expiry is
// enforced at validation time; the row itself is never mutated for it.
func (l *MagicLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}
