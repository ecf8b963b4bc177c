package domain

import "time"

// Site is the owning scope for pages, magic links, and edit records
type Site struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	OwnerID   string    `gorm:"column:owner_id;index;type:varchar(64)" json:"owner_id"`
	Name      string    `gorm:"column:name;type:varchar(255)" json:"name"`
	Subdomain string    `gorm:"column:subdomain;uniqueIndex;type:varchar(63)" json:"subdomain"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Site) TableName() string { return "sites" }
