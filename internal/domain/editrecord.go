package domain

import "time"

// EditStatus is the lifecycle state of one edit session
type EditStatus string

const (
	EditPending  EditStatus = "pending"
	EditApplied  EditStatus = "applied"
	EditRejected EditStatus = "rejected"
	EditExpired  EditStatus = "expired"
)

// Terminal reports whether the status can no longer change
func (s EditStatus) Terminal() bool {
	return s == EditApplied || s == EditRejected || s == EditExpired
}

// EditRecord is the audit row for one edit session: the request text,
// the proposed operations, and before/after snapshots. Created at
// proposal time (best-effort) and transitioned exactly once to a
// terminal status.
type EditRecord struct {
	ID             string     `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	SiteID         string     `gorm:"column:site_id;index;type:varchar(36)" json:"site_id"`
	PageID         string     `gorm:"column:page_id;index;type:varchar(36)" json:"page_id"`
	MagicLinkID    *string    `gorm:"column:magic_link_id;index;type:varchar(36)" json:"magic_link_id,omitempty"`
	AccessType     string     `gorm:"column:access_type;type:varchar(20)" json:"access_type"` // owner, magic_link
	RequestText    string     `gorm:"column:request_text;type:text" json:"request_text"`
	Interpretation string     `gorm:"column:interpretation;type:text" json:"interpretation"`
	Operations     string     `gorm:"column:operations;type:json" json:"operations"`
	RiskLevel      string     `gorm:"column:risk_level;type:varchar(10)" json:"risk_level"`
	Summary        string     `gorm:"column:summary;type:text" json:"summary"`
	ContentBefore  string     `gorm:"column:content_before;type:json" json:"content_before,omitempty"`
	ContentAfter   string     `gorm:"column:content_after;type:json" json:"content_after,omitempty"`
	BaseVersion    uint       `gorm:"column:base_version" json:"base_version"`
	Status         EditStatus `gorm:"column:status;type:varchar(10);index" json:"status"`
	RejectReason   string     `gorm:"column:reject_reason;type:text" json:"reject_reason,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	ResolvedAt     *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
}

func (EditRecord) TableName() string { return "edit_records" }
