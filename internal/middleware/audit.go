package middleware

import (
	"time"

	"gorm.io/gorm"

	"github.com/sitewand/sitewand-backend/pkg/logger"
)

// AuditLog records sensitive operations: magic link creation and
// revocation, edit applies and rejections.
type AuditLog struct {
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	ActorID    string `gorm:"column:actor_id;index" json:"actor_id"`
	ActorType  string `gorm:"column:actor_type" json:"actor_type"` // owner, magic_link
	Action     string `gorm:"column:action;index" json:"action"`   // link_create, link_revoke, edit_apply, edit_reject
	Resource   string `gorm:"column:resource" json:"resource"`     // magic_link, page, edit_record
	ResourceID string `gorm:"column:resource_id" json:"resource_id"`
	SiteID     string `gorm:"column:site_id;index" json:"site_id"`
	Details    string `gorm:"column:details;type:text" json:"details"`
	ClientIP   string `gorm:"column:client_ip" json:"client_ip"`
	RequestID  string `gorm:"column:request_id" json:"request_id"`

	ID int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditLogger handles writing audit log entries
type AuditLogger struct {
	db *gorm.DB
}

// NewAuditLogger creates a new AuditLogger
func NewAuditLogger(db *gorm.DB) *AuditLogger {
	if db != nil {
		_ = db.AutoMigrate(&AuditLog{})
	}
	return &AuditLogger{db: db}
}

// Log writes an audit entry to the database
func (a *AuditLogger) Log(entry *AuditLog) {
	if a.db == nil {
		return
	}

	// Write async to avoid blocking the request
	go func() {
		if err := a.db.Create(entry).Error; err != nil {
			logger.Get().Error().Err(err).
				Str("action", entry.Action).
				Str("actor_id", entry.ActorID).
				Msg("audit log write failed")
		}
	}()
}
