package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sitewand/sitewand-backend/internal/common"
	"github.com/sitewand/sitewand-backend/internal/domain"
)

// EditRecordRepository edit session audit row access
type EditRecordRepository interface {
	Create(record *domain.EditRecord) error
	FindByID(id string) (*domain.EditRecord, error)
	ListBySite(siteID string, status domain.EditStatus, limit, offset int) ([]*domain.EditRecord, int64, error)
	MarkRejected(id, reason string) error
	MarkExpired(id string) error
	CountAppliedSince(magicLinkID string, since time.Time) (int64, error)
}

type editRecordRepository struct {
	db *gorm.DB
}

// NewEditRecordRepository creates a new EditRecordRepository
func NewEditRecordRepository(db *gorm.DB) EditRecordRepository {
	return &editRecordRepository{db: db}
}

func (r *editRecordRepository) Create(record *domain.EditRecord) error {
	return r.db.Create(record).Error
}

func (r *editRecordRepository) FindByID(id string) (*domain.EditRecord, error) {
	var record domain.EditRecord
	err := r.db.Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrEditNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *editRecordRepository) ListBySite(siteID string, status domain.EditStatus, limit, offset int) ([]*domain.EditRecord, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := r.db.Model(&domain.EditRecord{}).Where("site_id = ?", siteID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []*domain.EditRecord
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&records).Error
	return records, total, err
}

// MarkRejected transitions a pending record to rejected. Terminal
// records are never revisited, enforced by the status guard.
func (r *editRecordRepository) MarkRejected(id, reason string) error {
	now := time.Now()
	result := r.db.Model(&domain.EditRecord{}).
		Where("id = ? AND status = ?", id, domain.EditPending).
		Updates(map[string]interface{}{
			"status":        domain.EditRejected,
			"reject_reason": reason,
			"resolved_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrEditNotPending
	}
	return nil
}

func (r *editRecordRepository) MarkExpired(id string) error {
	now := time.Now()
	return r.db.Model(&domain.EditRecord{}).
		Where("id = ? AND status = ?", id, domain.EditPending).
		Updates(map[string]interface{}{
			"status":      domain.EditExpired,
			"resolved_at": now,
		}).Error
}

// CountAppliedSince counts applied edits for a magic link inside a
// rolling window; used for the daily quota.
func (r *editRecordRepository) CountAppliedSince(magicLinkID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&domain.EditRecord{}).
		Where("magic_link_id = ? AND status = ? AND resolved_at >= ?",
			magicLinkID, domain.EditApplied, since).
		Count(&count).Error
	return count, err
}
