package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sitewand/sitewand-backend/internal/common"
	"github.com/sitewand/sitewand-backend/internal/domain"
)

// MagicLinkRepository magic link data access
type MagicLinkRepository interface {
	Create(link *domain.MagicLink) error
	FindByID(id string) (*domain.MagicLink, error)
	FindActiveByTokenHash(siteID, tokenHash string) (*domain.MagicLink, error)
	ListBySite(siteID string) ([]*domain.MagicLink, error)
	IncrementUsage(id string, usedAt time.Time) error
	Deactivate(id string) error
}

type magicLinkRepository struct {
	db *gorm.DB
}

// NewMagicLinkRepository creates a new MagicLinkRepository
func NewMagicLinkRepository(db *gorm.DB) MagicLinkRepository {
	return &magicLinkRepository{db: db}
}

func (r *magicLinkRepository) Create(link *domain.MagicLink) error {
	return r.db.Create(link).Error
}

func (r *magicLinkRepository) FindByID(id string) (*domain.MagicLink, error) {
	var link domain.MagicLink
	err := r.db.Where("id = ?", id).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *magicLinkRepository) FindActiveByTokenHash(siteID, tokenHash string) (*domain.MagicLink, error) {
	var link domain.MagicLink
	err := r.db.Where("site_id = ? AND token_hash = ? AND active = ?", siteID, tokenHash, true).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *magicLinkRepository) ListBySite(siteID string) ([]*domain.MagicLink, error) {
	var links []*domain.MagicLink
	err := r.db.Where("site_id = ?", siteID).Order("created_at DESC").Find(&links).Error
	return links, err
}

func (r *magicLinkRepository) IncrementUsage(id string, usedAt time.Time) error {
	return r.db.Model(&domain.MagicLink{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": usedAt,
		}).Error
}

// Deactivate is one-way; there is no path back to active.
func (r *magicLinkRepository) Deactivate(id string) error {
	return r.db.Model(&domain.MagicLink{}).
		Where("id = ?", id).
		Update("active", false).Error
}
