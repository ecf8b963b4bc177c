package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sitewand/sitewand-backend/internal/common"
	"github.com/sitewand/sitewand-backend/internal/domain"
)

// PageRepository page data access. CommitEdit is the single write path
// for applied edits so content, version, revision snapshot, and audit
// record always land in one transaction.
type PageRepository interface {
	FindByID(siteID, pageID string) (*domain.Page, error)
	FindFirstBySite(siteID string) (*domain.Page, error)
	ListBySite(siteID string) ([]*domain.Page, error)
	Create(page *domain.Page) error
	CommitEdit(page *domain.Page, revision *domain.PageRevision, record *domain.EditRecord) error
}

type pageRepository struct {
	db *gorm.DB
}

// NewPageRepository creates a new PageRepository
func NewPageRepository(db *gorm.DB) PageRepository {
	return &pageRepository{db: db}
}

func (r *pageRepository) FindByID(siteID, pageID string) (*domain.Page, error) {
	var page domain.Page
	err := r.db.Where("site_id = ? AND id = ?", siteID, pageID).First(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrPageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *pageRepository) FindFirstBySite(siteID string) (*domain.Page, error) {
	var page domain.Page
	err := r.db.Where("site_id = ?", siteID).Order("created_at ASC").First(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrPageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *pageRepository) ListBySite(siteID string) ([]*domain.Page, error) {
	var pages []*domain.Page
	err := r.db.Where("site_id = ?", siteID).Order("created_at ASC").Find(&pages).Error
	return pages, err
}

func (r *pageRepository) Create(page *domain.Page) error {
	return r.db.Create(page).Error
}

// CommitEdit persists an applied edit atomically: the updated page
// content and version, the pre-edit revision snapshot, and, when the
// apply confirms a prior proposal, the edit record transition. Either
// everything commits or nothing does.
func (r *pageRepository) CommitEdit(page *domain.Page, revision *domain.PageRevision, record *domain.EditRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Guarded by the version the apply was computed against, so two
		// racing applies cannot both land on the same base content.
		res := tx.Model(&domain.Page{}).
			Where("id = ? AND version = ?", page.ID, page.Version-1).
			Updates(map[string]interface{}{
				"content": page.Content,
				"version": page.Version,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return common.ErrStaleApply
		}

		if err := tx.Create(revision).Error; err != nil {
			return err
		}

		if record != nil {
			now := time.Now()
			if err := tx.Model(&domain.EditRecord{}).
				Where("id = ? AND status = ?", record.ID, domain.EditPending).
				Updates(map[string]interface{}{
					"status":        domain.EditApplied,
					"content_after": record.ContentAfter,
					"resolved_at":   now,
				}).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
