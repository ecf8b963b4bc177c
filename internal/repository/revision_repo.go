package repository

import (
	"gorm.io/gorm"

	"github.com/sitewand/sitewand-backend/internal/domain"
)

// RevisionRepository page revision history access
type RevisionRepository interface {
	FindByPageID(pageID string, limit int) ([]*domain.PageRevision, error)
	FindByPageIDAndVersion(pageID string, version uint) (*domain.PageRevision, error)
}

type revisionRepository struct {
	db *gorm.DB
}

// NewRevisionRepository creates a new RevisionRepository
func NewRevisionRepository(db *gorm.DB) RevisionRepository {
	return &revisionRepository{db: db}
}

func (r *revisionRepository) FindByPageID(pageID string, limit int) ([]*domain.PageRevision, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var revisions []*domain.PageRevision
	err := r.db.Where("page_id = ?", pageID).Order("version DESC").Limit(limit).Find(&revisions).Error
	return revisions, err
}

func (r *revisionRepository) FindByPageIDAndVersion(pageID string, version uint) (*domain.PageRevision, error) {
	var revision domain.PageRevision
	err := r.db.Where("page_id = ? AND version = ?", pageID, version).First(&revision).Error
	if err != nil {
		return nil, err
	}
	return &revision, nil
}
