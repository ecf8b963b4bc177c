package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/sitewand/sitewand-backend/internal/common"
	"github.com/sitewand/sitewand-backend/internal/domain"
)

// SiteRepository site data access
type SiteRepository interface {
	FindByID(id string) (*domain.Site, error)
	FindByOwner(ownerID string) ([]*domain.Site, error)
	Create(site *domain.Site) error
}

type siteRepository struct {
	db *gorm.DB
}

// NewSiteRepository creates a new SiteRepository
func NewSiteRepository(db *gorm.DB) SiteRepository {
	return &siteRepository{db: db}
}

func (r *siteRepository) FindByID(id string) (*domain.Site, error) {
	var site domain.Site
	err := r.db.Where("id = ?", id).First(&site).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrSiteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *siteRepository) FindByOwner(ownerID string) ([]*domain.Site, error) {
	var sites []*domain.Site
	err := r.db.Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&sites).Error
	return sites, err
}

func (r *siteRepository) Create(site *domain.Site) error {
	return r.db.Create(site).Error
}
