package migration

import (
	"gorm.io/gorm"

	"github.com/sitewand/sitewand-backend/internal/domain"
	"github.com/sitewand/sitewand-backend/pkg/logger"
)

// Run applies the schema migrations
func Run(db *gorm.DB) error {
	logger.Get().Info().Msg("running schema migrations")

	return db.AutoMigrate(
		&domain.Site{},
		&domain.Page{},
		&domain.PageRevision{},
		&domain.MagicLink{},
		&domain.EditRecord{},
	)
}
