package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/rosterhq/roster/internal/models"
)

// AutoMigrate applies schema migrations for the record store.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	return db.AutoMigrate(
		&models.Organization{},
		&models.JoinToken{},
		&models.Membership{},
		&models.UserProfile{},
		&models.AuditLog{},
	)
}
