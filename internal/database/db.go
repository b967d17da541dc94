package database

import (
	"backoffice/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.Distributor{},
		&model.Branch{},
		&model.Permission{},
		&model.Role{},
		&model.RolePermission{},
		&model.User{},
		&model.UserRole{},
		&model.RefreshToken{},
		&model.Category{},
		&model.Product{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.Payment{},
		&model.InvoiceSequence{},
		&model.AuditLog{},
	)
	if err != nil {
		zap.L().Warn("failed to auto-migrate models", zap.Error(err))
	}

	return db, nil
}
