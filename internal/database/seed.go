package database

import (
	"backoffice/internal/model"
	"backoffice/internal/permission"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedPermissions upserts the static permission catalog. Codes are the
// conflict key so re-running on startup refreshes names without duplicating
// rows, and codes removed from the catalog are left untouched.
func SeedPermissions(db *gorm.DB) error {
	defs := permission.All()
	rows := make([]model.Permission, 0, len(defs))
	for _, d := range defs {
		rows = append(rows, model.Permission{
			Code:     d.Code,
			Name:     d.Name,
			Module:   d.Module,
			Action:   d.Action,
			IsSystem: true,
		})
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "module", "action"}),
	}).Create(&rows).Error
	if err != nil {
		return err
	}

	zap.L().Info("permission catalog seeded", zap.Int("count", len(rows)))
	return nil
}
