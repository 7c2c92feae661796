package db

import (
	"propfirm/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Challenge{},
		&models.Account{},
		&models.Trade{},
		&models.EquitySample{},
		&models.Violation{},
		&models.PhaseTransition{},
		&models.DailyComplianceRecord{},
		&models.ReconciliationAnomaly{},
		&models.AuditLog{},
	)
}
