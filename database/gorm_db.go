package database

import (
	"fmt"

	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fernandosena/bot-whatsapp/models"
	"github.com/fernandosena/bot-whatsapp/utils"
)

// GormDB is the optional MSSQL reporting mirror. The service is fully
// functional without it; it exists so delivery history can be consumed
// by external reporting alongside other systems.
type GormDB struct {
	db *gorm.DB
}

// NewGormDB connects to the reporting database and runs migrations
func NewGormDB(server, database, username, password string) (*GormDB, error) {
	dsn := fmt.Sprintf("sqlserver://%s:%s@%s?database=%s", username, password, server, database)

	db, err := gorm.Open(sqlserver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MSSQL: %w", err)
	}

	gormDB := &GormDB{db: db}
	if err := gormDB.db.AutoMigrate(&models.Delivery{}); err != nil {
		return nil, fmt.Errorf("failed to migrate reporting database: %w", err)
	}

	utils.Logger.Info("Reporting database connected")
	return gormDB, nil
}

// MirrorDelivery writes a copy of one delivery record to the mirror.
// The copy gets its own primary key; the local log remains authoritative.
func (gdb *GormDB) MirrorDelivery(delivery *models.Delivery) error {
	mirrored := *delivery
	mirrored.ID = 0
	if result := gdb.db.Create(&mirrored); result.Error != nil {
		return fmt.Errorf("failed to mirror delivery: %w", result.Error)
	}
	return nil
}

// Close closes the underlying connection pool
func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
