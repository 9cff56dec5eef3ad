package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fernandosena/bot-whatsapp/models"
	"github.com/fernandosena/bot-whatsapp/utils"
)

// Database is the local SQLite delivery log. When a reporting mirror is
// configured, every record is also written through to it best-effort.
type Database struct {
	db     *sql.DB
	gormDB *GormDB // optional, may be nil
}

// NewDatabase opens (or creates) the delivery log under dbDir
func NewDatabase(dbDir string, gormDB *GormDB) (*Database, error) {
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dbDir, "deliveries.db")+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	database := &Database{db: db, gormDB: gormDB}
	if err := database.init(); err != nil {
		return nil, err
	}

	return database, nil
}

// init initializes the database tables
func (d *Database) init() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS deliveries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			phone TEXT NOT NULL,
			jid TEXT NOT NULL,
			name TEXT,
			file_name TEXT,
			transcoded INTEGER NOT NULL DEFAULT 0,
			success INTEGER NOT NULL,
			error TEXT,
			timestamp TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create deliveries table: %w", err)
	}

	utils.Logger.Info("Delivery log initialized")
	return nil
}

// RecordDelivery appends one delivery attempt to the log. Mirror failures
// are warn-logged only; reporting never blocks delivery bookkeeping.
func (d *Database) RecordDelivery(delivery *models.Delivery) error {
	_, err := d.db.Exec(`
		INSERT INTO deliveries (phone, jid, name, file_name, transcoded, success, error, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, delivery.Phone, delivery.JID, delivery.Name, delivery.FileName,
		delivery.Transcoded, delivery.Success, delivery.Error, delivery.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}

	if d.gormDB != nil {
		if err := d.gormDB.MirrorDelivery(delivery); err != nil {
			utils.Logger.Warn("Failed to mirror delivery to reporting database", "error", err)
		}
	}
	return nil
}

// GetRecentDeliveries retrieves the most recent delivery attempts
func (d *Database) GetRecentDeliveries(limit int) ([]models.Delivery, error) {
	rows, err := d.db.Query(`
		SELECT id, phone, jid, name, file_name, transcoded, success, error, timestamp, created_at
		FROM deliveries ORDER BY timestamp DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	return scanDeliveries(rows)
}

// GetDeliveriesByPhone retrieves delivery attempts for one recipient
func (d *Database) GetDeliveriesByPhone(phone string, limit int) ([]models.Delivery, error) {
	rows, err := d.db.Query(`
		SELECT id, phone, jid, name, file_name, transcoded, success, error, timestamp, created_at
		FROM deliveries WHERE phone = ? ORDER BY timestamp DESC LIMIT ?
	`, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	return scanDeliveries(rows)
}

func scanDeliveries(rows *sql.Rows) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	for rows.Next() {
		var dv models.Delivery
		var name, fileName, errMsg sql.NullString
		if err := rows.Scan(&dv.ID, &dv.Phone, &dv.JID, &name, &fileName,
			&dv.Transcoded, &dv.Success, &errMsg, &dv.Timestamp, &dv.CreatedAt); err != nil {
			utils.Logger.Warn("Failed to scan delivery row", "error", err)
			continue
		}
		dv.Name = name.String
		dv.FileName = fileName.String
		dv.Error = errMsg.String
		deliveries = append(deliveries, dv)
	}
	return deliveries, rows.Err()
}

// GetStats returns delivery counters
func (d *Database) GetStats() (*models.DeliveryStats, error) {
	var stats models.DeliveryStats

	if err := d.db.QueryRow("SELECT COUNT(*) FROM deliveries").Scan(&stats.TotalDeliveries); err != nil {
		return nil, fmt.Errorf("failed to count deliveries: %w", err)
	}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM deliveries WHERE success = 1").Scan(&stats.Delivered); err != nil {
		return nil, fmt.Errorf("failed to count delivered: %w", err)
	}
	stats.Failed = stats.TotalDeliveries - stats.Delivered

	today := time.Now().Truncate(24 * time.Hour)
	if err := d.db.QueryRow("SELECT COUNT(*) FROM deliveries WHERE timestamp >= ?", today).Scan(&stats.DeliveriesToday); err != nil {
		return nil, fmt.Errorf("failed to count today's deliveries: %w", err)
	}

	return &stats, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}
