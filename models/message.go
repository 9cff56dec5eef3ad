package models

import (
	"time"

	"gorm.io/gorm"
)

// Delivery represents one outbound voice-note delivery attempt
type Delivery struct {
	ID         uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Phone      string         `gorm:"size:20;not null;index" json:"phone"`
	JID        string         `gorm:"size:100;not null" json:"jid"`
	Name       string         `gorm:"size:100" json:"name,omitempty"`
	FileName   string         `gorm:"size:255" json:"file_name,omitempty"`
	Transcoded bool           `gorm:"not null;default:false" json:"transcoded"`
	Success    bool           `gorm:"not null;index" json:"success"`
	Error      string         `gorm:"type:text" json:"error,omitempty"`
	Timestamp  time.Time      `gorm:"not null;index" json:"timestamp"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Delivery model
func (Delivery) TableName() string {
	return "ptt_deliveries"
}

// DeliveryStats represents delivery statistics
type DeliveryStats struct {
	TotalDeliveries int64 `json:"total_deliveries"`
	Delivered       int64 `json:"delivered"`
	Failed          int64 `json:"failed"`
	DeliveriesToday int64 `json:"deliveries_today"`
}
