package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MeterIDPrefix is the fixed prefix of every device identifier; the remainder
// is MeterIDDigits random digits. Identifiers are never reused.
const (
	MeterIDPrefix = "MTR"
	MeterIDDigits = 7
)

// Device is an addressable prepaid meter. UnitBalance counts electricity
// units (kWh). A device belongs to at most one user; unassigned devices have
// UserID nil. At most one device per user carries IsPrimary.
type Device struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	DeviceID       string          `gorm:"uniqueIndex;type:varchar(50);not null" json:"device_id"`
	UserID         *uint           `gorm:"index;default:null" json:"user_id"`
	DeviceName     string          `gorm:"type:varchar(100);default:null" json:"device_name"`
	IsOnline       bool            `gorm:"not null;default:false" json:"is_online"`
	LastSeen       *time.Time      `gorm:"type:timestamp;default:null" json:"last_seen"`
	UnitBalance    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_balance"`
	SignalStrength *int            `gorm:"default:null" json:"signal_strength"`
	IsPrimary      bool            `gorm:"not null;default:false" json:"is_primary"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Device) TableName() string {
	return "devices"
}

// BelongsTo reports whether the device is assigned to the given user.
func (d *Device) BelongsTo(userID uint) bool {
	return d.UserID != nil && *d.UserID == userID
}
