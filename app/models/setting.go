package models

import "time"

// SystemSetting is a free-form key/value configuration row maintained by
// admins. Not consulted by the vending engine itself; the active rate plan is
// the only purchase tunable.
type SystemSetting struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SettingKey   string    `gorm:"uniqueIndex;type:varchar(100);not null" json:"setting_key"`
	SettingValue string    `gorm:"type:varchar(255);not null" json:"setting_value"`
	Description  string    `gorm:"type:text;default:null" json:"description"`
	UpdatedBy    *uint     `gorm:"default:null" json:"updated_by"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
