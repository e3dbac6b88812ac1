package repository

import (
	"gorm.io/gorm"

	"github.com/kmathenge/powervend/app/models"
)

// settingRepository implements the SettingRepository interface
type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new setting repository instance
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

// Create stores a new system setting
func (r *settingRepository) Create(setting *models.SystemSetting) error {
	return r.db.Create(setting).Error
}

// GetByKey retrieves a setting by its key
func (r *settingRepository) GetByKey(key string) (*models.SystemSetting, error) {
	var setting models.SystemSetting
	err := r.db.Where("setting_key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// List retrieves settings ordered by key
func (r *settingRepository) List(offset, limit int) ([]models.SystemSetting, error) {
	var settings []models.SystemSetting
	err := r.db.Order("setting_key").Offset(offset).Limit(limit).Find(&settings).Error
	return settings, err
}

// Update saves changes to a setting
func (r *settingRepository) Update(setting *models.SystemSetting) error {
	return r.db.Save(setting).Error
}

// Delete removes a setting by key
func (r *settingRepository) Delete(key string) error {
	res := r.db.Where("setting_key = ?", key).Delete(&models.SystemSetting{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
