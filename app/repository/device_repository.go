package repository

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gorm.io/gorm"

	"github.com/kmathenge/powervend/app/models"
)

// ErrDeviceAssigned is returned when assigning a device that already belongs
// to a different user. Distinguishable from a missing device.
var ErrDeviceAssigned = errors.New("device is already assigned to another user")

// deviceRepository implements the DeviceRepository interface
type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository creates a new device repository instance
func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

// Create stores a new device. An empty DeviceID gets a generated meter ID;
// a device created as primary clears the flag on the owner's other devices.
func (r *deviceRepository) Create(device *models.Device) error {
	if device.DeviceID == "" {
		id, err := r.GenerateMeterID()
		if err != nil {
			return err
		}
		device.DeviceID = id
	}
	if device.DeviceName == "" {
		device.DeviceName = "Meter " + device.DeviceID
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if device.IsPrimary && device.UserID != nil {
			if err := clearPrimaryFlag(tx, *device.UserID); err != nil {
				return err
			}
		}
		return tx.Create(device).Error
	})
}

// GetByDeviceID retrieves a device by its meter identifier
func (r *deviceRepository) GetByDeviceID(deviceID string) (*models.Device, error) {
	var device models.Device
	err := r.db.Where("device_id = ?", deviceID).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// GetByUserID retrieves all devices assigned to a user
func (r *deviceRepository) GetByUserID(userID uint) ([]models.Device, error) {
	var devices []models.Device
	err := r.db.Where("user_id = ?", userID).Find(&devices).Error
	return devices, err
}

// GetPrimaryByUserID retrieves the user's primary device
func (r *deviceRepository) GetPrimaryByUserID(userID uint) (*models.Device, error) {
	var device models.Device
	err := r.db.Where("user_id = ? AND is_primary = ?", userID, true).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// List retrieves a paginated list of devices
func (r *deviceRepository) List(offset, limit int) ([]models.Device, error) {
	var devices []models.Device
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&devices).Error
	return devices, err
}

// Count returns the total number of devices
func (r *deviceRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Device{}).Count(&count).Error
	return count, err
}

// CountOnline returns the number of currently online devices
func (r *deviceRepository) CountOnline() (int64, error) {
	var count int64
	err := r.db.Model(&models.Device{}).Where("is_online = ?", true).Count(&count).Error
	return count, err
}

// Assign moves a device onto a user's account. A device held by a different
// user is refused. makePrimary clears the flag on the user's other devices in
// the same transaction, keeping the one-primary-per-user invariant.
func (r *deviceRepository) Assign(deviceID string, userID uint, deviceName string, makePrimary bool) (*models.Device, error) {
	var device models.Device
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", deviceID).First(&device).Error; err != nil {
			return err
		}
		if device.UserID != nil && *device.UserID != userID {
			return fmt.Errorf("device %s: %w", deviceID, ErrDeviceAssigned)
		}

		if makePrimary {
			if err := clearPrimaryFlag(tx, userID); err != nil {
				return err
			}
		}

		device.UserID = &userID
		device.IsPrimary = makePrimary
		if deviceName != "" {
			device.DeviceName = deviceName
		} else if device.DeviceName == "" {
			device.DeviceName = "Meter " + deviceID
		}

		return tx.Save(&device).Error
	})
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// Unassign detaches a device from its user
func (r *deviceRepository) Unassign(deviceID string) (*models.Device, error) {
	var device models.Device
	if err := r.db.Where("device_id = ?", deviceID).First(&device).Error; err != nil {
		return nil, err
	}
	device.UserID = nil
	device.IsPrimary = false
	if err := r.db.Save(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

// MakePrimary marks a device as its owner's primary meter
func (r *deviceRepository) MakePrimary(deviceID string) (*models.Device, error) {
	var device models.Device
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", deviceID).First(&device).Error; err != nil {
			return err
		}
		if device.UserID == nil {
			return gorm.ErrRecordNotFound
		}
		if err := clearPrimaryFlag(tx, *device.UserID); err != nil {
			return err
		}
		device.IsPrimary = true
		return tx.Save(&device).Error
	})
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// UpdateName renames a device
func (r *deviceRepository) UpdateName(deviceID, deviceName string) (*models.Device, error) {
	var device models.Device
	if err := r.db.Where("device_id = ?", deviceID).First(&device).Error; err != nil {
		return nil, err
	}
	device.DeviceName = deviceName
	if err := r.db.Save(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

// UpdateTelemetry records an online/signal report from the meter
func (r *deviceRepository) UpdateTelemetry(deviceID string, isOnline bool, signalStrength *int) (*models.Device, error) {
	var device models.Device
	if err := r.db.Where("device_id = ?", deviceID).First(&device).Error; err != nil {
		return nil, err
	}
	device.IsOnline = isOnline
	if signalStrength != nil {
		device.SignalStrength = signalStrength
	}
	now := time.Now().UTC()
	device.LastSeen = &now
	if err := r.db.Save(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

// GenerateMeterID produces a fresh MTR-prefixed identifier. Identifiers are
// never reused, so generation re-draws until no existing device matches.
func (r *deviceRepository) GenerateMeterID() (string, error) {
	return generateMeterID(func(id string) (bool, error) {
		var count int64
		if err := r.db.Model(&models.Device{}).Where("device_id = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	})
}

// generateMeterID draws random zero-padded meter ids until taken reports one
// unused.
func generateMeterID(taken func(id string) (bool, error)) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < models.MeterIDDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	for {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		id := fmt.Sprintf("%s%0*d", models.MeterIDPrefix, models.MeterIDDigits, n)

		used, err := taken(id)
		if err != nil {
			return "", err
		}
		if !used {
			return id, nil
		}
	}
}

// clearPrimaryFlag drops the primary flag from every device the user holds.
func clearPrimaryFlag(tx *gorm.DB, userID uint) error {
	return tx.Model(&models.Device{}).
		Where("user_id = ? AND is_primary = ?", userID, true).
		Update("is_primary", false).Error
}
