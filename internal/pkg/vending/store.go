package vending

import (
	"context"
	"errors"

	"github.com/kmathenge/powervend/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence surface the vending engine mutates balances
// through. Lookups return (nil, nil) when no row matches; errors are reserved
// for infrastructure failures. The ForUpdate variants must hold a row lock
// for the remainder of the enclosing WithinTx, so concurrent purchases
// against the same user or device serialize instead of losing updates.
type Store interface {
	// WithinTx runs fn against a transactional view of the store. If fn
	// returns an error nothing fn wrote becomes durable.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	UserForUpdate(id uint) (*models.User, error)
	DeviceForUpdate(deviceID string) (*models.Device, error)
	PrimaryDeviceForUpdate(userID uint) (*models.Device, error)
	ActiveRate() (*models.RatePlan, error)
	TransactionForUpdate(id uint) (*models.Transaction, error)
	ReferenceExists(ref string) (bool, error)

	CreateTransaction(t *models.Transaction) error
	SaveUser(u *models.User) error
	SaveDevice(d *models.Device) error
	SaveTransaction(t *models.Transaction) error
}

// gormStore backs Store with GORM. Row locks use SELECT ... FOR UPDATE.
type gormStore struct {
	db *gorm.DB
}

// NewStore wraps a GORM handle as a vending Store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) UserForUpdate(id uint) (*models.User, error) {
	var user models.User
	err := s.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) DeviceForUpdate(deviceID string) (*models.Device, error) {
	var device models.Device
	err := s.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("device_id = ?", deviceID).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *gormStore) PrimaryDeviceForUpdate(userID uint) (*models.Device, error) {
	var device models.Device
	err := s.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND is_primary = ?", userID, true).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *gormStore) ActiveRate() (*models.RatePlan, error) {
	var rate models.RatePlan
	err := s.db.Where("is_active = ?", true).First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (s *gormStore) TransactionForUpdate(id uint) (*models.Transaction, error) {
	var trx models.Transaction
	err := s.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&trx, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

func (s *gormStore) ReferenceExists(ref string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Transaction{}).Where("transaction_reference = ?", ref).Count(&count).Error
	return count > 0, err
}

func (s *gormStore) CreateTransaction(t *models.Transaction) error {
	return s.db.Create(t).Error
}

func (s *gormStore) SaveUser(u *models.User) error {
	return s.db.Save(u).Error
}

func (s *gormStore) SaveDevice(d *models.Device) error {
	return s.db.Save(d).Error
}

func (s *gormStore) SaveTransaction(t *models.Transaction) error {
	return s.db.Save(t).Error
}
