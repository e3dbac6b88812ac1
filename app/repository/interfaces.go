package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kmathenge/powervend/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetWithDevices(id uint) (*models.User, error)
	Update(user *models.User) error
	ApplyPatch(id uint, patch UserPatch) (*models.User, error)
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	SetActive(id uint, active bool) (*models.User, error)
	SetRole(id uint, role string) (*models.User, error)
	HasTransactions(id uint) (bool, error)
}

// DeviceRepository defines the interface for meter directory operations
type DeviceRepository interface {
	Create(device *models.Device) error
	GetByDeviceID(deviceID string) (*models.Device, error)
	GetByUserID(userID uint) ([]models.Device, error)
	GetPrimaryByUserID(userID uint) (*models.Device, error)
	List(offset, limit int) ([]models.Device, error)
	Count() (int64, error)
	CountOnline() (int64, error)
	Assign(deviceID string, userID uint, deviceName string, makePrimary bool) (*models.Device, error)
	Unassign(deviceID string) (*models.Device, error)
	MakePrimary(deviceID string) (*models.Device, error)
	UpdateName(deviceID, deviceName string) (*models.Device, error)
	UpdateTelemetry(deviceID string, isOnline bool, signalStrength *int) (*models.Device, error)
	GenerateMeterID() (string, error)
}

// RateRepository defines the interface for rate catalog operations
type RateRepository interface {
	Create(plan *models.RatePlan) error
	GetByID(id uint) (*models.RatePlan, error)
	GetActive() (*models.RatePlan, error)
	List(offset, limit int) ([]models.RatePlan, error)
	Activate(id uint) (*models.RatePlan, error)
	ApplyPatch(id uint, patch RatePatch) (*models.RatePlan, error)
	Delete(id uint) error
}

// TransactionRepository defines the read/report interface over the
// transactions table. Mutations go through the vending engine only.
type TransactionRepository interface {
	GetByID(id uint) (*models.Transaction, error)
	GetByReference(ref string) (*models.Transaction, error)
	ListByUser(userID uint, offset, limit int, status string) ([]models.Transaction, error)
	List(filter TransactionFilter, offset, limit int) ([]models.Transaction, error)
	LastCompletedForDevice(deviceID string) (*models.Transaction, error)
	Count() (int64, error)
	Summary(filter TransactionFilter) (*TransactionSummary, error)
}

// SettingRepository defines the interface for system settings
type SettingRepository interface {
	Create(setting *models.SystemSetting) error
	GetByKey(key string) (*models.SystemSetting, error)
	List(offset, limit int) ([]models.SystemSetting, error)
	Update(setting *models.SystemSetting) error
	Delete(key string) error
}

// UserPatch carries an apply-only-set-fields update for a user. Nil fields
// stay untouched.
type UserPatch struct {
	Email       *string
	FullName    *string
	PhoneNumber *string
	Password    *string
	Role        *string
	IsActive    *bool
	Balance     *decimal.Decimal
}

// RatePatch carries an apply-only-set-fields update for a rate plan.
// Setting IsActive=true deactivates every other plan in the same write.
type RatePatch struct {
	RateName      *string
	PricePerUnit  *decimal.Decimal
	IsActive      *bool
	EffectiveDate *time.Time
}

// TransactionFilter narrows admin transaction listings and summaries.
type TransactionFilter struct {
	Status        string
	PaymentMethod string
	StartDate     *time.Time
	EndDate       *time.Time
}

// TransactionSummary aggregates purchase totals for reporting.
type TransactionSummary struct {
	TotalCount  int64           `json:"total_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalUnits  decimal.Decimal `json:"total_units"`
	Completed   int64           `json:"completed"`
	Pending     int64           `json:"pending"`
	Failed      int64           `json:"failed"`
}

// Repositories struct holds all repository instances
type Repositories struct {
	User        UserRepository
	Device      DeviceRepository
	Rate        RateRepository
	Transaction TransactionRepository
	Setting     SettingRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Device:      NewDeviceRepository(db),
		Rate:        NewRateRepository(db),
		Transaction: NewTransactionRepository(db),
		Setting:     NewSettingRepository(db),
	}
}
