package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kmathenge/powervend/app/models"
)

// ErrUserHasTransactions blocks hard deletion of accounts with an audit
// trail; callers deactivate instead.
var ErrUserHasTransactions = errors.New("user has transactions and cannot be deleted")

var (
	ErrUsernameTaken = errors.New("username already registered")
	ErrEmailTaken    = errors.New("email already registered")
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by their username
func (r *userRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetWithDevices retrieves a user together with all assigned devices
func (r *userRepository) GetWithDevices(id uint) (*models.User, error) {
	var user models.User
	err := r.db.Preload("Devices").First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// ApplyPatch applies only the set fields of patch to the user.
func (r *userRepository) ApplyPatch(id uint, patch UserPatch) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}

	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.FullName != nil {
		user.FullName = *patch.FullName
	}
	if patch.PhoneNumber != nil {
		user.PhoneNumber = *patch.PhoneNumber
	}
	if patch.Password != nil {
		if err := user.SetPassword(*patch.Password); err != nil {
			return nil, err
		}
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}
	if patch.Balance != nil {
		user.AccountBalance = *patch.Balance
	}

	if err := r.db.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete removes a user. Devices are detached, never deleted; users with
// transactions cannot be removed because the audit trail is immutable.
func (r *userRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}

		var txCount int64
		if err := tx.Model(&models.Transaction{}).Where("user_id = ?", id).Count(&txCount).Error; err != nil {
			return err
		}
		if txCount > 0 {
			return fmt.Errorf("user %d: %w", id, ErrUserHasTransactions)
		}

		if err := tx.Model(&models.Device{}).Where("user_id = ?", id).
			Updates(map[string]any{"user_id": nil, "is_primary": false}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, id).Error
	})
}

// List retrieves a paginated list of users
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// SetActive flips the is_active flag
func (r *userRepository) SetActive(id uint, active bool) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	user.IsActive = active
	if err := r.db.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetRole changes the user's role
func (r *userRepository) SetRole(id uint, role string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	user.Role = role
	if err := r.db.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// HasTransactions reports whether any transaction references the user.
func (r *userRepository) HasTransactions(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Transaction{}).Where("user_id = ?", id).Count(&count).Error
	return count > 0, err
}
