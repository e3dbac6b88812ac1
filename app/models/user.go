package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
)

// User is an account holder. AccountBalance is a monetary value in the local
// currency; electricity units live on Device.UnitBalance. The treasury account
// (configured id, conventionally 3) is a regular User row credited with the
// amount of every purchase.
type User struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Username       string          `gorm:"uniqueIndex;type:varchar(50);not null" json:"username" validate:"required,min=3,max=50"`
	Email          string          `gorm:"uniqueIndex;type:varchar(100);not null" json:"email" validate:"required,email,max=100"`
	PasswordHash   string          `gorm:"type:varchar(255);not null" json:"-"`
	FullName       string          `gorm:"type:varchar(100);not null" json:"full_name" validate:"required,max=100"`
	PhoneNumber    string          `gorm:"type:varchar(15);default:null" json:"phone_number" validate:"max=15"`
	Role           string          `gorm:"type:varchar(20);default:'user'" json:"role" validate:"oneof=user admin"`
	AccountBalance decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"account_balance"`
	IsActive       bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Devices      []Device      `gorm:"foreignKey:UserID" json:"devices,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:UserID" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func NewUser(username, email, password, fullName, phoneNumber string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		PhoneNumber:  phoneNumber,
		Role:         ROLE_USER,
		IsActive:     true,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPassword verifies the given password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// SetPassword hashes and sets a new password for the user.
func (u *User) SetPassword(password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}
