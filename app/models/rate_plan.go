package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// RatePlan is a named price-per-unit configuration. At most one plan is
// active at any time; activation atomically deactivates every other plan
// (enforced in the rate repository, not here).
type RatePlan struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	RateName      string          `gorm:"type:varchar(50);not null" json:"rate_name" validate:"required,max=50"`
	PricePerUnit  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_per_unit"`
	IsActive      bool            `gorm:"not null;default:false;index" json:"is_active"`
	EffectiveDate time.Time       `gorm:"not null" json:"effective_date"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Transactions []Transaction `gorm:"foreignKey:RateID" json:"-"`
}

func (RatePlan) TableName() string {
	return "rate_plans"
}

func (r *RatePlan) Validate() error {
	if !r.PricePerUnit.IsPositive() {
		return ErrNonPositivePrice
	}
	v := validator.New()

	return v.Struct(r)
}
