package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionPending   = "pending"
	TransactionCompleted = "completed"
	TransactionFailed    = "failed"
)

var ErrNonPositivePrice = errors.New("price_per_unit must be greater than zero")

// Transaction is the immutable record of one purchase attempt. Status,
// CompletedAt and BalanceAfter are the only fields mutated after creation;
// rows are never deleted. BalanceBefore/BalanceAfter snapshot the purchasing
// user's monetary balance around the commit.
type Transaction struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	RateID         uint            `gorm:"not null;index" json:"rate_id"`
	DeviceID       *string         `gorm:"type:varchar(50);index;default:null" json:"device_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	UnitsPurchased decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"units_purchased"`
	Reference      string          `gorm:"column:transaction_reference;uniqueIndex;type:varchar(100);not null" json:"transaction_reference"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	BalanceBefore  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance_before"`
	BalanceAfter   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance_after"`
	PaymentMethod  string          `gorm:"type:varchar(50);default:null" json:"payment_method"`
	Notes          string          `gorm:"type:text;default:null" json:"notes"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	CompletedAt    *time.Time      `gorm:"type:timestamp;default:null" json:"completed_at"`

	User User      `gorm:"foreignKey:UserID" json:"-"`
	Rate *RatePlan `gorm:"foreignKey:RateID" json:"-"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// IsTerminal reports whether the status admits no further transitions.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionCompleted || t.Status == TransactionFailed
}

// ValidTransactionStatus reports whether s names a known status value.
func ValidTransactionStatus(s string) bool {
	switch s {
	case TransactionPending, TransactionCompleted, TransactionFailed:
		return true
	}
	return false
}

// TransactionReference builds the human-readable purchase reference for a
// user at a point in time: TR-{yyyyMMddHHmmss}-{userID}. Uniqueness is
// guaranteed by the DB constraint, not by this format alone.
func TransactionReference(userID uint, at time.Time) string {
	return fmt.Sprintf("TR-%s-%d", at.UTC().Format("20060102150405"), userID)
}
