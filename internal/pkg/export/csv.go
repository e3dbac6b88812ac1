// Package export renders admin report downloads as CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/kmathenge/powervend/app/models"
)

const timeLayout = "2006-01-02 15:04:05"

// TransactionsCSV renders a transaction listing as CSV, one row per
// transaction, header first.
func TransactionsCSV(transactions []models.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"id", "reference", "user_id", "device_id", "rate_id",
		"units_purchased", "amount", "status", "payment_method",
		"balance_before", "balance_after", "created_at", "completed_at",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, trx := range transactions {
		row := []string{
			uintString(trx.ID),
			trx.Reference,
			uintString(trx.UserID),
			stringOrEmpty(trx.DeviceID),
			uintString(trx.RateID),
			trx.UnitsPurchased.StringFixed(2),
			trx.Amount.StringFixed(2),
			trx.Status,
			trx.PaymentMethod,
			trx.BalanceBefore.StringFixed(2),
			trx.BalanceAfter.StringFixed(2),
			trx.CreatedAt.UTC().Format(timeLayout),
			timeOrEmpty(trx.CompletedAt),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UsersCSV renders a user listing as CSV. Password hashes are never
// included.
func UsersCSV(users []models.User) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"id", "username", "email", "full_name", "phone_number",
		"role", "account_balance", "is_active", "created_at",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, user := range users {
		row := []string{
			uintString(user.ID),
			user.Username,
			user.Email,
			user.FullName,
			user.PhoneNumber,
			user.Role,
			user.AccountBalance.StringFixed(2),
			boolString(user.IsActive),
			user.CreatedAt.UTC().Format(timeLayout),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
