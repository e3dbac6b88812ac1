package export

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmathenge/powervend/app/models"
)

func TestTransactionsCSV(t *testing.T) {
	deviceID := "MTR0000001"
	completedAt := time.Date(2025, 6, 1, 12, 0, 5, 0, time.UTC)
	transactions := []models.Transaction{
		{
			ID:             1,
			UserID:         1,
			RateID:         1,
			DeviceID:       &deviceID,
			Amount:         decimal.RequireFromString("50.00"),
			UnitsPurchased: decimal.RequireFromString("5"),
			Reference:      "TR-20250601120000-1",
			Status:         models.TransactionCompleted,
			BalanceBefore:  decimal.RequireFromString("50"),
			BalanceAfter:   decimal.Zero,
			PaymentMethod:  "direct_transfer",
			CreatedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			CompletedAt:    &completedAt,
		},
		{
			ID:             2,
			UserID:         2,
			RateID:         1,
			Amount:         decimal.RequireFromString("10"),
			UnitsPurchased: decimal.RequireFromString("1"),
			Reference:      "TR-20250601120100-2",
			Status:         models.TransactionPending,
			CreatedAt:      time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC),
		},
	}

	data, err := TransactionsCSV(transactions)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, "reference", records[0][1])

	assert.Equal(t, []string{
		"1", "TR-20250601120000-1", "1", "MTR0000001", "1",
		"5.00", "50.00", "completed", "direct_transfer",
		"50.00", "0.00", "2025-06-01 12:00:00", "2025-06-01 12:00:05",
	}, records[1])

	// unassigned device and missing completion stamp render as empty cells
	assert.Equal(t, "", records[2][3])
	assert.Equal(t, "", records[2][12])
}

func TestUsersCSVExcludesSecrets(t *testing.T) {
	users := []models.User{{
		ID:             1,
		Username:       "user1",
		Email:          "user1@example.com",
		PasswordHash:   "$2a$10$secret",
		FullName:       "Regular User One",
		Role:           models.ROLE_USER,
		AccountBalance: decimal.RequireFromString("50"),
		IsActive:       true,
		CreatedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}}

	data, err := UsersCSV(users)
	require.NoError(t, err)

	out := string(data)
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "user1@example.com")
	assert.Contains(t, out, "50.00")
}
