package vending

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmathenge/powervend/app/models"
)

const testTreasuryID = 3

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedStore builds the scenario used across tests: an active standard rate at
// 10.0 per unit, user 1 with balance 50.0 and a primary meter at 50.0 units,
// and the treasury account.
func seedStore() *memStore {
	store := newMemStore()
	store.users[1] = &models.User{
		ID:             1,
		Username:       "user1",
		AccountBalance: dec("50.00"),
		IsActive:       true,
	}
	store.users[testTreasuryID] = &models.User{
		ID:             testTreasuryID,
		Username:       "treasury",
		Role:           models.ROLE_ADMIN,
		AccountBalance: dec("100.00"),
		IsActive:       true,
	}
	owner := uint(1)
	store.devices["MTR0000001"] = &models.Device{
		ID:          1,
		DeviceID:    "MTR0000001",
		UserID:      &owner,
		IsPrimary:   true,
		UnitBalance: dec("50.00"),
	}
	store.rates[1] = &models.RatePlan{
		ID:           1,
		RateName:     "Standard",
		PricePerUnit: dec("10.00"),
		IsActive:     true,
	}
	return store
}

func TestPurchaseHappyPath(t *testing.T) {
	store := seedStore()
	svc := NewService(store, testTreasuryID)
	svc.now = fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	trx, err := svc.Purchase(context.Background(), PurchaseInput{
		UserID:        1,
		Units:         dec("5"),
		PaymentMethod: PaymentMethodDirectTransfer,
	})
	require.NoError(t, err)

	assert.Equal(t, models.TransactionCompleted, trx.Status)
	assert.True(t, trx.Amount.Equal(dec("50.00")), "amount = units * price")
	assert.True(t, trx.UnitsPurchased.Equal(dec("5")))
	require.NotNil(t, trx.DeviceID)
	assert.Equal(t, "MTR0000001", *trx.DeviceID)
	assert.Equal(t, "TR-20250601120000-1", trx.Reference)
	require.NotNil(t, trx.CompletedAt)

	// Balance snapshots reflect the actual post-commit value.
	assert.True(t, trx.BalanceBefore.Equal(dec("50.00")))
	assert.True(t, trx.BalanceAfter.Equal(dec("0.00")))

	// Money moved from buyer to treasury, units onto the meter.
	assert.True(t, store.users[1].AccountBalance.Equal(dec("0.00")))
	assert.True(t, store.users[testTreasuryID].AccountBalance.Equal(dec("150.00")))
	assert.True(t, store.devices["MTR0000001"].UnitBalance.Equal(dec("55.00")))
}

func TestPurchaseConservesValue(t *testing.T) {
	store := seedStore()
	svc := NewService(store, testTreasuryID)

	totalBefore := store.users[1].AccountBalance.Add(store.users[testTreasuryID].AccountBalance)

	for i := 0; i < 3; i++ {
		_, err := svc.Purchase(context.Background(), PurchaseInput{
			UserID:        1,
			Units:         dec("1.5"),
			PaymentMethod: "mpesa",
		})
		require.NoError(t, err)
	}

	totalAfter := store.users[1].AccountBalance.Add(store.users[testTreasuryID].AccountBalance)
	assert.True(t, totalBefore.Equal(totalAfter), "sum of buyer and treasury balances must not change")
}

func TestPurchaseRejectsNonPositiveUnits(t *testing.T) {
	store := seedStore()
	svc := NewService(store, testTreasuryID)

	for _, units := range []string{"0", "-3"} {
		_, err := svc.Purchase(context.Background(), PurchaseInput{UserID: 1, Units: dec(units)})
		assert.ErrorIs(t, err, ErrValidation)
	}

	assert.Empty(t, store.transactions, "no transaction row for rejected purchases")
	assert.True(t, store.users[1].AccountBalance.Equal(dec("50.00")))
}

func TestPurchaseRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*memStore)
		input   PurchaseInput
		wantErr error
	}{
		{
			name:    "unknown user",
			mutate:  func(m *memStore) {},
			input:   PurchaseInput{UserID: 99, Units: dec("5")},
			wantErr: ErrUserNotFound,
		},
		{
			name:    "treasury missing",
			mutate:  func(m *memStore) { delete(m.users, testTreasuryID) },
			input:   PurchaseInput{UserID: 1, Units: dec("5")},
			wantErr: ErrTreasuryMissing,
		},
		{
			name:    "no active rate",
			mutate:  func(m *memStore) { m.rates[1].IsActive = false },
			input:   PurchaseInput{UserID: 1, Units: dec("5")},
			wantErr: ErrNoActiveRate,
		},
		{
			name:    "device not owned",
			mutate:  func(m *memStore) {},
			input:   PurchaseInput{UserID: 1, Units: dec("5"), DeviceID: "MTR9999999"},
			wantErr: ErrDeviceNotOwned,
		},
		{
			name: "device owned by someone else",
			mutate: func(m *memStore) {
				other := uint(7)
				m.users[7] = &models.User{ID: 7, Username: "other", IsActive: true}
				m.devices["MTR0000002"] = &models.Device{ID: 2, DeviceID: "MTR0000002", UserID: &other}
			},
			input:   PurchaseInput{UserID: 1, Units: dec("5"), DeviceID: "MTR0000002"},
			wantErr: ErrDeviceNotOwned,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seedStore()
			tt.mutate(store)
			svc := NewService(store, testTreasuryID)

			_, err := svc.Purchase(context.Background(), tt.input)
			require.ErrorIs(t, err, tt.wantErr)

			// Rejections leave the ledger untouched.
			assert.Empty(t, store.transactions)
			assert.True(t, store.users[1].AccountBalance.Equal(dec("50.00")))
			assert.True(t, store.devices["MTR0000001"].UnitBalance.Equal(dec("50.00")))
		})
	}
}

func TestPurchaseWithoutAnyDevice(t *testing.T) {
	store := seedStore()
	delete(store.devices, "MTR0000001")
	svc := NewService(store, testTreasuryID)

	trx, err := svc.Purchase(context.Background(), PurchaseInput{
		UserID:        1,
		Units:         dec("2"),
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	assert.Nil(t, trx.DeviceID, "purchase proceeds without crediting any device")
	assert.Equal(t, models.TransactionCompleted, trx.Status)
	assert.True(t, store.users[1].AccountBalance.Equal(dec("30.00")))
}

func TestPurchaseByTreasuryAccount(t *testing.T) {
	store := seedStore()
	svc := NewService(store, testTreasuryID)

	_, err := svc.Purchase(context.Background(), PurchaseInput{
		UserID:        testTreasuryID,
		Units:         dec("4"),
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	// Buyer and counterparty are the same row; money must not be minted.
	assert.True(t, store.users[testTreasuryID].AccountBalance.Equal(dec("100.00")))
}

func TestReferenceDisambiguation(t *testing.T) {
	store := seedStore()
	svc := NewService(store, testTreasuryID)
	svc.now = fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	first, err := svc.Purchase(context.Background(), PurchaseInput{UserID: 1, Units: dec("1")})
	require.NoError(t, err)
	second, err := svc.Purchase(context.Background(), PurchaseInput{UserID: 1, Units: dec("1")})
	require.NoError(t, err)

	assert.Equal(t, "TR-20250601120000-1", first.Reference)
	assert.Equal(t, "TR-20250601120000-1-2", second.Reference)
	assert.NotEqual(t, first.Reference, second.Reference)
}

func TestReferencesForDifferentUsersNeverCollide(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	refA := models.TransactionReference(1, now)
	refB := models.TransactionReference(2, now)
	assert.NotEqual(t, refA, refB)
}

func TestPersistenceFailureLeavesNothingBehind(t *testing.T) {
	store := seedStore()
	store.failSaveTransaction = true
	svc := NewService(store, testTreasuryID)

	_, err := svc.Purchase(context.Background(), PurchaseInput{UserID: 1, Units: dec("5")})
	require.ErrorIs(t, err, errStoreDown)

	assert.Empty(t, store.transactions)
	assert.True(t, store.users[1].AccountBalance.Equal(dec("50.00")))
	assert.True(t, store.users[testTreasuryID].AccountBalance.Equal(dec("100.00")))
	assert.True(t, store.devices["MTR0000001"].UnitBalance.Equal(dec("50.00")))
}

func TestPurchaseByDevice(t *testing.T) {
	store := seedStore()
	svc := NewService(store, testTreasuryID)

	trx, err := svc.PurchaseByDevice(context.Background(), "MTR0000001", dec("3"), "WhatsApp", "Purchase via WhatsApp")
	require.NoError(t, err)

	assert.Equal(t, uint(1), trx.UserID)
	require.NotNil(t, trx.DeviceID)
	assert.Equal(t, "MTR0000001", *trx.DeviceID)
	assert.True(t, store.devices["MTR0000001"].UnitBalance.Equal(dec("53.00")))
}

func TestPurchaseByUnassignedDevice(t *testing.T) {
	store := seedStore()
	store.devices["MTR0000009"] = &models.Device{ID: 9, DeviceID: "MTR0000009"}
	svc := NewService(store, testTreasuryID)

	_, err := svc.PurchaseByDevice(context.Background(), "MTR0000009", dec("3"), "WhatsApp", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStatusCompletesPendingOnce(t *testing.T) {
	store := seedStore()
	svc := NewService(store, testTreasuryID)

	deviceID := "MTR0000001"
	pending := &models.Transaction{
		UserID:         1,
		RateID:         1,
		DeviceID:       &deviceID,
		Amount:         dec("50.00"),
		UnitsPurchased: dec("5"),
		Reference:      "TR-20250601115959-1",
		Status:         models.TransactionPending,
		BalanceBefore:  dec("50.00"),
		BalanceAfter:   dec("50.00"),
	}
	require.NoError(t, store.CreateTransaction(pending))

	trx, err := svc.UpdateTransactionStatus(context.Background(), pending.ID, models.TransactionCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, trx.Status)
	require.NotNil(t, trx.CompletedAt)
	assert.True(t, store.users[1].AccountBalance.Equal(dec("0.00")))
	assert.True(t, store.devices[deviceID].UnitBalance.Equal(dec("55.00")))
	assert.True(t, trx.BalanceAfter.Equal(dec("0.00")))

	// Completing again is a no-op: credits never double-apply.
	again, err := svc.UpdateTransactionStatus(context.Background(), pending.ID, models.TransactionCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, again.Status)
	assert.True(t, store.users[1].AccountBalance.Equal(dec("0.00")))
	assert.True(t, store.devices[deviceID].UnitBalance.Equal(dec("55.00")))
}

func TestUpdateStatusRejectsLeavingTerminalState(t *testing.T) {
	store := seedStore()
	svc := NewService(store, testTreasuryID)

	done := &models.Transaction{
		UserID:         1,
		RateID:         1,
		Amount:         dec("10.00"),
		UnitsPurchased: dec("1"),
		Reference:      "TR-20250601115958-1",
		Status:         models.TransactionCompleted,
	}
	require.NoError(t, store.CreateTransaction(done))

	_, err := svc.UpdateTransactionStatus(context.Background(), done.ID, models.TransactionFailed)
	assert.ErrorIs(t, err, ErrTransactionFinal)
}

func TestUpdateStatusToFailedStampsNoCredits(t *testing.T) {
	store := seedStore()
	svc := NewService(store, testTreasuryID)

	pending := &models.Transaction{
		UserID:         1,
		RateID:         1,
		Amount:         dec("50.00"),
		UnitsPurchased: dec("5"),
		Reference:      "TR-20250601115957-1",
		Status:         models.TransactionPending,
	}
	require.NoError(t, store.CreateTransaction(pending))

	trx, err := svc.UpdateTransactionStatus(context.Background(), pending.ID, models.TransactionFailed)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionFailed, trx.Status)
	assert.Nil(t, trx.CompletedAt)
	assert.True(t, store.users[1].AccountBalance.Equal(dec("50.00")))
}

func TestUpdateStatusValidation(t *testing.T) {
	store := seedStore()
	svc := NewService(store, testTreasuryID)

	_, err := svc.UpdateTransactionStatus(context.Background(), 1, "refunded")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateTransactionStatus(context.Background(), 42, models.TransactionFailed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCalculateCost(t *testing.T) {
	store := seedStore()
	svc := NewService(store, testTreasuryID)

	cost, rate, err := svc.CalculateCost(context.Background(), dec("5"))
	require.NoError(t, err)
	assert.True(t, cost.Equal(dec("50.00")))
	assert.Equal(t, "Standard", rate.RateName)

	_, _, err = svc.CalculateCost(context.Background(), dec("0"))
	assert.ErrorIs(t, err, ErrValidation)

	store.rates[1].IsActive = false
	_, _, err = svc.CalculateCost(context.Background(), dec("5"))
	assert.ErrorIs(t, err, ErrNoActiveRate)
}

func TestCalculateCostRounding(t *testing.T) {
	store := seedStore()
	store.rates[1].PricePerUnit = dec("10.557")
	svc := NewService(store, testTreasuryID)

	cost, _, err := svc.CalculateCost(context.Background(), dec("3"))
	require.NoError(t, err)
	assert.Equal(t, "31.67", cost.StringFixed(2), "cost rounds half away from zero to 2 decimal places")
}

func TestTransactionReferenceFormat(t *testing.T) {
	at := time.Date(2024, 12, 31, 23, 59, 58, 0, time.UTC)
	ref := models.TransactionReference(17, at)
	assert.Equal(t, fmt.Sprintf("TR-20241231235958-%d", 17), ref)
}
