package vending

import (
	"context"
	"fmt"
	"time"

	"github.com/kmathenge/powervend/app/models"
	"github.com/shopspring/decimal"
)

// PaymentMethodDirectTransfer is the fixed payment method of JSON purchases.
const PaymentMethodDirectTransfer = "direct_transfer"

// referenceAttempts bounds the disambiguation loop for purchase references
// colliding on the same second for the same user.
const referenceAttempts = 5

// PurchaseInput carries one unit-purchase request into the engine.
type PurchaseInput struct {
	UserID        uint
	Units         decimal.Decimal
	DeviceID      string // optional; empty means "use the primary device"
	PaymentMethod string
	Notes         string
}

// Service is the balance-mutation transaction engine. Every purchase runs in
// one store transaction holding row locks on the purchasing user, the
// treasury account and the credited device, so validation, the transaction
// record and all balance deltas commit or roll back together.
//
// Balance policy (applied uniformly): User.AccountBalance is money; a
// purchase debits the buyer and credits the treasury by the same amount.
// Device.UnitBalance is electricity units credited to the resolved device.
// Transaction.BalanceAfter records the buyer's actual post-commit balance.
type Service struct {
	store      Store
	treasuryID uint
	now        func() time.Time
}

// NewService builds an engine over store. treasuryID designates the
// counterparty account credited with the monetary amount of every purchase.
func NewService(store Store, treasuryID uint) *Service {
	return &Service{
		store:      store,
		treasuryID: treasuryID,
		now:        time.Now,
	}
}

// CalculateCost previews the cost of buying units at the active rate without
// touching any balance.
func (s *Service) CalculateCost(ctx context.Context, units decimal.Decimal) (decimal.Decimal, *models.RatePlan, error) {
	if !units.IsPositive() {
		return decimal.Zero, nil, ErrInvalidUnits
	}

	var rate *models.RatePlan
	err := s.store.WithinTx(ctx, func(tx Store) error {
		var err error
		rate, err = tx.ActiveRate()
		return err
	})
	if err != nil {
		return decimal.Zero, nil, err
	}
	if rate == nil {
		return decimal.Zero, nil, ErrNoActiveRate
	}
	return units.Mul(rate.PricePerUnit).Round(2), rate, nil
}

// Purchase validates in, creates the transaction record and applies all
// balance deltas in one atomic unit. A rejected purchase leaves every balance
// and the transaction table untouched.
func (s *Service) Purchase(ctx context.Context, in PurchaseInput) (*models.Transaction, error) {
	if !in.Units.IsPositive() {
		return nil, ErrInvalidUnits
	}

	var result *models.Transaction
	err := s.store.WithinTx(ctx, func(tx Store) error {
		user, err := tx.UserForUpdate(in.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		treasury := user
		if user.ID != s.treasuryID {
			treasury, err = tx.UserForUpdate(s.treasuryID)
			if err != nil {
				return err
			}
			if treasury == nil {
				return ErrTreasuryMissing
			}
		}

		rate, err := tx.ActiveRate()
		if err != nil {
			return err
		}
		if rate == nil {
			return ErrNoActiveRate
		}

		amount := in.Units.Mul(rate.PricePerUnit).Round(2)

		device, err := s.resolvePurchaseDevice(tx, user.ID, in.DeviceID)
		if err != nil {
			return err
		}

		ref, err := s.uniqueReference(tx, user.ID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		trx := &models.Transaction{
			UserID:         user.ID,
			RateID:         rate.ID,
			Amount:         amount,
			UnitsPurchased: in.Units,
			Reference:      ref,
			Status:         models.TransactionPending,
			BalanceBefore:  user.AccountBalance,
			BalanceAfter:   user.AccountBalance,
			PaymentMethod:  in.PaymentMethod,
			Notes:          in.Notes,
			CreatedAt:      now,
		}
		if device != nil {
			trx.DeviceID = &device.DeviceID
		}
		if err := tx.CreateTransaction(trx); err != nil {
			return err
		}

		applyBalanceDeltas(user, treasury, device, amount, in.Units)

		trx.Status = models.TransactionCompleted
		completedAt := s.now().UTC()
		trx.CompletedAt = &completedAt
		trx.BalanceAfter = user.AccountBalance

		if err := tx.SaveUser(user); err != nil {
			return err
		}
		if treasury != user {
			if err := tx.SaveUser(treasury); err != nil {
				return err
			}
		}
		if device != nil {
			if err := tx.SaveDevice(device); err != nil {
				return err
			}
		}
		if err := tx.SaveTransaction(trx); err != nil {
			return err
		}

		result = trx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PurchaseByDevice resolves a meter identifier to its owning user and buys
// units on their behalf. Used by the messaging channel, where commands name a
// device rather than an account.
func (s *Service) PurchaseByDevice(ctx context.Context, deviceID string, units decimal.Decimal, paymentMethod, notes string) (*models.Transaction, error) {
	if !units.IsPositive() {
		return nil, ErrInvalidUnits
	}

	var ownerID uint
	err := s.store.WithinTx(ctx, func(tx Store) error {
		device, err := tx.DeviceForUpdate(deviceID)
		if err != nil {
			return err
		}
		if device == nil {
			return ErrDeviceNotOwned
		}
		if device.UserID == nil {
			return ErrDeviceUnassigned
		}
		ownerID = *device.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Purchase(ctx, PurchaseInput{
		UserID:        ownerID,
		Units:         units,
		DeviceID:      deviceID,
		PaymentMethod: paymentMethod,
		Notes:         notes,
	})
}

// UpdateTransactionStatus is the explicit external transition used by
// non-purchase flows. Moving a pending transaction to completed applies the
// same balance deltas as a purchase; transitions out of a terminal state are
// rejected so credits can never double-apply.
func (s *Service) UpdateTransactionStatus(ctx context.Context, transactionID uint, status string) (*models.Transaction, error) {
	if !models.ValidTransactionStatus(status) {
		return nil, ErrInvalidStatus
	}

	var result *models.Transaction
	err := s.store.WithinTx(ctx, func(tx Store) error {
		trx, err := tx.TransactionForUpdate(transactionID)
		if err != nil {
			return err
		}
		if trx == nil {
			return ErrTransactionGone
		}
		if trx.Status == status {
			result = trx
			return nil
		}
		if trx.IsTerminal() {
			return ErrTransactionFinal
		}

		trx.Status = status
		if status == models.TransactionCompleted {
			user, err := tx.UserForUpdate(trx.UserID)
			if err != nil {
				return err
			}
			if user == nil {
				return ErrUserNotFound
			}

			treasury := user
			if user.ID != s.treasuryID {
				treasury, err = tx.UserForUpdate(s.treasuryID)
				if err != nil {
					return err
				}
				if treasury == nil {
					return ErrTreasuryMissing
				}
			}

			var device *models.Device
			if trx.DeviceID != nil {
				device, err = tx.DeviceForUpdate(*trx.DeviceID)
				if err != nil {
					return err
				}
			} else {
				device, err = tx.PrimaryDeviceForUpdate(user.ID)
				if err != nil {
					return err
				}
			}

			applyBalanceDeltas(user, treasury, device, trx.Amount, trx.UnitsPurchased)

			completedAt := s.now().UTC()
			trx.CompletedAt = &completedAt
			trx.BalanceAfter = user.AccountBalance

			if err := tx.SaveUser(user); err != nil {
				return err
			}
			if treasury != user {
				if err := tx.SaveUser(treasury); err != nil {
					return err
				}
			}
			if device != nil {
				if err := tx.SaveDevice(device); err != nil {
					return err
				}
			}
		}

		if err := tx.SaveTransaction(trx); err != nil {
			return err
		}
		result = trx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolvePurchaseDevice picks the device credited by a purchase. An explicit
// device must exist and belong to the user; otherwise the user's primary
// device is used, or none (the purchase then credits no device).
func (s *Service) resolvePurchaseDevice(tx Store, userID uint, explicitDeviceID string) (*models.Device, error) {
	if explicitDeviceID != "" {
		device, err := tx.DeviceForUpdate(explicitDeviceID)
		if err != nil {
			return nil, err
		}
		if device == nil || !device.BelongsTo(userID) {
			return nil, ErrDeviceNotOwned
		}
		return device, nil
	}
	return tx.PrimaryDeviceForUpdate(userID)
}

// uniqueReference builds a TR-{timestamp}-{userID} reference, appending a
// numeric suffix when two purchases for the same user land on the same
// second. The transactions table keeps the unique constraint as the backstop.
func (s *Service) uniqueReference(tx Store, userID uint) (string, error) {
	base := models.TransactionReference(userID, s.now())
	ref := base
	for i := 1; i <= referenceAttempts; i++ {
		exists, err := tx.ReferenceExists(ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
		ref = fmt.Sprintf("%s-%d", base, i+1)
	}
	return "", fmt.Errorf("could not allocate a unique transaction reference for user %d", userID)
}

// applyBalanceDeltas moves value for one completed purchase: amount of money
// from the buyer to the treasury, units of electricity onto the device. When
// buyer and treasury are the same row the monetary deltas cancel out.
func applyBalanceDeltas(user, treasury *models.User, device *models.Device, amount, units decimal.Decimal) {
	if user != treasury {
		user.AccountBalance = user.AccountBalance.Sub(amount)
		treasury.AccountBalance = treasury.AccountBalance.Add(amount)
	}
	if device != nil {
		device.UnitBalance = device.UnitBalance.Add(units)
	}
}
