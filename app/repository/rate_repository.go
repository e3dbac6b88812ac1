package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kmathenge/powervend/app/models"
)

// Conflict outcomes for rate deletion; both are distinguishable from a plain
// record-not-found.
var (
	ErrRateActive     = errors.New("rate plan is active and cannot be deleted")
	ErrRateReferenced = errors.New("rate plan is referenced by transactions and cannot be deleted")
)

// rateRepository implements the RateRepository interface. The single-active
// invariant is enforced here: every write that activates a plan deactivates
// all others inside the same transaction.
type rateRepository struct {
	db *gorm.DB
}

// NewRateRepository creates a new rate repository instance
func NewRateRepository(db *gorm.DB) RateRepository {
	return &rateRepository{db: db}
}

// createRatePlan validates and inserts a plan under the single-active rule.
// deactivateOthers and insert supply persistence; the caller wraps both in
// one transaction. Validation runs before any write, so an invalid plan
// never deactivates anything.
func createRatePlan(plan *models.RatePlan, deactivateOthers func(keepID uint) error, insert func(*models.RatePlan) error) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if plan.EffectiveDate.IsZero() {
		plan.EffectiveDate = time.Now().UTC()
	}
	if plan.IsActive {
		if err := deactivateOthers(0); err != nil {
			return err
		}
	}
	return insert(plan)
}

// patchRatePlan applies only the set fields of patch to plan. Activating
// through a patch deactivates every other plan; the patched plan must still
// validate.
func patchRatePlan(plan *models.RatePlan, patch RatePatch, deactivateOthers func(keepID uint) error) error {
	if patch.RateName != nil {
		plan.RateName = *patch.RateName
	}
	if patch.PricePerUnit != nil {
		plan.PricePerUnit = *patch.PricePerUnit
	}
	if patch.EffectiveDate != nil {
		plan.EffectiveDate = *patch.EffectiveDate
	}
	if patch.IsActive != nil {
		if *patch.IsActive {
			if err := deactivateOthers(plan.ID); err != nil {
				return err
			}
		}
		plan.IsActive = *patch.IsActive
	}
	return plan.Validate()
}

// activateRatePlan makes plan the single active one.
func activateRatePlan(plan *models.RatePlan, deactivateOthers func(keepID uint) error) error {
	if err := deactivateOthers(plan.ID); err != nil {
		return err
	}
	plan.IsActive = true
	return nil
}

// Create stores a new rate plan, deactivating every other plan first when the
// new plan is created active. EffectiveDate defaults to now.
func (r *rateRepository) Create(plan *models.RatePlan) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return createRatePlan(plan,
			func(keepID uint) error { return deactivateOtherRates(tx, keepID) },
			func(p *models.RatePlan) error { return tx.Create(p).Error },
		)
	})
}

// GetByID retrieves a rate plan by ID
func (r *rateRepository) GetByID(id uint) (*models.RatePlan, error) {
	var plan models.RatePlan
	err := r.db.First(&plan, id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetActive returns the single active rate plan
func (r *rateRepository) GetActive() (*models.RatePlan, error) {
	var plan models.RatePlan
	err := r.db.Where("is_active = ?", true).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// List retrieves rate plans newest first
func (r *rateRepository) List(offset, limit int) ([]models.RatePlan, error) {
	var plans []models.RatePlan
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&plans).Error
	return plans, err
}

// Activate makes the target plan the only active one
func (r *rateRepository) Activate(id uint) (*models.RatePlan, error) {
	var plan models.RatePlan
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&plan, id).Error; err != nil {
			return err
		}
		if err := activateRatePlan(&plan, func(keepID uint) error {
			return deactivateOtherRates(tx, keepID)
		}); err != nil {
			return err
		}
		return tx.Save(&plan).Error
	})
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// ApplyPatch applies only the set fields of patch. Activating through a patch
// deactivates every other plan in the same transaction.
func (r *rateRepository) ApplyPatch(id uint, patch RatePatch) (*models.RatePlan, error) {
	var plan models.RatePlan
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&plan, id).Error; err != nil {
			return err
		}
		if err := patchRatePlan(&plan, patch, func(keepID uint) error {
			return deactivateOtherRates(tx, keepID)
		}); err != nil {
			return err
		}
		return tx.Save(&plan).Error
	})
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// Delete removes a rate plan. Active plans and plans referenced by any
// transaction are refused.
func (r *rateRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var plan models.RatePlan
		if err := tx.First(&plan, id).Error; err != nil {
			return err
		}
		if plan.IsActive {
			return fmt.Errorf("rate plan %d: %w", id, ErrRateActive)
		}

		var refs int64
		if err := tx.Model(&models.Transaction{}).Where("rate_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("rate plan %d: %w", id, ErrRateReferenced)
		}

		return tx.Delete(&models.RatePlan{}, id).Error
	})
}

// deactivateOtherRates clears is_active from every plan except keepID
// (keepID 0 clears all).
func deactivateOtherRates(tx *gorm.DB, keepID uint) error {
	q := tx.Model(&models.RatePlan{}).Where("is_active = ?", true)
	if keepID != 0 {
		q = q.Where("id <> ?", keepID)
	}
	return q.Update("is_active", false).Error
}
