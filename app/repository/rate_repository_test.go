package repository

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmathenge/powervend/app/models"
)

// rateCatalogFake backs the rate-plan write helpers with a map, standing in
// for the transactional gorm closures.
type rateCatalogFake struct {
	plans  map[uint]*models.RatePlan
	nextID uint

	deactivations int
	inserts       int
}

func newRateCatalogFake() *rateCatalogFake {
	return &rateCatalogFake{plans: map[uint]*models.RatePlan{}}
}

func (f *rateCatalogFake) deactivateOthers(keepID uint) error {
	f.deactivations++
	for id, plan := range f.plans {
		if id != keepID {
			plan.IsActive = false
		}
	}
	return nil
}

func (f *rateCatalogFake) insert(plan *models.RatePlan) error {
	f.inserts++
	f.nextID++
	plan.ID = f.nextID
	f.plans[plan.ID] = plan
	return nil
}

func (f *rateCatalogFake) create(t *testing.T, name, price string, active bool) *models.RatePlan {
	t.Helper()
	plan := &models.RatePlan{
		RateName:     name,
		PricePerUnit: decimal.RequireFromString(price),
		IsActive:     active,
	}
	require.NoError(t, createRatePlan(plan, f.deactivateOthers, f.insert))
	return plan
}

func (f *rateCatalogFake) activeIDs() []uint {
	var ids []uint
	for id, plan := range f.plans {
		if plan.IsActive {
			ids = append(ids, id)
		}
	}
	return ids
}

func TestCreateRateRejectsNonPositivePrice(t *testing.T) {
	for _, price := range []string{"-5", "0"} {
		f := newRateCatalogFake()
		plan := &models.RatePlan{
			RateName:     "Bad Rate",
			PricePerUnit: decimal.RequireFromString(price),
			IsActive:     true,
		}

		err := createRatePlan(plan, f.deactivateOthers, f.insert)

		assert.ErrorIs(t, err, models.ErrNonPositivePrice, price)
		assert.Zero(t, f.deactivations, "invalid plan must not deactivate anything")
		assert.Zero(t, f.inserts, "invalid plan must not be written")
	}
}

func TestCreateRateDefaultsEffectiveDate(t *testing.T) {
	f := newRateCatalogFake()
	plan := f.create(t, "Standard", "10.00", false)
	assert.False(t, plan.EffectiveDate.IsZero())

	explicit := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	withDate := &models.RatePlan{
		RateName:      "Scheduled",
		PricePerUnit:  decimal.RequireFromString("12.00"),
		EffectiveDate: explicit,
	}
	require.NoError(t, createRatePlan(withDate, f.deactivateOthers, f.insert))
	assert.Equal(t, explicit, withDate.EffectiveDate)
}

// At most one plan may be active, no matter which write path activated it.
func TestSingleActiveRateAcrossWrites(t *testing.T) {
	f := newRateCatalogFake()

	first := f.create(t, "Standard", "10.00", true)
	assert.Equal(t, []uint{first.ID}, f.activeIDs())

	second := f.create(t, "Peak", "15.00", true)
	assert.Equal(t, []uint{second.ID}, f.activeIDs())

	third := f.create(t, "Offpeak", "8.00", false)
	assert.Equal(t, []uint{second.ID}, f.activeIDs(), "inactive create must not steal activation")

	// Patch the inactive plan active.
	activate := true
	require.NoError(t, patchRatePlan(third, RatePatch{IsActive: &activate}, f.deactivateOthers))
	assert.Equal(t, []uint{third.ID}, f.activeIDs())

	// Activate the first plan directly.
	require.NoError(t, activateRatePlan(first, f.deactivateOthers))
	require.Len(t, f.activeIDs(), 1)
	assert.Equal(t, first.ID, f.activeIDs()[0])

	// A patch that does not touch IsActive leaves activation alone.
	name := "Standard Renamed"
	require.NoError(t, patchRatePlan(first, RatePatch{RateName: &name}, f.deactivateOthers))
	assert.Equal(t, []uint{first.ID}, f.activeIDs())
	assert.Equal(t, "Standard Renamed", first.RateName)
}

func TestPatchRateRejectsNonPositivePrice(t *testing.T) {
	f := newRateCatalogFake()
	plan := f.create(t, "Standard", "10.00", true)

	bad := decimal.RequireFromString("-1")
	err := patchRatePlan(plan, RatePatch{PricePerUnit: &bad}, f.deactivateOthers)
	assert.ErrorIs(t, err, models.ErrNonPositivePrice)
}
