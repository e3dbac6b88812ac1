package controllers

import (
	"errors"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kmathenge/powervend/app/models"
	"github.com/kmathenge/powervend/app/repository"
	"github.com/kmathenge/powervend/internal/pkg/database"
	"github.com/kmathenge/powervend/internal/pkg/env"
	"github.com/kmathenge/powervend/internal/pkg/vending"
)

var validate = validator.New()

var (
	vendingOnce sync.Once
	vendingSvc  *vending.Service
)

// treasuryAccountID reads the configured treasury account, defaulting to 3.
func treasuryAccountID() uint {
	id, err := strconv.ParseUint(env.GetEnv("TREASURY_ACCOUNT_ID", "3"), 10, 64)
	if err != nil || id == 0 {
		return 3
	}
	return uint(id)
}

// Vending returns the process-wide transaction engine, built lazily over the
// shared DB handle and the configured treasury account.
func Vending() *vending.Service {
	vendingOnce.Do(func() {
		vendingSvc = vending.NewService(vending.NewStore(database.GetDB()), treasuryAccountID())
	})
	return vendingSvc
}

// SetVendingService overrides the engine instance; used by tests.
func SetVendingService(svc *vending.Service) {
	vendingOnce.Do(func() {})
	vendingSvc = svc
}

// respondError maps engine and storage errors onto the HTTP taxonomy:
// NotFound -> 404, Validation -> 400, Conflict -> 409, anything else -> 500.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, vending.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": err.Error()})
	case errors.Is(err, vending.ErrValidation),
		errors.Is(err, models.ErrNonPositivePrice),
		isValidatorError(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	case errors.Is(err, vending.ErrConflict),
		errors.Is(err, repository.ErrRateActive),
		errors.Is(err, repository.ErrRateReferenced),
		errors.Is(err, repository.ErrDeviceAssigned),
		errors.Is(err, repository.ErrUserHasTransactions),
		errors.Is(err, repository.ErrUsernameTaken),
		errors.Is(err, repository.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Unexpected server error"})
	}
}

// isValidatorError reports whether err carries struct-tag validation
// failures from model Validate methods.
func isValidatorError(err error) bool {
	var vErrs validator.ValidationErrors
	return errors.As(err, &vErrs)
}

// paramUint parses a numeric path parameter.
func paramUint(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// pagination reads skip/limit query parameters with the usual defaults.
func pagination(c *fiber.Ctx) (offset, limit int) {
	offset = c.QueryInt("skip", 0)
	limit = c.QueryInt("limit", 100)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return offset, limit
}

// parseUnits parses a positive decimal unit quantity from a string.
func parseUnits(raw string) (decimal.Decimal, error) {
	units, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, vending.ErrInvalidUnits
	}
	if !units.IsPositive() {
		return decimal.Zero, vending.ErrInvalidUnits
	}
	return units, nil
}
