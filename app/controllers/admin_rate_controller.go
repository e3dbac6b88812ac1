package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/kmathenge/powervend/app/models"
	"github.com/kmathenge/powervend/app/repository"
)

type createRateRequest struct {
	RateName      string     `json:"rate_name" validate:"required,min=1,max=50"`
	PricePerUnit  string     `json:"price_per_unit" validate:"required"`
	IsActive      bool       `json:"is_active"`
	EffectiveDate *time.Time `json:"effective_date"`
}

type updateRateRequest struct {
	RateName      *string    `json:"rate_name" validate:"omitempty,min=1,max=50"`
	PricePerUnit  *string    `json:"price_per_unit"`
	IsActive      *bool      `json:"is_active"`
	EffectiveDate *time.Time `json:"effective_date"`
}

// HandleAdminListRates lists all rate plans, paginated.
func HandleAdminListRates(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	rates, err := repository.GetGlobalFactory().GetRateRepository().List(offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rates)
}

// HandleAdminGetRate returns one rate plan.
func HandleAdminGetRate(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid rate id"})
	}
	rate, err := repository.GetGlobalFactory().GetRateRepository().GetByID(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rate)
}

// HandleAdminCreateRate adds a rate plan. Creating it active deactivates
// every other plan in the same write.
func HandleAdminCreateRate(c *fiber.Ctx) error {
	var req createRateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	price, err := decimal.NewFromString(req.PricePerUnit)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "price_per_unit must be a decimal number"})
	}

	rate := &models.RatePlan{
		RateName:     req.RateName,
		PricePerUnit: price,
		IsActive:     req.IsActive,
	}
	if req.EffectiveDate != nil {
		rate.EffectiveDate = *req.EffectiveDate
	}
	if err := repository.GetGlobalFactory().GetRateRepository().Create(rate); err != nil {
		return respondError(c, err)
	}

	invalidateActiveRateCache()
	return c.Status(fiber.StatusCreated).JSON(rate)
}

// HandleAdminUpdateRate patches a rate plan. Activating it deactivates every
// other plan.
func HandleAdminUpdateRate(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid rate id"})
	}

	var req updateRateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	patch := repository.RatePatch{
		RateName:      req.RateName,
		IsActive:      req.IsActive,
		EffectiveDate: req.EffectiveDate,
	}
	if req.PricePerUnit != nil {
		price, err := decimal.NewFromString(*req.PricePerUnit)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "price_per_unit must be a decimal number"})
		}
		patch.PricePerUnit = &price
	}

	rate, err := repository.GetGlobalFactory().GetRateRepository().ApplyPatch(id, patch)
	if err != nil {
		return respondError(c, err)
	}

	invalidateActiveRateCache()
	return c.JSON(rate)
}

// HandleAdminActivateRate makes the plan the single active one.
func HandleAdminActivateRate(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid rate id"})
	}

	rate, err := repository.GetGlobalFactory().GetRateRepository().Activate(id)
	if err != nil {
		return respondError(c, err)
	}

	invalidateActiveRateCache()
	return c.JSON(rate)
}

// HandleAdminDeleteRate removes a plan. Active or transaction-referenced
// plans are refused.
func HandleAdminDeleteRate(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid rate id"})
	}

	if err := repository.GetGlobalFactory().GetRateRepository().Delete(id); err != nil {
		return respondError(c, err)
	}

	invalidateActiveRateCache()
	return c.JSON(fiber.Map{"message": "Rate plan deleted"})
}
