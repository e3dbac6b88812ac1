package controllers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kmathenge/powervend/app/models"
	"github.com/kmathenge/powervend/app/repository"
	"github.com/kmathenge/powervend/internal/pkg/cache"
	"github.com/kmathenge/powervend/internal/pkg/middleware"
	"github.com/kmathenge/powervend/internal/pkg/vending"
)

const (
	activeRateCacheKey = "active_rate"
	activeRateCacheTTL = 30 * time.Second
)

type buyUnitsRequest struct {
	Units         json.Number `json:"units"`
	PaymentMethod string      `json:"payment_method" validate:"required,max=50"`
	DeviceID      string      `json:"device_id"`
	Notes         string      `json:"notes"`
}

type jsonPurchaseRequest struct {
	Units    json.Number `json:"units"`
	DeviceID string      `json:"device_id"`
	Notes    string      `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// transactionResponse decorates a transaction with its rate details, the
// shape the frontend consumes.
type transactionResponse struct {
	models.Transaction
	RateName     string `json:"rate_name,omitempty"`
	PricePerUnit string `json:"price_per_unit,omitempty"`
}

func newTransactionResponse(trx *models.Transaction, rate *models.RatePlan) transactionResponse {
	resp := transactionResponse{Transaction: *trx}
	if rate != nil {
		resp.RateName = rate.RateName
		resp.PricePerUnit = rate.PricePerUnit.StringFixed(2)
	}
	return resp
}

// HandleGetActiveRate returns the single active rate plan, cached briefly.
func HandleGetActiveRate(c *fiber.Ctx) error {
	if raw, err := cache.Get(activeRateCacheKey); err == nil && raw != "" {
		var rate models.RatePlan
		if err := json.Unmarshal([]byte(raw), &rate); err == nil {
			return c.JSON(rate)
		}
	}

	rate, err := repository.GetGlobalFactory().GetRateRepository().GetActive()
	if err != nil {
		return respondError(c, err)
	}

	if raw, err := json.Marshal(rate); err == nil {
		_ = cache.Set(activeRateCacheKey, string(raw), activeRateCacheTTL)
	}
	return c.JSON(rate)
}

// invalidateActiveRateCache is called by every admin rate mutation.
func invalidateActiveRateCache() {
	_ = cache.Delete(activeRateCacheKey)
}

// HandleCalculatePurchase previews the cost of buying the given units at the
// active rate.
func HandleCalculatePurchase(c *fiber.Ctx) error {
	units, err := parseUnits(c.Params("units"))
	if err != nil {
		return respondError(c, err)
	}

	cost, rate, err := Vending().CalculateCost(c.Context(), units)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"units":          units,
		"price_per_unit": rate.PricePerUnit,
		"total_cost":     cost,
		"rate_name":      rate.RateName,
	})
}

// mayPurchaseFor allows purchases for one's own account, or any account for
// admins.
func mayPurchaseFor(c *fiber.Ctx, userID uint) bool {
	if isAdmin, _ := c.Locals(middleware.KeyIsAdmin).(bool); isAdmin {
		return true
	}
	return currentUserID(c) == userID
}

// HandleBuyUnits executes a unit purchase for the user named in the path.
func HandleBuyUnits(c *fiber.Ctx) error {
	userID, err := paramUint(c, "userId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid user id"})
	}
	if !mayPurchaseFor(c, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Cannot purchase for another account"})
	}

	var req buyUnitsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	units, err := parseUnits(req.Units.String())
	if err != nil {
		return respondError(c, err)
	}

	trx, err := Vending().Purchase(c.Context(), vending.PurchaseInput{
		UserID:        userID,
		Units:         units,
		DeviceID:      req.DeviceID,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}

	rate, _ := repository.GetGlobalFactory().GetRateRepository().GetByID(trx.RateID)
	return c.JSON(newTransactionResponse(trx, rate))
}

// HandleJSONPurchase executes a purchase with the fixed direct_transfer
// payment method.
func HandleJSONPurchase(c *fiber.Ctx) error {
	userID, err := paramUint(c, "userId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid user id"})
	}

	if !mayPurchaseFor(c, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Cannot purchase for another account"})
	}

	var req jsonPurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	units, err := parseUnits(req.Units.String())
	if err != nil {
		return respondError(c, err)
	}

	trx, err := Vending().Purchase(c.Context(), vending.PurchaseInput{
		UserID:        userID,
		Units:         units,
		DeviceID:      req.DeviceID,
		PaymentMethod: vending.PaymentMethodDirectTransfer,
		Notes:         req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}

	rate, _ := repository.GetGlobalFactory().GetRateRepository().GetByID(trx.RateID)
	return c.JSON(newTransactionResponse(trx, rate))
}

// HandleUpdateTransactionStatus applies an explicit status transition.
// Completing a pending transaction credits balances exactly once.
func HandleUpdateTransactionStatus(c *fiber.Ctx) error {
	trxID, err := paramUint(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid transaction id"})
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	trx, err := Vending().UpdateTransactionStatus(c.Context(), trxID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(trx)
}
