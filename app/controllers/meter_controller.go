package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kmathenge/powervend/app/repository"
)

type meterDataRequest struct {
	DeviceID       string `json:"device_id" validate:"required"`
	IsOnline       bool   `json:"is_online"`
	SignalStrength *int   `json:"signal_strength" validate:"omitempty,min=0,max=100"`
}

// HandleMeterStatus reports a meter's directory entry including online
// state, unit balance and last contact.
func HandleMeterStatus(c *fiber.Ctx) error {
	device, err := repository.GetGlobalFactory().GetDeviceRepository().GetByDeviceID(c.Params("deviceId"))
	if err != nil {
		return respondError(c, err)
	}

	lastPurchase, _ := repository.GetGlobalFactory().GetTransactionRepository().LastCompletedForDevice(device.DeviceID)

	return c.JSON(fiber.Map{
		"device":        device,
		"last_purchase": lastPurchase,
	})
}

// HandleMeterData ingests a telemetry report. The meter id in the URL must
// match the one in the payload.
func HandleMeterData(c *fiber.Ctx) error {
	var req meterDataRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if c.Params("deviceId") != req.DeviceID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "Device ID in URL does not match device ID in payload"})
	}

	device, err := repository.GetGlobalFactory().GetDeviceRepository().UpdateTelemetry(req.DeviceID, req.IsOnline, req.SignalStrength)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Telemetry recorded",
		"device":  device,
	})
}
