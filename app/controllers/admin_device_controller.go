package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kmathenge/powervend/app/models"
	"github.com/kmathenge/powervend/app/repository"
)

type createDeviceRequest struct {
	DeviceID   string `json:"device_id"` // empty means generate a fresh meter id
	DeviceName string `json:"device_name" validate:"omitempty,max=100"`
	UserID     *uint  `json:"user_id"`
	IsPrimary  bool   `json:"is_primary"`
}

// HandleAdminListDevices lists all registered meters, paginated.
func HandleAdminListDevices(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	devices, err := repository.GetGlobalFactory().GetDeviceRepository().List(offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(devices)
}

// HandleAdminGetDevice returns one meter by its meter id.
func HandleAdminGetDevice(c *fiber.Ctx) error {
	device, err := repository.GetGlobalFactory().GetDeviceRepository().GetByDeviceID(c.Params("deviceId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(device)
}

// HandleAdminCreateDevice registers a meter. Without a device_id in the body
// a fresh MTR id is generated.
func HandleAdminCreateDevice(c *fiber.Ctx) error {
	var req createDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	device := &models.Device{
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
		UserID:     req.UserID,
		IsPrimary:  req.IsPrimary,
	}
	if err := repository.GetGlobalFactory().GetDeviceRepository().Create(device); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(device)
}

// HandleAdminGenerateMeterID returns a fresh unused meter id without
// registering it.
func HandleAdminGenerateMeterID(c *fiber.Ctx) error {
	meterID, err := repository.GetGlobalFactory().GetDeviceRepository().GenerateMeterID()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"device_id": meterID})
}

// HandleAdminUnassignDevice detaches a meter from its owner.
func HandleAdminUnassignDevice(c *fiber.Ctx) error {
	device, err := repository.GetGlobalFactory().GetDeviceRepository().Unassign(c.Params("deviceId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(device)
}

// HandleAdminMakeDevicePrimary marks a meter as its owner's default
// purchase target.
func HandleAdminMakeDevicePrimary(c *fiber.Ctx) error {
	device, err := repository.GetGlobalFactory().GetDeviceRepository().MakePrimary(c.Params("deviceId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(device)
}
