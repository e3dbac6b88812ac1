package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kmathenge/powervend/app/models"
	"github.com/kmathenge/powervend/app/repository"
	"github.com/kmathenge/powervend/internal/pkg/middleware"
)

type updateProfileRequest struct {
	Email       *string `json:"email" validate:"omitempty,email"`
	FullName    *string `json:"full_name" validate:"omitempty,max=100"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=30"`
}

type renameDeviceRequest struct {
	DeviceName string `json:"device_name" validate:"required,min=1,max=100"`
}

// currentUserID reads the authenticated user id placed by RequireAuth.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(middleware.KeyUserID).(uint)
	return id
}

// mayAccessUser allows access to one's own account, or any account for
// admins.
func mayAccessUser(c *fiber.Ctx, userID uint) bool {
	if isAdmin, _ := c.Locals(middleware.KeyIsAdmin).(bool); isAdmin {
		return true
	}
	return currentUserID(c) == userID
}

// pathUserID parses the :id path parameter and enforces ownership. When it
// returns ok=false the error response has already been written.
func pathUserID(c *fiber.Ctx) (uint, bool) {
	id, err := paramUint(c, "id")
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid user id"})
		return 0, false
	}
	if !mayAccessUser(c, id) {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Cannot access another account"})
		return 0, false
	}
	return id, true
}

// HandleGetUser returns one account. Non-admins can only read their own.
func HandleGetUser(c *fiber.Ctx) error {
	id, ok := pathUserID(c)
	if !ok {
		return nil
	}
	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleGetUserWithDevices returns the account together with its meters.
func HandleGetUserWithDevices(c *fiber.Ctx) error {
	id, ok := pathUserID(c)
	if !ok {
		return nil
	}
	user, err := repository.GetGlobalFactory().GetUserRepository().GetWithDevices(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleUpdateProfile applies the fields present in the request body.
func HandleUpdateProfile(c *fiber.Ctx) error {
	id, ok := pathUserID(c)
	if !ok {
		return nil
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().ApplyPatch(id, repository.UserPatch{
		Email:       req.Email,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleListUserTransactions lists the account's purchase history, newest
// first, optionally filtered by status.
func HandleListUserTransactions(c *fiber.Ctx) error {
	id, ok := pathUserID(c)
	if !ok {
		return nil
	}

	status := c.Query("status")
	if status != "" && !models.ValidTransactionStatus(status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "Unknown transaction status"})
	}
	offset, limit := pagination(c)

	transactions, err := repository.GetGlobalFactory().GetTransactionRepository().ListByUser(id, offset, limit, status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(transactions)
}

// HandleListUserDevices lists the meters assigned to the account.
func HandleListUserDevices(c *fiber.Ctx) error {
	id, ok := pathUserID(c)
	if !ok {
		return nil
	}
	devices, err := repository.GetGlobalFactory().GetDeviceRepository().GetByUserID(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(devices)
}

// ownedDevice looks the meter up and enforces ownership for non-admins.
// When it returns ok=false the error response has already been written.
func ownedDevice(c *fiber.Ctx) (*models.Device, bool) {
	device, err := repository.GetGlobalFactory().GetDeviceRepository().GetByDeviceID(c.Params("deviceId"))
	if err != nil {
		_ = respondError(c, err)
		return nil, false
	}
	if isAdmin, _ := c.Locals(middleware.KeyIsAdmin).(bool); !isAdmin && !device.BelongsTo(currentUserID(c)) {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Device belongs to another account"})
		return nil, false
	}
	return device, true
}

// HandleGetDeviceDetails returns one of the caller's meters.
func HandleGetDeviceDetails(c *fiber.Ctx) error {
	device, ok := ownedDevice(c)
	if !ok {
		return nil
	}
	return c.JSON(device)
}

// HandleRenameDevice lets a user rename a meter they own.
func HandleRenameDevice(c *fiber.Ctx) error {
	var req renameDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	device, ok := ownedDevice(c)
	if !ok {
		return nil
	}

	device, err := repository.GetGlobalFactory().GetDeviceRepository().UpdateName(device.DeviceID, req.DeviceName)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(device)
}

// HandleRenameUserDevice renames a meter addressed by user id and device id.
// The meter must be assigned to the user in the path.
func HandleRenameUserDevice(c *fiber.Ctx) error {
	id, ok := pathUserID(c)
	if !ok {
		return nil
	}

	var req renameDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	device, err := repository.GetGlobalFactory().GetDeviceRepository().GetByDeviceID(c.Params("deviceId"))
	if err != nil {
		return respondError(c, err)
	}
	if !device.BelongsTo(id) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Device belongs to another account"})
	}

	device, err = repository.GetGlobalFactory().GetDeviceRepository().UpdateName(device.DeviceID, req.DeviceName)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(device)
}

// HandleMakeDevicePrimary marks one of the caller's meters as the default
// purchase target.
func HandleMakeDevicePrimary(c *fiber.Ctx) error {
	device, ok := ownedDevice(c)
	if !ok {
		return nil
	}

	device, err := repository.GetGlobalFactory().GetDeviceRepository().MakePrimary(device.DeviceID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(device)
}
