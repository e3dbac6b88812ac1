package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kmathenge/powervend/app/models"
	"github.com/kmathenge/powervend/app/repository"
	"github.com/kmathenge/powervend/internal/pkg/statistics"
)

type settingRequest struct {
	SettingKey   string `json:"setting_key" validate:"required,min=1,max=100"`
	SettingValue string `json:"setting_value" validate:"required"`
	Description  string `json:"description" validate:"omitempty,max=255"`
}

// HandleAdminDashboard returns the cached dashboard counters, refreshing
// them in the background when stale.
func HandleAdminDashboard(c *fiber.Ctx) error {
	statistics.UpdateCacheIfNeeded()

	data, err := statistics.GetDashboardData()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(data)
}

// HandleAdminListSettings lists all system settings.
func HandleAdminListSettings(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	settings, err := repository.GetGlobalFactory().GetSettingRepository().List(offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(settings)
}

// HandleAdminGetSetting returns one setting by key.
func HandleAdminGetSetting(c *fiber.Ctx) error {
	setting, err := repository.GetGlobalFactory().GetSettingRepository().GetByKey(c.Params("key"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(setting)
}

// HandleAdminUpsertSetting creates the setting or updates its value,
// recording which admin wrote it.
func HandleAdminUpsertSetting(c *fiber.Ctx) error {
	var req settingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	adminID := currentUserID(c)
	repo := repository.GetGlobalFactory().GetSettingRepository()

	existing, err := repo.GetByKey(req.SettingKey)
	if err == nil && existing != nil {
		existing.SettingValue = req.SettingValue
		if req.Description != "" {
			existing.Description = req.Description
		}
		existing.UpdatedBy = &adminID
		if err := repo.Update(existing); err != nil {
			return respondError(c, err)
		}
		return c.JSON(existing)
	}

	setting := &models.SystemSetting{
		SettingKey:   req.SettingKey,
		SettingValue: req.SettingValue,
		Description:  req.Description,
		UpdatedBy:    &adminID,
	}
	if err := repo.Create(setting); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(setting)
}

// HandleAdminDeleteSetting removes a setting by key.
func HandleAdminDeleteSetting(c *fiber.Ctx) error {
	if err := repository.GetGlobalFactory().GetSettingRepository().Delete(c.Params("key")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Setting deleted"})
}
