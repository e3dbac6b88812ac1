package controllers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmathenge/powervend/internal/pkg/middleware"
)

func deviceTestApp(userID uint, isAdmin bool) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.KeyUserID, userID)
		c.Locals(middleware.KeyIsAdmin, isAdmin)
		return c.Next()
	})
	app.Put("/devices/:id/:deviceId", HandleRenameUserDevice)
	return app
}

func TestRenameUserDeviceRefusesOtherAccounts(t *testing.T) {
	app := deviceTestApp(5, false)

	req := httptest.NewRequest("PUT", "/devices/9/MTR0000001", strings.NewReader(`{"device_name": "Kitchen"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRenameUserDeviceRejectsMalformedBody(t *testing.T) {
	app := deviceTestApp(5, false)

	req := httptest.NewRequest("PUT", "/devices/5/MTR0000001", strings.NewReader(`not json`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRenameUserDeviceRejectsEmptyName(t *testing.T) {
	app := deviceTestApp(5, false)

	req := httptest.NewRequest("PUT", "/devices/5/MTR0000001", strings.NewReader(`{"device_name": ""}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
