package controllers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreasuryAccountID(t *testing.T) {
	assert.Equal(t, uint(3), treasuryAccountID())

	t.Setenv("TREASURY_ACCOUNT_ID", "42")
	assert.Equal(t, uint(42), treasuryAccountID())

	t.Setenv("TREASURY_ACCOUNT_ID", "not-a-number")
	assert.Equal(t, uint(3), treasuryAccountID())

	t.Setenv("TREASURY_ACCOUNT_ID", "0")
	assert.Equal(t, uint(3), treasuryAccountID())
}

func TestDeleteUserRefusesTreasuryAccount(t *testing.T) {
	app := fiber.New()
	app.Delete("/admin/users/:id", HandleAdminDeleteUser)

	req := httptest.NewRequest("DELETE", "/admin/users/3", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestDeleteUserRefusesConfiguredTreasuryAccount(t *testing.T) {
	t.Setenv("TREASURY_ACCOUNT_ID", "7")

	app := fiber.New()
	app.Delete("/admin/users/:id", HandleAdminDeleteUser)

	req := httptest.NewRequest("DELETE", "/admin/users/7", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestSetAdminRoleRefusesDemotingTreasuryAccount(t *testing.T) {
	app := fiber.New()
	app.Post("/admin/users/:id/set-admin-role", HandleAdminSetAdminRole)

	req := httptest.NewRequest("POST", "/admin/users/3/set-admin-role", strings.NewReader(`{"is_admin": false}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
