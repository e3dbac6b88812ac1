package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kmathenge/powervend/app/controllers"
	"github.com/kmathenge/powervend/internal/pkg/auth"
	"github.com/kmathenge/powervend/internal/pkg/middleware"
)

type AdminRouter struct {
	tokens *auth.TokenService
}

func NewAdminRouter() *AdminRouter {
	return &AdminRouter{tokens: auth.NewTokenServiceFromEnv()}
}

func (h AdminRouter) InstallRouter(app *fiber.App) {
	admin := app.Group("/admin", middleware.RequireAuth(h.tokens), middleware.RequireAdmin())

	admin.Get("/dashboard", controllers.HandleAdminDashboard)

	// User management
	admin.Get("/users", controllers.HandleAdminListUsers)
	admin.Get("/users/export", controllers.HandleAdminExportUsersCSV)
	admin.Get("/users/:id", controllers.HandleAdminGetUser)
	admin.Post("/users", controllers.HandleAdminCreateUser)
	admin.Post("/users/bulk", controllers.HandleAdminBulkCreateUsers)
	admin.Post("/users/bulk-action", controllers.HandleAdminBulkUserAction)
	admin.Put("/users/:id", controllers.HandleAdminUpdateUser)
	admin.Delete("/users/:id", controllers.HandleAdminDeleteUser)
	admin.Post("/users/:id/activate", controllers.HandleAdminSetUserActive(true))
	admin.Post("/users/:id/deactivate", controllers.HandleAdminSetUserActive(false))
	admin.Post("/users/:id/set-admin-role", controllers.HandleAdminSetAdminRole)
	admin.Post("/users/:id/assign-device", controllers.HandleAdminAssignDevice)

	// Device directory
	admin.Get("/devices", controllers.HandleAdminListDevices)
	admin.Post("/devices", controllers.HandleAdminCreateDevice)
	admin.Get("/devices/generate-meter-id", controllers.HandleAdminGenerateMeterID)
	admin.Get("/devices/:deviceId", controllers.HandleAdminGetDevice)
	admin.Post("/devices/:deviceId/unassign", controllers.HandleAdminUnassignDevice)
	admin.Post("/devices/:deviceId/make-primary", controllers.HandleAdminMakeDevicePrimary)

	// Rate catalog
	admin.Get("/rates", controllers.HandleAdminListRates)
	admin.Get("/rates/:id", controllers.HandleAdminGetRate)
	admin.Post("/rates", controllers.HandleAdminCreateRate)
	admin.Put("/rates/:id", controllers.HandleAdminUpdateRate)
	admin.Patch("/rates/:id/activate", controllers.HandleAdminActivateRate)
	admin.Delete("/rates/:id", controllers.HandleAdminDeleteRate)

	// Transactions
	admin.Get("/transactions", controllers.HandleAdminListTransactions)
	admin.Get("/transactions/export", controllers.HandleAdminExportTransactionsCSV)
	admin.Get("/transactions/summary", controllers.HandleAdminTransactionSummary)
	admin.Get("/transactions/reference/:reference", controllers.HandleAdminGetTransactionByReference)
	admin.Get("/transactions/:id", controllers.HandleAdminGetTransaction)
	admin.Put("/transactions/:id/status", controllers.HandleUpdateTransactionStatus)

	// System settings
	admin.Get("/settings", controllers.HandleAdminListSettings)
	admin.Get("/settings/:key", controllers.HandleAdminGetSetting)
	admin.Post("/settings", controllers.HandleAdminUpsertSetting)
	admin.Delete("/settings/:key", controllers.HandleAdminDeleteSetting)
}
