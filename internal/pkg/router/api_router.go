package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/kmathenge/powervend/app/controllers"
	"github.com/kmathenge/powervend/internal/pkg/auth"
	"github.com/kmathenge/powervend/internal/pkg/database"
	"github.com/kmathenge/powervend/internal/pkg/middleware"
)

type ApiRouter struct {
	tokens *auth.TokenService
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{tokens: auth.NewTokenServiceFromEnv()}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "PowerVend API"})
	})
	app.Get("/health", handleHealth)

	// Public endpoints, rate limited.
	public := app.Group("/", limiter.New(limiter.Config{Max: 60}))
	public.Post("/login", controllers.HandleLogin(h.tokens))
	public.Post("/register", controllers.HandleRegister)
	public.Get("/check-rates", controllers.HandleCheckRates)
	public.Get("/active-rate", controllers.HandleGetActiveRate)
	public.Get("/calculate-purchase/:units", controllers.HandleCalculatePurchase)

	// Meter devices report without user credentials.
	meter := app.Group("/meter")
	meter.Get("/:deviceId/status", controllers.HandleMeterStatus)
	meter.Post("/:deviceId/data", controllers.HandleMeterData)

	// WhatsApp webhook (verified by Meta's token handshake).
	wa := app.Group("/whatsapp")
	wa.Get("/webhook", controllers.HandleWhatsAppVerify)
	wa.Post("/webhook", controllers.HandleWhatsAppWebhook)

	// Development seeding.
	app.Post("/setup/seed", controllers.HandleSetupSeed)

	// Authenticated user endpoints.
	authed := app.Group("/", middleware.RequireAuth(h.tokens))
	authed.Post("/change-password", controllers.HandleChangePassword)

	authed.Post("/users/buy-units/:userId", controllers.HandleBuyUnits)
	authed.Post("/users/purchase-json/:userId", controllers.HandleJSONPurchase)

	authed.Get("/users/:id", controllers.HandleGetUser)
	authed.Get("/users/:id/with-devices", controllers.HandleGetUserWithDevices)
	authed.Put("/users/:id", controllers.HandleUpdateProfile)
	authed.Get("/users/:id/transactions", controllers.HandleListUserTransactions)
	authed.Get("/users/:id/devices", controllers.HandleListUserDevices)

	authed.Get("/device-details/:deviceId", controllers.HandleGetDeviceDetails)
	authed.Put("/devices/:id/:deviceId", controllers.HandleRenameUserDevice)
	authed.Put("/devices/:deviceId", controllers.HandleRenameDevice)
	authed.Post("/devices/:deviceId/primary", controllers.HandleMakeDevicePrimary)
}

func handleHealth(c *fiber.Ctx) error {
	sqlDB, err := database.GetDB().DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "database": "down"})
	}
	return c.JSON(fiber.Map{"status": "ok", "database": "up"})
}
