package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/kmathenge/powervend/app/models"
	"github.com/kmathenge/powervend/app/repository"
	"github.com/kmathenge/powervend/internal/pkg/env"
)

// HandleSetupSeed creates the development fixtures: two user accounts, an
// admin treasury account, the standard rate and one meter per user. It only
// runs in dev mode and is idempotent.
func HandleSetupSeed(c *fiber.Ctx) error {
	if !env.IsDev() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Seeding is only available in development"})
	}

	created := fiber.Map{
		"users":   []string{},
		"devices": []string{},
		"rates":   []string{},
	}
	createdUsers := []string{}
	createdDevices := []string{}
	createdRates := []string{}

	users := repository.GetGlobalFactory().GetUserRepository()
	devices := repository.GetGlobalFactory().GetDeviceRepository()
	rates := repository.GetGlobalFactory().GetRateRepository()

	type seedUser struct {
		username string
		email    string
		password string
		fullName string
		phone    string
		role     string
		balance  decimal.Decimal
	}
	seedUsers := []seedUser{
		{"user1", "user1@example.com", "password123", "Regular User One", "1234567890", models.ROLE_USER, decimal.NewFromInt(50)},
		{"user2", "user2@example.com", "password123", "Regular User Two", "2345678901", models.ROLE_USER, decimal.NewFromInt(75)},
		{"admin", "admin@example.com", "admin123", "System Administrator", "9876543210", models.ROLE_ADMIN, decimal.NewFromInt(100)},
	}

	seeded := map[string]uint{}
	for _, su := range seedUsers {
		if existing, err := users.GetByUsername(su.username); err == nil && existing != nil {
			seeded[su.username] = existing.ID
			continue
		}
		user, err := models.NewUser(su.username, su.email, su.password, su.fullName, su.phone)
		if err != nil {
			return respondError(c, err)
		}
		user.Role = su.role
		user.AccountBalance = su.balance
		if err := users.Create(user); err != nil {
			return respondError(c, err)
		}
		seeded[su.username] = user.ID
		createdUsers = append(createdUsers, su.username)
	}

	if active, err := rates.GetActive(); err != nil || active == nil {
		rate := &models.RatePlan{
			RateName:      "Standard Rate",
			PricePerUnit:  decimal.NewFromInt(10),
			IsActive:      true,
			EffectiveDate: time.Now().UTC(),
		}
		if err := rates.Create(rate); err != nil {
			return respondError(c, err)
		}
		invalidateActiveRateCache()
		createdRates = append(createdRates, rate.RateName)
	}

	type seedDevice struct {
		owner   string
		name    string
		online  bool
		balance decimal.Decimal
		signal  int
	}
	seedDevices := []seedDevice{
		{"user1", "User1's Meter", true, decimal.NewFromInt(50), 85},
		{"user2", "User2's Meter", false, decimal.NewFromInt(75), 70},
	}
	for _, sd := range seedDevices {
		ownerID, ok := seeded[sd.owner]
		if !ok {
			continue
		}
		if owned, err := devices.GetByUserID(ownerID); err == nil && len(owned) > 0 {
			continue
		}
		signal := sd.signal
		device := &models.Device{
			DeviceName:     sd.name,
			UserID:         &ownerID,
			IsOnline:       sd.online,
			UnitBalance:    sd.balance,
			SignalStrength: &signal,
			IsPrimary:      true,
		}
		if err := devices.Create(device); err != nil {
			return respondError(c, err)
		}
		createdDevices = append(createdDevices, device.DeviceID)
	}

	created["users"] = createdUsers
	created["devices"] = createdDevices
	created["rates"] = createdRates
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Database setup completed successfully",
		"created": created,
	})
}
