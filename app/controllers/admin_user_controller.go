package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/kmathenge/powervend/app/models"
	"github.com/kmathenge/powervend/app/repository"
	"github.com/kmathenge/powervend/internal/pkg/export"
)

type createUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FullName    string `json:"full_name" validate:"omitempty,max=100"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=30"`
	Role        string `json:"role" validate:"omitempty,oneof=user admin"`
}

type adminUpdateUserRequest struct {
	Email       *string `json:"email" validate:"omitempty,email"`
	FullName    *string `json:"full_name" validate:"omitempty,max=100"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=30"`
	Password    *string `json:"password" validate:"omitempty,min=8"`
	Role        *string `json:"role" validate:"omitempty,oneof=user admin"`
	IsActive    *bool   `json:"is_active"`
	Balance     *string `json:"account_balance"`
}

type bulkCreateUsersRequest struct {
	Users []createUserRequest `json:"users" validate:"required,min=1,max=100,dive"`
}

type bulkUserActionRequest struct {
	UserIDs []uint `json:"user_ids" validate:"required,min=1"`
	Action  string `json:"action" validate:"required,oneof=activate deactivate"`
}

type assignDeviceRequest struct {
	DeviceID    string `json:"device_id" validate:"required"`
	DeviceName  string `json:"device_name" validate:"omitempty,max=100"`
	MakePrimary bool   `json:"make_primary"`
}

// HandleAdminListUsers lists all accounts, paginated.
func HandleAdminListUsers(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	users, err := repository.GetGlobalFactory().GetUserRepository().List(offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// HandleAdminGetUser returns one account with its devices.
func HandleAdminGetUser(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid user id"})
	}
	user, err := repository.GetGlobalFactory().GetUserRepository().GetWithDevices(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleAdminCreateUser creates a single account.
func HandleAdminCreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	user, err := createUserFromRequest(req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// HandleAdminBulkCreateUsers creates up to 100 accounts in one call. Rows
// that collide on username or email are reported per row instead of failing
// the whole batch.
func HandleAdminBulkCreateUsers(c *fiber.Ctx) error {
	var req bulkCreateUsersRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	created := make([]models.User, 0, len(req.Users))
	failed := make([]fiber.Map, 0)
	for _, row := range req.Users {
		user, err := createUserFromRequest(row)
		if err != nil {
			failed = append(failed, fiber.Map{"username": row.Username, "error": err.Error()})
			continue
		}
		created = append(created, *user)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"created": created,
		"failed":  failed,
	})
}

// HandleAdminBulkUserAction activates or deactivates a batch of accounts.
func HandleAdminBulkUserAction(c *fiber.Ctx) error {
	var req bulkUserActionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	active := req.Action == "activate"
	updated := 0
	failed := make([]fiber.Map, 0)
	for _, id := range req.UserIDs {
		if _, err := repo.SetActive(id, active); err != nil {
			failed = append(failed, fiber.Map{"user_id": id, "error": err.Error()})
			continue
		}
		updated++
	}

	return c.JSON(fiber.Map{"updated": updated, "failed": failed})
}

// HandleAdminUpdateUser applies an admin patch, including role, active flag
// and a direct balance adjustment.
func HandleAdminUpdateUser(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid user id"})
	}

	var req adminUpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	patch := repository.UserPatch{
		Email:       req.Email,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		Role:        req.Role,
		IsActive:    req.IsActive,
	}
	if req.Balance != nil {
		balance, err := decimal.NewFromString(*req.Balance)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "account_balance must be a decimal number"})
		}
		patch.Balance = &balance
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().ApplyPatch(id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleAdminDeleteUser removes an account. The treasury account and
// accounts with transaction history are refused; devices of deleted
// accounts are detached instead of deleted.
func HandleAdminDeleteUser(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid user id"})
	}
	if id == treasuryAccountID() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Cannot delete the treasury account"})
	}
	if err := repository.GetGlobalFactory().GetUserRepository().Delete(id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted"})
}

// HandleAdminSetUserActive flips the active flag; the path tells which way.
func HandleAdminSetUserActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUint(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid user id"})
		}
		user, err := repository.GetGlobalFactory().GetUserRepository().SetActive(id, active)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(user)
	}
}

// HandleAdminSetAdminRole grants or revokes the admin role.
func HandleAdminSetAdminRole(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid user id"})
	}

	var req struct {
		IsAdmin bool `json:"is_admin"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}

	if id == treasuryAccountID() && !req.IsAdmin {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Cannot demote the treasury account"})
	}

	role := models.ROLE_USER
	if req.IsAdmin {
		role = models.ROLE_ADMIN
	}
	user, err := repository.GetGlobalFactory().GetUserRepository().SetRole(id, role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleAdminAssignDevice assigns a meter to the user in the path, creating
// the registration if the meter is unknown.
func HandleAdminAssignDevice(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid user id"})
	}

	var req assignDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	device, err := repository.GetGlobalFactory().GetDeviceRepository().Assign(req.DeviceID, id, req.DeviceName, req.MakePrimary)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(device)
}

// HandleAdminExportUsersCSV streams all accounts as a CSV download.
func HandleAdminExportUsersCSV(c *fiber.Ctx) error {
	// Limit -1 disables pagination for the export.
	users, err := repository.GetGlobalFactory().GetUserRepository().List(0, -1)
	if err != nil {
		return respondError(c, err)
	}

	data, err := export.UsersCSV(users)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="users.csv"`)
	return c.Send(data)
}

func createUserFromRequest(req createUserRequest) (*models.User, error) {
	repo := repository.GetGlobalFactory().GetUserRepository()

	if existing, err := repo.GetByUsername(req.Username); err == nil && existing != nil {
		return nil, repository.ErrUsernameTaken
	}
	if existing, err := repo.GetByEmail(req.Email); err == nil && existing != nil {
		return nil, repository.ErrEmailTaken
	}

	user, err := models.NewUser(req.Username, req.Email, req.Password, req.FullName, req.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if err := repo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}
