package handler

import (
	"go-apotek-pos/internal/service"
	"go-apotek-pos/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AuthHandler struct {
	auth service.AuthService
}

func NewAuthHandler(auth service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type validateTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// bindBody parses and validates the JSON body, writing the 400 itself.
// The returned bool is false when the handler should stop.
func bindBody(c *fiber.Ctx, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if verr := validator.First(dst); verr != nil {
		return false, c.Status(400).JSON(fiber.Map{
			"error": "Validation failed: Field '" + verr.FailedField + "' failed on tag '" + verr.Tag + "'",
			"code":  "VALIDATION_FAILED",
		})
	}
	return true, nil
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if ok, err := bindBody(c, &req); !ok {
		return err
	}

	resp, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if ok, err := bindBody(c, &req); !ok {
		return err
	}

	if err := h.auth.ResetPassword(c.UserContext(), req.Email, req.OldPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}

// Heartbeat marks the cashier online for the live dashboard.
// POST /api/v1/auth/heartbeat
func (h *AuthHandler) Heartbeat(c *fiber.Ctx) error {
	id, err := uuid.Parse(getUserID(c))
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if err := h.auth.Heartbeat(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "online"})
}

// POST /api/v1/auth/validate-token
func (h *AuthHandler) ValidateToken(c *fiber.Ctx) error {
	var req validateTokenRequest
	if ok, err := bindBody(c, &req); !ok {
		return err
	}

	resp, err := h.auth.ValidateToken(c.UserContext(), req.Token)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
