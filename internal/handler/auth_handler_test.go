package handler

import (
	"context"
	"net/http"
	"testing"

	"go-apotek-pos/internal/model"
	"go-apotek-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	service.AuthService
	loginErr  error
	resetErr  error
	heartbeat []uuid.UUID
}

func (s *stubAuth) Login(_ context.Context, email, _ string) (*service.LoginResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &service.LoginResponse{Token: "signed", User: model.UserResponse{Email: email}}, nil
}

func (s *stubAuth) ResetPassword(context.Context, string, string, string) error {
	return s.resetErr
}

func (s *stubAuth) Heartbeat(_ context.Context, id uuid.UUID) error {
	s.heartbeat = append(s.heartbeat, id)
	return nil
}

func authApp(auth *stubAuth) *fiber.App {
	app := fiber.New()
	h := NewAuthHandler(auth)
	app.Post("/auth/login", h.Login)
	app.Post("/auth/reset-password", h.ResetPassword)
	app.Post("/auth/heartbeat", withUser(model.RoleCashier), h.Heartbeat)
	return app
}

func TestLogin(t *testing.T) {
	status, body := doJSON(t, authApp(&stubAuth{}), http.MethodPost, "/auth/login",
		fiber.Map{"email": "kasir@apotek.com", "password": "rahasia"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "signed", body["token"])

	status, body = doJSON(t, authApp(&stubAuth{}), http.MethodPost, "/auth/login", fiber.Map{"email": "kasir@apotek.com"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])

	status, _ = doJSON(t, authApp(&stubAuth{loginErr: service.ErrInvalidCredentials}), http.MethodPost, "/auth/login",
		fiber.Map{"email": "kasir@apotek.com", "password": "salah"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestResetPassword(t *testing.T) {
	req := fiber.Map{"email": "kasir@apotek.com", "old_password": "lama123", "new_password": "baru123"}

	status, _ := doJSON(t, authApp(&stubAuth{}), http.MethodPost, "/auth/reset-password", req)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, authApp(&stubAuth{resetErr: service.ErrWrongPassword}), http.MethodPost, "/auth/reset-password", req)
	assert.Equal(t, fiber.StatusBadRequest, status)

	short := fiber.Map{"email": "kasir@apotek.com", "old_password": "lama123", "new_password": "123"}
	status, body := doJSON(t, authApp(&stubAuth{}), http.MethodPost, "/auth/reset-password", short)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
}

func TestHeartbeatUsesAuthenticatedUser(t *testing.T) {
	auth := &stubAuth{}
	status, body := doJSON(t, authApp(auth), http.MethodPost, "/auth/heartbeat", fiber.Map{})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "online", body["status"])
	require.Len(t, auth.heartbeat, 1)
	assert.NotEqual(t, uuid.Nil, auth.heartbeat[0])
}
