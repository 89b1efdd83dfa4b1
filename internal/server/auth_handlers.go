package server

import (
	"context"

	"gigboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create a client or expert account. A verification link is emailed.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "Registration"
// @Success 201 {object} object{data=service.AuthResult,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	result, err := s.authService.Register(ctx, req)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, fiber.StatusCreated, result, "Registration successful. Please verify your email.")
}

// Login handles POST /api/auth/login
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "Credentials"
// @Success 200 {object} object{data=service.AuthResult}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req service.LoginInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	result, err := s.authService.Login(ctx, req)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, fiber.StatusOK, result, "")
}

// ForgotPassword handles POST /api/auth/forgot-password
// @Summary Request a password reset
// @Description Always answers 200 so the endpoint cannot be used to probe for accounts.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.ForgotPasswordInput true "Email"
// @Success 200 {object} object{message=string}
// @Router /auth/forgot-password [post]
func (s *Server) ForgotPassword(c *fiber.Ctx) error {
	var req service.ForgotPasswordInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	if err := s.authService.ForgotPassword(ctx, req); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "If that email is registered, a reset link has been sent."})
}

// ResetPassword handles POST /api/auth/reset-password
// @Summary Reset password with an emailed token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.ResetPasswordInput true "Token and new password"
// @Success 200 {object} object{data=service.AuthResult,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/reset-password [post]
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req service.ResetPasswordInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	result, err := s.authService.ResetPassword(ctx, req)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, fiber.StatusOK, result, "Password has been reset")
}

// VerifyEmail handles GET /api/auth/verify-email/:token
// @Summary Verify an email address
// @Tags auth
// @Produce json
// @Param token path string true "Verification token"
// @Success 200 {object} object{data=models.User,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/verify-email/{token} [get]
func (s *Server) VerifyEmail(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	user, err := s.authService.VerifyEmail(ctx, c.Params("token"))
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, fiber.StatusOK, user, "Email verified")
}

// ChangePassword handles PUT /api/auth/change-password
// @Summary Change password
// @Description Rotates the credential; tokens issued before the change stop working.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ChangePasswordInput true "Current and new password"
// @Success 200 {object} object{data=service.AuthResult,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/change-password [put]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req service.ChangePasswordInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	result, err := s.authService.ChangePassword(ctx, identity(c).ID, req)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, fiber.StatusOK, result, "Password updated")
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revokes the presented token.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	if err := s.authService.Logout(ctx, identity(c).Claims); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}
