package server

import (
	"context"
	"strconv"

	"gigboard/internal/models"
	"gigboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/users/profile
// @Summary Get own profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{data=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /users/profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	user, err := s.userService.GetProfile(ctx, identity(c).ID)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, fiber.StatusOK, user, "")
}

// UpdateProfile handles PUT /api/users/profile
// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.UpdateProfileInput true "Fields to change"
// @Success 200 {object} object{data=models.User,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /users/profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	user, err := s.userService.UpdateProfile(ctx, identity(c).ID, req)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, fiber.StatusOK, user, "Profile updated")
}

// ListUsers handles GET /api/admin/users
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param role query string false "client, expert or admin"
// @Param active query bool false "Filter by account state"
// @Param search query string false "Name or email substring"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} object{data=[]models.User,pagination=PageMeta}
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	p := parsePagination(c, defaultAdminPageSize)

	in := service.ListUsersInput{
		Role:   c.Query("role"),
		Search: c.Query("search"),
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return s.fail(c, models.NewFieldValidationError("Invalid query parameters",
				map[string]string{"active": "must be true or false"}))
		}
		in.Active = &active
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	users, total, err := s.userService.ListUsers(ctx, in)
	if err != nil {
		return s.fail(c, err)
	}
	return paged(c, users, p, total)
}

// SetUserActive handles PUT /api/admin/users/:id/active
// @Summary Activate or deactivate a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body object{active=bool} true "New state"
// @Success 200 {object} object{data=models.User,message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/active [put]
func (s *Server) SetUserActive(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Active *bool `json:"active"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	if req.Active == nil {
		return s.fail(c, models.NewFieldValidationError("Validation failed",
			map[string]string{"active": "is required"}))
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	user, err := s.userService.SetActive(ctx, identity(c).ID, userID, *req.Active)
	if err != nil {
		return s.fail(c, err)
	}
	message := "User activated"
	if !user.IsActive {
		message = "User deactivated"
	}
	return ok(c, fiber.StatusOK, user, message)
}
