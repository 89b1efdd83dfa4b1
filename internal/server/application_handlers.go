package server

import (
	"context"

	"gigboard/internal/models"
	"gigboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

func applicationViews(apps []models.Application) []models.ApplicationView {
	views := make([]models.ApplicationView, len(apps))
	for i := range apps {
		views[i] = apps[i].View()
	}
	return views
}

// ApplyToService handles POST /api/services/:id/apply
// @Summary Apply to a service
// @Description One application per client and service. Experts are notified by email.
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Service ID"
// @Param request body service.ApplyInput true "Application"
// @Success 201 {object} object{data=models.ApplicationView,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /services/{id}/apply [post]
func (s *Server) ApplyToService(c *fiber.Ctx) error {
	serviceID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req service.ApplyInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	app, err := s.applicationService.Apply(ctx, identity(c).ID, serviceID, req)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, fiber.StatusCreated, app.View(), "Application submitted")
}

// ListServiceApplications handles GET /api/services/:id/applications
// @Summary List applications for one of your services
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Service ID"
// @Param status query string false "pending, accepted, rejected or withdrawn"
// @Success 200 {object} object{data=[]models.ApplicationView}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /services/{id}/applications [get]
func (s *Server) ListServiceApplications(c *fiber.Ctx) error {
	serviceID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	apps, err := s.applicationService.ListForService(ctx, identity(c).ID, serviceID, c.Query("status"))
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, fiber.StatusOK, applicationViews(apps), "")
}

// ListMyApplications handles GET /api/applications/my-applications
// @Summary List your applications
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, accepted, rejected or withdrawn"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Success 200 {object} object{data=[]models.ApplicationView,pagination=PageMeta}
// @Router /applications/my-applications [get]
func (s *Server) ListMyApplications(c *fiber.Ctx) error {
	p := parsePagination(c, defaultPageLimit)

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	apps, total, err := s.applicationService.ListMine(ctx, identity(c).ID, service.ListApplicationsInput{
		Status: c.Query("status"),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return paged(c, applicationViews(apps), p, total)
}

// RespondToApplication handles PUT /api/applications/:id/status
// @Summary Accept or reject an application
// @Description Only the expert who owns the service may respond, and only while the application is pending.
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param request body service.RespondInput true "Decision"
// @Success 200 {object} object{data=models.ApplicationView,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /applications/{id}/status [put]
func (s *Server) RespondToApplication(c *fiber.Ctx) error {
	applicationID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req service.RespondInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	app, err := s.applicationService.Respond(ctx, identity(c).ID, applicationID, req)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, fiber.StatusOK, app.View(), "Application "+string(app.Status))
}

// WithdrawApplication handles PUT /api/applications/:id/withdraw
// @Summary Withdraw your application
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} object{data=models.ApplicationView,message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /applications/{id}/withdraw [put]
func (s *Server) WithdrawApplication(c *fiber.Ctx) error {
	applicationID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	app, err := s.applicationService.Withdraw(ctx, identity(c).ID, applicationID)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, fiber.StatusOK, app.View(), "Application withdrawn")
}
