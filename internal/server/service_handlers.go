package server

import (
	"context"

	"gigboard/internal/models"
	"gigboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// listServicesInput reads the catalog query parameters shared by the public
// listing and the per-expert listing.
func listServicesInput(c *fiber.Ctx, p Pagination) (service.ListServicesInput, error) {
	in := service.ListServicesInput{
		Category:     c.Query("category"),
		LocationType: c.Query("locationType"),
		Status:       c.Query("status"),
		Search:       c.Query("search"),
		SortBy:       c.Query("sortBy"),
		Order:        c.Query("order"),
		Limit:        p.Limit,
		Offset:       p.Offset,
	}

	var err error
	if in.MinPrice, err = queryFloat(c, "minPrice"); err != nil {
		return in, err
	}
	if in.MaxPrice, err = queryFloat(c, "maxPrice"); err != nil {
		return in, err
	}
	return in, nil
}

func serviceViews(services []models.Service) []models.ServiceView {
	views := make([]models.ServiceView, len(services))
	for i := range services {
		views[i] = services[i].View()
	}
	return views
}

// ListServices handles GET /api/services
// @Summary Browse services
// @Description Lists active services unless status says otherwise.
// @Tags services
// @Produce json
// @Param category query string false "Category"
// @Param minPrice query number false "Minimum price"
// @Param maxPrice query number false "Maximum price"
// @Param locationType query string false "remote, onsite or hybrid"
// @Param status query string false "Service status (default active)"
// @Param search query string false "Matches title, description and tags"
// @Param sortBy query string false "createdAt, price, views, applications or title"
// @Param order query string false "asc or desc"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Success 200 {object} object{data=[]models.ServiceView,pagination=PageMeta}
// @Failure 400 {object} models.ErrorResponse
// @Router /services [get]
func (s *Server) ListServices(c *fiber.Ctx) error {
	p := parsePagination(c, defaultPageLimit)
	in, err := listServicesInput(c, p)
	if err != nil {
		return s.fail(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	services, total, err := s.catalogService.List(ctx, in)
	if err != nil {
		return s.fail(c, err)
	}
	return paged(c, serviceViews(services), p, total)
}

// ListExpertServices handles GET /api/services/expert/:expertId
// @Summary List an expert's services
// @Tags services
// @Produce json
// @Param expertId path int true "Expert user ID"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Success 200 {object} object{data=[]models.ServiceView,pagination=PageMeta}
// @Router /services/expert/{expertId} [get]
func (s *Server) ListExpertServices(c *fiber.Ctx) error {
	expertID, err := s.parseID(c, "expertId")
	if err != nil {
		return nil
	}

	p := parsePagination(c, defaultPageLimit)
	in, err := listServicesInput(c, p)
	if err != nil {
		return s.fail(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	services, total, err := s.catalogService.ListByExpert(ctx, expertID, in)
	if err != nil {
		return s.fail(c, err)
	}
	return paged(c, serviceViews(services), p, total)
}

// GetService handles GET /api/services/:id
// @Summary Get a service
// @Description Returns the service with its pending applications. Views from anyone but the owner are counted once per session.
// @Tags services
// @Produce json
// @Param id path int true "Service ID"
// @Success 200 {object} object{data=models.ServiceDetail}
// @Failure 404 {object} models.ErrorResponse
// @Router /services/{id} [get]
func (s *Server) GetService(c *fiber.Ctx) error {
	serviceID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	detail, err := s.catalogService.Get(ctx, serviceID, s.viewerOf(c))
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, fiber.StatusOK, detail, "")
}

// CreateService handles POST /api/services
// @Summary Publish a service
// @Tags services
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateServiceInput true "Service"
// @Success 201 {object} object{data=models.ServiceView,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /services [post]
func (s *Server) CreateService(c *fiber.Ctx) error {
	var req service.CreateServiceInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	created, err := s.catalogService.Create(ctx, identity(c).ID, req)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, fiber.StatusCreated, created.View(), "Service created")
}

// UpdateService handles PUT /api/services/:id
// @Summary Update a service
// @Description Only the owning expert may update. Pricing and location are replaced whole.
// @Tags services
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Service ID"
// @Param request body service.UpdateServiceInput true "Fields to change"
// @Success 200 {object} object{data=models.ServiceView,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /services/{id} [put]
func (s *Server) UpdateService(c *fiber.Ctx) error {
	serviceID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req service.UpdateServiceInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	updated, err := s.catalogService.Update(ctx, serviceID, identity(c).ID, req)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, fiber.StatusOK, updated.View(), "Service updated")
}

// DeleteService handles DELETE /api/services/:id
// @Summary Delete a service
// @Description Refused while any application is still pending.
// @Tags services
// @Produce json
// @Security BearerAuth
// @Param id path int true "Service ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /services/{id} [delete]
func (s *Server) DeleteService(c *fiber.Ctx) error {
	serviceID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	if err := s.catalogService.Delete(ctx, serviceID, identity(c).ID); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Service deleted"})
}
