package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gigboard/internal/cache"
	"gigboard/internal/middleware"
	"gigboard/internal/models"
	"gigboard/internal/observability"
	"gigboard/internal/repository"
	"gigboard/internal/tasks"
	"gigboard/internal/validation"

	"github.com/redis/go-redis/v9"
)

// CatalogService manages services published by experts.
type CatalogService struct {
	services repository.ServiceRepository
	apps     repository.ApplicationRepository
	rdb      *redis.Client
	runner   tasks.Runner
	validate *validation.Validator
	viewTTL  time.Duration
}

type PricingInput struct {
	Type     string   `json:"type" validate:"omitempty,oneof=fixed hourly negotiable"`
	Amount   *float64 `json:"amount" validate:"omitempty,gte=0"`
	Currency string   `json:"currency" validate:"omitempty,len=3"`
}

type LocationInput struct {
	Type    string `json:"type" validate:"omitempty,oneof=remote onsite hybrid"`
	Address string `json:"address" validate:"max=255"`
	City    string `json:"city" validate:"max=100"`
	State   string `json:"state" validate:"max=100"`
	Country string `json:"country" validate:"max=100"`
}

type CreateServiceInput struct {
	Title        string        `json:"title" validate:"required,notblank,min=10,max=100"`
	Description  string        `json:"description" validate:"required,notblank,min=50,max=2000"`
	Category     string        `json:"category" validate:"required,category"`
	Subcategory  string        `json:"subcategory" validate:"max=100"`
	Pricing      PricingInput  `json:"pricing"`
	Duration     string        `json:"duration" validate:"required,notblank,max=100"`
	Requirements []string      `json:"requirements" validate:"max=20,dive,max=500"`
	Images       []string      `json:"images" validate:"max=5,dive,url"`
	Tags         []string      `json:"tags" validate:"max=20,dive,notblank,max=50"`
	Location     LocationInput `json:"location"`
}

// UpdateServiceInput lists the fields an owner may change. Nil means
// unchanged; pricing and location are replaced as a whole.
type UpdateServiceInput struct {
	Title        *string        `json:"title" validate:"omitempty,notblank,min=10,max=100"`
	Description  *string        `json:"description" validate:"omitempty,notblank,min=50,max=2000"`
	Category     *string        `json:"category" validate:"omitempty,category"`
	Subcategory  *string        `json:"subcategory" validate:"omitempty,max=100"`
	Pricing      *PricingInput  `json:"pricing"`
	Duration     *string        `json:"duration" validate:"omitempty,notblank,max=100"`
	Requirements []string       `json:"requirements" validate:"omitempty,max=20,dive,max=500"`
	Images       []string       `json:"images" validate:"omitempty,max=5,dive,url"`
	Tags         []string       `json:"tags" validate:"omitempty,max=20,dive,notblank,max=50"`
	Status       *string        `json:"status" validate:"omitempty,service_status"`
	Location     *LocationInput `json:"location"`
}

type ListServicesInput struct {
	Category     string
	MinPrice     *float64
	MaxPrice     *float64
	LocationType string
	Status       string
	Search       string
	SortBy       string
	Order        string
	Limit        int
	Offset       int
}

// Viewer identifies who is reading a service. UserID is zero for anonymous
// readers; Session distinguishes them for view counting.
type Viewer struct {
	UserID  uint
	Session string
}

func NewCatalogService(
	services repository.ServiceRepository,
	apps repository.ApplicationRepository,
	rdb *redis.Client,
	runner tasks.Runner,
	v *validation.Validator,
	viewTTL time.Duration,
) *CatalogService {
	return &CatalogService{
		services: services,
		apps:     apps,
		rdb:      rdb,
		runner:   runner,
		validate: v,
		viewTTL:  viewTTL,
	}
}

func (in PricingInput) model() models.Pricing {
	p := models.Pricing{Type: models.PricingType(in.Type), Amount: in.Amount, Currency: in.Currency}
	p.Normalize()
	return p
}

func (in LocationInput) model() models.ServiceLocation {
	loc := models.ServiceLocation{
		Type:    models.LocationType(in.Type),
		Address: in.Address,
		City:    in.City,
		State:   in.State,
		Country: in.Country,
	}
	if loc.Type == "" {
		loc.Type = models.LocationRemote
	}
	return loc
}

// Create publishes a new active service owned by expertID.
func (s *CatalogService) Create(ctx context.Context, expertID uint, in CreateServiceInput) (*models.Service, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	svc := &models.Service{
		ExpertID:     expertID,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Category:     models.ServiceCategory(in.Category),
		Subcategory:  in.Subcategory,
		Pricing:      in.Pricing.model(),
		Duration:     in.Duration,
		Requirements: in.Requirements,
		Images:       in.Images,
		Tags:         normalizeTags(in.Tags),
		Status:       models.ServiceStatusActive,
		Location:     in.Location.model(),
	}
	if err := svc.Pricing.Validate(); err != nil {
		return nil, err
	}

	if err := s.services.Create(ctx, svc); err != nil {
		return nil, err
	}
	return s.services.GetByID(ctx, svc.ID)
}

// List returns one page of services. Status defaults to active.
func (s *CatalogService) List(ctx context.Context, in ListServicesInput) ([]models.Service, int64, error) {
	filter, err := s.filter(in)
	if err != nil {
		return nil, 0, err
	}
	if filter.Status == "" {
		filter.Status = models.ServiceStatusActive
	}
	return s.services.List(ctx, filter, in.Limit, in.Offset)
}

// ListByExpert returns an expert's services in any status unless one is given.
func (s *CatalogService) ListByExpert(ctx context.Context, expertID uint, in ListServicesInput) ([]models.Service, int64, error) {
	filter, err := s.filter(in)
	if err != nil {
		return nil, 0, err
	}
	filter.ExpertID = expertID
	return s.services.List(ctx, filter, in.Limit, in.Offset)
}

func (s *CatalogService) filter(in ListServicesInput) (repository.ServiceFilter, error) {
	fields := map[string]string{}
	if in.Category != "" && !models.ServiceCategory(in.Category).Valid() {
		fields["category"] = "Invalid category"
	}
	if in.Status != "" && !models.ServiceStatus(in.Status).Valid() {
		fields["status"] = "Invalid service status"
	}
	switch models.LocationType(in.LocationType) {
	case "", models.LocationRemote, models.LocationOnsite, models.LocationHybrid:
	default:
		fields["locationType"] = "Must be one of: remote, onsite, hybrid"
	}
	if in.SortBy != "" {
		if _, ok := repository.ServiceSortColumns[in.SortBy]; !ok {
			fields["sortBy"] = "Must be one of: createdAt, price, views, applications, title"
		}
	}
	if in.Order != "" && !strings.EqualFold(in.Order, "asc") && !strings.EqualFold(in.Order, "desc") {
		fields["order"] = "Must be one of: asc, desc"
	}
	if in.MinPrice != nil && *in.MinPrice < 0 {
		fields["minPrice"] = "Must be greater than or equal to 0"
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		fields["maxPrice"] = "Must be greater than or equal to minPrice"
	}
	if len(fields) > 0 {
		return repository.ServiceFilter{}, models.NewFieldValidationError("Invalid query parameters", fields)
	}

	return repository.ServiceFilter{
		Category:     models.ServiceCategory(in.Category),
		MinPrice:     in.MinPrice,
		MaxPrice:     in.MaxPrice,
		LocationType: models.LocationType(in.LocationType),
		Status:       models.ServiceStatus(in.Status),
		Search:       in.Search,
		SortBy:       in.SortBy,
		Order:        in.Order,
	}, nil
}

// Get returns the service with its pending applications and counts the view
// once per viewer session. Owners do not count.
func (s *CatalogService) Get(ctx context.Context, id uint, viewer Viewer) (*models.ServiceDetail, error) {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	pending, err := s.apps.ListByService(ctx, id, models.ApplicationPending)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.ApplicationSummary, 0, len(pending))
	for i := range pending {
		summaries = append(summaries, pending[i].Summary())
	}

	if !svc.OwnedBy(viewer.UserID) {
		s.recordView(ctx, id, viewer.Session)
	}

	return &models.ServiceDetail{ServiceView: svc.View(), PendingApplications: summaries}, nil
}

func (s *CatalogService) recordView(ctx context.Context, id uint, session string) {
	if session != "" {
		first, err := cache.MarkViewed(ctx, s.rdb, id, session, s.viewTTL)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "view dedup unavailable", slog.String("error", err.Error()))
		} else if !first {
			return
		}
	}

	s.runner.Go("service:view", func(ctx context.Context) error {
		if err := s.services.IncrementViews(ctx, id); err != nil {
			return err
		}
		observability.ServiceViews.Inc()
		return nil
	})
}

// Update applies in to a service owned by requesterID.
func (s *CatalogService) Update(ctx context.Context, id, requesterID uint, in UpdateServiceInput) (*models.Service, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !svc.OwnedBy(requesterID) {
		return nil, models.NewForbiddenError("Not authorized to update this service")
	}

	if in.Title != nil {
		svc.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		svc.Description = *in.Description
	}
	if in.Category != nil {
		svc.Category = models.ServiceCategory(*in.Category)
	}
	if in.Subcategory != nil {
		svc.Subcategory = *in.Subcategory
	}
	if in.Pricing != nil {
		svc.Pricing = in.Pricing.model()
	}
	if in.Duration != nil {
		svc.Duration = *in.Duration
	}
	if in.Requirements != nil {
		svc.Requirements = in.Requirements
	}
	if in.Images != nil {
		svc.Images = in.Images
	}
	if in.Tags != nil {
		svc.Tags = normalizeTags(in.Tags)
	}
	if in.Status != nil {
		svc.Status = models.ServiceStatus(*in.Status)
	}
	if in.Location != nil {
		svc.Location = in.Location.model()
	}

	if err := svc.Pricing.Validate(); err != nil {
		return nil, err
	}
	if err := s.services.Update(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// Delete removes a service owned by requesterID that has no pending
// applications.
func (s *CatalogService) Delete(ctx context.Context, id, requesterID uint) error {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !svc.OwnedBy(requesterID) {
		return models.NewForbiddenError("Not authorized to delete this service")
	}
	return s.services.Delete(ctx, id)
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if _, dup := seen[t]; dup || t == "" {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
