package repository

import (
	"context"
	"errors"
	"strings"

	"gigboard/internal/models"
	"gigboard/internal/observability"

	"gorm.io/gorm"
)

// ServiceFilter selects services for listings. Zero values mean "any".
type ServiceFilter struct {
	Category     models.ServiceCategory
	MinPrice     *float64
	MaxPrice     *float64
	LocationType models.LocationType
	Status       models.ServiceStatus
	ExpertID     uint
	Search       string
	SortBy       string
	Order        string
}

// ServiceSortColumns maps public sort keys to columns.
var ServiceSortColumns = map[string]string{
	"createdAt":    "created_at",
	"price":        "pricing_amount",
	"views":        "views_count",
	"applications": "applications_count",
	"title":        "title",
}

// serviceUpdatableColumns are the columns an owner may change.
var serviceUpdatableColumns = []string{
	"title", "description", "category", "subcategory",
	"pricing_type", "pricing_amount", "pricing_currency",
	"duration", "requirements", "images", "tags", "status",
	"location_type", "location_address", "location_city", "location_state", "location_country",
	"updated_at",
}

// ServiceRepository defines persistence operations for services.
type ServiceRepository interface {
	Create(ctx context.Context, service *models.Service) error
	GetByID(ctx context.Context, id uint) (*models.Service, error)
	List(ctx context.Context, filter ServiceFilter, limit, offset int) ([]models.Service, int64, error)
	Update(ctx context.Context, service *models.Service) error
	Delete(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) error
}

type serviceRepository struct {
	db *gorm.DB
}

// NewServiceRepository returns a new ServiceRepository implementation.
func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) Create(ctx context.Context, service *models.Service) error {
	if err := r.db.WithContext(ctx).Omit("Expert", "Applications").Create(service).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *serviceRepository) GetByID(ctx context.Context, id uint) (*models.Service, error) {
	var service models.Service
	if err := r.db.WithContext(ctx).Preload("Expert").First(&service, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Service", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &service, nil
}

func (r *serviceRepository) List(ctx context.Context, filter ServiceFilter, limit, offset int) ([]models.Service, int64, error) {
	defer observability.TrackQuery("list", "services")()
	q := r.db.WithContext(ctx).Model(&models.Service{})

	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.LocationType != "" {
		q = q.Where("location_type = ?", filter.LocationType)
	}
	if filter.ExpertID != 0 {
		q = q.Where("expert_id = ?", filter.ExpertID)
	}
	if filter.MinPrice != nil {
		q = q.Where("pricing_amount >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("pricing_amount <= ?", *filter.MaxPrice)
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		like := "%" + escapeLike(term) + "%"
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(tags) LIKE ? ESCAPE '\')`, like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var services []models.Service
	if err := q.Preload("Expert").
		Order(serviceOrder(filter)).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&services).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return services, total, nil
}

func serviceOrder(filter ServiceFilter) string {
	column, ok := ServiceSortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	if strings.EqualFold(filter.Order, "asc") {
		return column + " ASC"
	}
	return column + " DESC"
}

// Update writes the owner-editable columns only, so concurrent counter
// increments are never overwritten.
func (r *serviceRepository) Update(ctx context.Context, service *models.Service) error {
	if err := r.db.WithContext(ctx).Model(service).
		Select(serviceUpdatableColumns).
		Omit("Expert", "Applications").
		Updates(service).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the service and its applications in one transaction,
// refusing while any application is still pending.
func (r *serviceRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var service models.Service
		if err := forUpdate(tx).Select("id").First(&service, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Service", id)
			}
			return models.NewInternalError(err)
		}

		var pending int64
		if err := tx.Model(&models.Application{}).
			Where("service_id = ? AND status = ?", id, models.ApplicationPending).
			Count(&pending).Error; err != nil {
			return models.NewInternalError(err)
		}
		if pending > 0 {
			return models.NewConflictError("Cannot delete service with pending applications")
		}

		if err := tx.Where("service_id = ?", id).Delete(&models.Application{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Delete(&models.Service{}, id).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

// IncrementViews bumps views_count in the database without reading it.
func (r *serviceRepository) IncrementViews(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Model(&models.Service{}).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + ?", 1)).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
