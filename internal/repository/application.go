package repository

import (
	"context"
	"errors"
	"time"

	"gigboard/internal/models"
	"gigboard/internal/observability"

	"gorm.io/gorm"
)

// ApplicationRepository defines persistence operations for applications.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id uint) (*models.Application, error)
	Exists(ctx context.Context, serviceID, clientID uint) (bool, error)
	Transition(ctx context.Context, id uint, from, to models.ApplicationStatus, response *models.ExpertResponse) (bool, error)
	ListByClient(ctx context.Context, clientID uint, status models.ApplicationStatus, limit, offset int) ([]models.Application, int64, error)
	ListByService(ctx context.Context, serviceID uint, status models.ApplicationStatus) ([]models.Application, error)
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository returns a new ApplicationRepository implementation.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

// Create inserts app and bumps the service's applications_count in one
// transaction. The count only moves while the service is active, so an
// application can never land on a paused or missing service.
func (r *applicationRepository) Create(ctx context.Context, app *models.Application) error {
	defer observability.TrackQuery("create", "applications")()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Service{}).
			Where("id = ? AND status = ?", app.ServiceID, models.ServiceStatusActive).
			UpdateColumn("applications_count", gorm.Expr("applications_count + ?", 1))
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return &models.AppError{
				Code:    models.CodeNotFound,
				Message: "Service is not accepting applications",
			}
		}

		if err := tx.Omit("Service", "Client", "Expert").Create(app).Error; err != nil {
			if isUniqueConstraintError(err) {
				return models.NewDuplicateApplicationError()
			}
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Preload("Service").
		Preload("Client").
		Preload("Expert").
		First(&app, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Application", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &app, nil
}

func (r *applicationRepository) Exists(ctx context.Context, serviceID, clientID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("service_id = ? AND client_id = ?", serviceID, clientID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Transition moves an application from one status to another with a single
// conditional UPDATE. It reports false when the row was no longer in from,
// which means a concurrent request won.
func (r *applicationRepository) Transition(ctx context.Context, id uint, from, to models.ApplicationStatus, response *models.ExpertResponse) (bool, error) {
	defer observability.TrackQuery("transition", "applications")()
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now(),
	}
	if response != nil {
		updates["expert_response_message"] = response.Message
		updates["expert_response_responded_at"] = response.RespondedAt
	}

	res := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *applicationRepository) ListByClient(ctx context.Context, clientID uint, status models.ApplicationStatus, limit, offset int) ([]models.Application, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Application{}).Where("client_id = ?", clientID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var apps []models.Application
	if err := q.Preload("Service").
		Preload("Expert").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&apps).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return apps, total, nil
}

// ListByService returns every application on a service, newest first. An
// empty status matches all of them.
func (r *applicationRepository) ListByService(ctx context.Context, serviceID uint, status models.ApplicationStatus) ([]models.Application, error) {
	q := r.db.WithContext(ctx).Where("service_id = ?", serviceID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var apps []models.Application
	if err := q.Preload("Client").
		Order("created_at DESC").
		Order("id DESC").
		Find(&apps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return apps, nil
}
