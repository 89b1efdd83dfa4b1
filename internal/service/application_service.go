package service

import (
	"context"
	"log/slog"
	"time"

	"gigboard/internal/mailer"
	"gigboard/internal/middleware"
	"gigboard/internal/models"
	"gigboard/internal/observability"
	"gigboard/internal/repository"
	"gigboard/internal/tasks"
	"gigboard/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// ApplicationService runs the application lifecycle:
//
//	pending -> accepted | rejected   (owning expert)
//	pending -> withdrawn             (applying client)
//
// Every transition is a conditional update on status = pending, so two
// concurrent requests can never both succeed.
type ApplicationService struct {
	apps     repository.ApplicationRepository
	services repository.ServiceRepository
	validate *validation.Validator
	notify   notifier
	now      func() time.Time
}

type ApplyInput struct {
	Message          string   `json:"message" validate:"required,notblank,min=20,max=1000"`
	ProposedPrice    *float64 `json:"proposed_price" validate:"omitempty,gte=0"`
	ProposedTimeline string   `json:"proposed_timeline" validate:"max=255"`
	Attachments      []string `json:"attachments" validate:"max=5,dive,url"`
}

type RespondInput struct {
	Status  string `json:"status" validate:"required,expert_response"`
	Message string `json:"message" validate:"max=1000"`
}

type ListApplicationsInput struct {
	Status string
	Limit  int
	Offset int
}

func NewApplicationService(
	apps repository.ApplicationRepository,
	services repository.ServiceRepository,
	v *validation.Validator,
	runner tasks.Runner,
	mail mailer.Mailer,
	links mailer.Links,
) *ApplicationService {
	return &ApplicationService{
		apps:     apps,
		services: services,
		validate: v,
		notify:   notifier{runner: runner, mail: mail, links: links},
		now:      time.Now,
	}
}

// Apply submits clientID's application to an active service they do not own.
func (s *ApplicationService) Apply(ctx context.Context, clientID, serviceID uint, in ApplyInput) (*models.Application, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.Status != models.ServiceStatusActive {
		return nil, &models.AppError{Code: models.CodeNotFound, Message: "Service is not accepting applications"}
	}
	if svc.OwnedBy(clientID) {
		return nil, models.NewSelfApplicationError()
	}

	exists, err := s.apps.Exists(ctx, serviceID, clientID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewDuplicateApplicationError()
	}

	app := &models.Application{
		ServiceID:        serviceID,
		ClientID:         clientID,
		ExpertID:         svc.ExpertID,
		Message:          in.Message,
		ProposedPrice:    in.ProposedPrice,
		ProposedTimeline: in.ProposedTimeline,
		Attachments:      in.Attachments,
		Status:           models.ApplicationPending,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	created, err := s.apps.GetByID(ctx, app.ID)
	if err != nil {
		return nil, err
	}

	if created.Expert != nil && created.Client != nil && created.Service != nil {
		expert, client, service := created.Expert, created.Client, created.Service
		s.notify.send(mailer.TemplateNewApplication, func(l mailer.Links) (mailer.Message, error) {
			return l.NewApplication(expert, client, service, in.Message)
		})
	}
	return created, nil
}

// Respond lets the owning expert accept or reject a pending application.
func (s *ApplicationService) Respond(ctx context.Context, expertID, applicationID uint, in RespondInput) (*models.Application, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ExpertID != expertID {
		return nil, models.NewForbiddenError("Not authorized to respond to this application")
	}

	to := models.ApplicationStatus(in.Status)
	now := s.now()
	response := &models.ExpertResponse{Message: in.Message, RespondedAt: &now}
	if err := s.transition(ctx, app, to, response); err != nil {
		return nil, err
	}
	app.ExpertResponse = *response

	if app.Client != nil && app.Service != nil {
		client, service := app.Client, app.Service
		s.notify.send(mailer.TemplateApplicationResponse, func(l mailer.Links) (mailer.Message, error) {
			return l.ApplicationResponse(client, service, to, in.Message)
		})
	}
	return app, nil
}

// Withdraw lets the applying client retract a pending application.
func (s *ApplicationService) Withdraw(ctx context.Context, clientID, applicationID uint) (*models.Application, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ClientID != clientID {
		return nil, models.NewForbiddenError("Not authorized to withdraw this application")
	}
	if err := s.transition(ctx, app, models.ApplicationWithdrawn, nil); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *ApplicationService) transition(ctx context.Context, app *models.Application, to models.ApplicationStatus, response *models.ExpertResponse) (err error) {
	ctx, span := observability.StartSpan(ctx, "applications", "transition",
		attribute.Int64("application.id", int64(app.ID)),
		attribute.String("application.target", string(to)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if !app.Status.CanTransition(to) {
		return models.NewInvalidTransitionError(app.Status, to)
	}

	ok, err := s.apps.Transition(ctx, app.ID, models.ApplicationPending, to, response)
	if err != nil {
		return err
	}
	if !ok {
		observability.ApplicationTransitionConflicts.WithLabelValues(string(to)).Inc()
		current := models.ApplicationPending
		if fresh, err := s.apps.GetByID(ctx, app.ID); err == nil {
			current = fresh.Status
		}
		middleware.Logger.InfoContext(ctx, "application transition lost race",
			slog.Uint64("application_id", uint64(app.ID)),
			slog.String("status", string(current)),
			slog.String("target", string(to)),
		)
		return models.NewInvalidTransitionError(current, to)
	}

	observability.ApplicationTransitions.WithLabelValues(string(to)).Inc()
	app.Status = to
	app.UpdatedAt = s.now()
	return nil
}

// ListMine returns clientID's applications, newest first.
func (s *ApplicationService) ListMine(ctx context.Context, clientID uint, in ListApplicationsInput) ([]models.Application, int64, error) {
	status, err := statusFilter(in.Status)
	if err != nil {
		return nil, 0, err
	}
	return s.apps.ListByClient(ctx, clientID, status, in.Limit, in.Offset)
}

// ListForService returns the applications on a service owned by expertID.
func (s *ApplicationService) ListForService(ctx context.Context, expertID, serviceID uint, statusParam string) ([]models.Application, error) {
	status, err := statusFilter(statusParam)
	if err != nil {
		return nil, err
	}

	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.OwnedBy(expertID) {
		return nil, models.NewForbiddenError("Not authorized to view applications for this service")
	}
	return s.apps.ListByService(ctx, serviceID, status)
}

func statusFilter(raw string) (models.ApplicationStatus, error) {
	status := models.ApplicationStatus(raw)
	if status != "" && !status.Valid() {
		return "", models.NewFieldValidationError("Invalid query parameters", map[string]string{
			"status": "Must be one of: pending, accepted, rejected, withdrawn",
		})
	}
	return status, nil
}
