package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"gigboard/internal/auth"
	"gigboard/internal/mailer"
	"gigboard/internal/models"
	"gigboard/internal/repository"
	"gigboard/internal/tasks"
	"gigboard/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userRepoStub struct {
	getByIDFn                func(context.Context, uint) (*models.User, error)
	getByEmailFn             func(context.Context, string) (*models.User, error)
	getByVerificationTokenFn func(context.Context, string, time.Time) (*models.User, error)
	getByResetTokenFn        func(context.Context, string, time.Time) (*models.User, error)
	createFn                 func(context.Context, *models.User) error
	updateFn                 func(context.Context, *models.User, []string) error
	rotatePasswordFn         func(context.Context, uint, string, string) (bool, error)
	touchLastActiveFn        func(context.Context, uint, time.Time) error
	listFn                   func(context.Context, repository.UserFilter, int, int) ([]models.User, int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByVerificationToken(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	return s.getByVerificationTokenFn(ctx, hash, now)
}
func (s *userRepoStub) GetByResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	return s.getByResetTokenFn(ctx, hash, now)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User, columns ...string) error {
	return s.updateFn(ctx, user, columns)
}
func (s *userRepoStub) RotatePassword(ctx context.Context, id uint, currentHash, newHash string) (bool, error) {
	return s.rotatePasswordFn(ctx, id, currentHash, newHash)
}
func (s *userRepoStub) TouchLastActive(ctx context.Context, id uint, at time.Time) error {
	return s.touchLastActiveFn(ctx, id, at)
}
func (s *userRepoStub) List(ctx context.Context, f repository.UserFilter, limit, offset int) ([]models.User, int64, error) {
	return s.listFn(ctx, f, limit, offset)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, IsActive: true}, nil
		},
		getByEmailFn:             func(context.Context, string) (*models.User, error) { return nil, nil },
		getByVerificationTokenFn: func(context.Context, string, time.Time) (*models.User, error) { return nil, nil },
		getByResetTokenFn:        func(context.Context, string, time.Time) (*models.User, error) { return nil, nil },
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = 1
			return nil
		},
		updateFn:          func(context.Context, *models.User, []string) error { return nil },
		rotatePasswordFn:  func(context.Context, uint, string, string) (bool, error) { return true, nil },
		touchLastActiveFn: func(context.Context, uint, time.Time) error { return nil },
		listFn: func(context.Context, repository.UserFilter, int, int) ([]models.User, int64, error) {
			return nil, 0, nil
		},
	}
}

type serviceRepoStub struct {
	createFn         func(context.Context, *models.Service) error
	getByIDFn        func(context.Context, uint) (*models.Service, error)
	listFn           func(context.Context, repository.ServiceFilter, int, int) ([]models.Service, int64, error)
	updateFn         func(context.Context, *models.Service) error
	deleteFn         func(context.Context, uint) error
	incrementViewsFn func(context.Context, uint) error
}

func (s *serviceRepoStub) Create(ctx context.Context, svc *models.Service) error {
	return s.createFn(ctx, svc)
}
func (s *serviceRepoStub) GetByID(ctx context.Context, id uint) (*models.Service, error) {
	return s.getByIDFn(ctx, id)
}
func (s *serviceRepoStub) List(ctx context.Context, f repository.ServiceFilter, limit, offset int) ([]models.Service, int64, error) {
	return s.listFn(ctx, f, limit, offset)
}
func (s *serviceRepoStub) Update(ctx context.Context, svc *models.Service) error {
	return s.updateFn(ctx, svc)
}
func (s *serviceRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *serviceRepoStub) IncrementViews(ctx context.Context, id uint) error {
	return s.incrementViewsFn(ctx, id)
}

func noopServiceRepo() *serviceRepoStub {
	return &serviceRepoStub{
		createFn: func(_ context.Context, svc *models.Service) error {
			svc.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Service, error) {
			return nil, models.NewNotFoundError("Service", id)
		},
		listFn: func(context.Context, repository.ServiceFilter, int, int) ([]models.Service, int64, error) {
			return nil, 0, nil
		},
		updateFn:         func(context.Context, *models.Service) error { return nil },
		deleteFn:         func(context.Context, uint) error { return nil },
		incrementViewsFn: func(context.Context, uint) error { return nil },
	}
}

type appRepoStub struct {
	createFn        func(context.Context, *models.Application) error
	getByIDFn       func(context.Context, uint) (*models.Application, error)
	existsFn        func(context.Context, uint, uint) (bool, error)
	transitionFn    func(context.Context, uint, models.ApplicationStatus, models.ApplicationStatus, *models.ExpertResponse) (bool, error)
	listByClientFn  func(context.Context, uint, models.ApplicationStatus, int, int) ([]models.Application, int64, error)
	listByServiceFn func(context.Context, uint, models.ApplicationStatus) ([]models.Application, error)
}

func (s *appRepoStub) Create(ctx context.Context, app *models.Application) error {
	return s.createFn(ctx, app)
}
func (s *appRepoStub) GetByID(ctx context.Context, id uint) (*models.Application, error) {
	return s.getByIDFn(ctx, id)
}
func (s *appRepoStub) Exists(ctx context.Context, serviceID, clientID uint) (bool, error) {
	return s.existsFn(ctx, serviceID, clientID)
}
func (s *appRepoStub) Transition(ctx context.Context, id uint, from, to models.ApplicationStatus, r *models.ExpertResponse) (bool, error) {
	return s.transitionFn(ctx, id, from, to, r)
}
func (s *appRepoStub) ListByClient(ctx context.Context, clientID uint, status models.ApplicationStatus, limit, offset int) ([]models.Application, int64, error) {
	return s.listByClientFn(ctx, clientID, status, limit, offset)
}
func (s *appRepoStub) ListByService(ctx context.Context, serviceID uint, status models.ApplicationStatus) ([]models.Application, error) {
	return s.listByServiceFn(ctx, serviceID, status)
}

func noopAppRepo() *appRepoStub {
	return &appRepoStub{
		createFn: func(_ context.Context, app *models.Application) error {
			app.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Application, error) {
			return nil, models.NewNotFoundError("Application", id)
		},
		existsFn: func(context.Context, uint, uint) (bool, error) { return false, nil },
		transitionFn: func(context.Context, uint, models.ApplicationStatus, models.ApplicationStatus, *models.ExpertResponse) (bool, error) {
			return true, nil
		},
		listByClientFn: func(context.Context, uint, models.ApplicationStatus, int, int) ([]models.Application, int64, error) {
			return nil, 0, nil
		},
		listByServiceFn: func(context.Context, uint, models.ApplicationStatus) ([]models.Application, error) {
			return nil, nil
		},
	}
}

// recordingRunner runs tasks inline and remembers their names.
type recordingRunner struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingRunner) Go(name string, fn tasks.Func) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
	tasks.Inline{}.Go(name, fn)
}

func (r *recordingRunner) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

var testLinks = mailer.Links{FrontendURL: "https://app.test"}

func newTestGate(users auth.UserStore) *auth.Gate {
	return auth.NewGate(auth.NewTokenManager("service-test-secret", time.Hour), users, nil, auth.DefaultPolicy)
}

func newTestValidator() *validation.Validator {
	return validation.New()
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.HasCode(err, code), "expected %s, got %v", code, err)
}

func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
	assert.Contains(t, appErr.Fields, field)
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }
