package seed

import (
	"context"
	"fmt"
	"log/slog"

	"gigboard/internal/middleware"
	"gigboard/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminEmail is the login of the seeded administrator.
const AdminEmail = "admin@gigboard.local"

// Options configure a seeding run.
type Options struct {
	Experts            int
	Clients            int
	ServicesPerExpert  int
	ApplicationsPerSvc int
	Clean              bool
	Seed               int64
	BcryptCost         int
}

// DefaultOptions is a small but browsable marketplace.
var DefaultOptions = Options{
	Experts:            10,
	Clients:            25,
	ServicesPerExpert:  3,
	ApplicationsPerSvc: 4,
	Clean:              true,
	Seed:               42,
	BcryptCost:         bcrypt.DefaultCost,
}

// Result counts what a run created.
type Result struct {
	Users        int
	Services     int
	Applications int
}

// Seeder populates the database with demo data.
type Seeder struct {
	db   *gorm.DB
	opts Options
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Seeder{db: db, opts: opts}
}

// ClearAll deletes every marketplace row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Application{}, &models.Service{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// Run creates an admin, experts with services, and clients who apply to
// them. Application states are spread over the whole lifecycle.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	if s.opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	f, err := NewFactory(s.db, s.opts.Seed, s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}
	res := &Result{}

	if _, err := f.CreateUser(ctx, models.RoleAdmin, func(u *models.User) {
		u.FirstName, u.LastName, u.Email = "Site", "Admin", AdminEmail
	}); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	res.Users++

	experts := make([]*models.User, 0, s.opts.Experts)
	for i := 0; i < s.opts.Experts; i++ {
		u, err := f.CreateUser(ctx, models.RoleExpert)
		if err != nil {
			return nil, fmt.Errorf("create expert: %w", err)
		}
		experts = append(experts, u)
	}
	clients := make([]*models.User, 0, s.opts.Clients)
	for i := 0; i < s.opts.Clients; i++ {
		u, err := f.CreateUser(ctx, models.RoleClient)
		if err != nil {
			return nil, fmt.Errorf("create client: %w", err)
		}
		clients = append(clients, u)
	}
	res.Users += len(experts) + len(clients)
	middleware.Logger.Info("seeded users", slog.Int("experts", len(experts)), slog.Int("clients", len(clients)))

	statuses := []models.ApplicationStatus{
		models.ApplicationPending,
		models.ApplicationPending,
		models.ApplicationAccepted,
		models.ApplicationRejected,
		models.ApplicationWithdrawn,
	}

	for _, expert := range experts {
		for i := 0; i < s.opts.ServicesPerExpert; i++ {
			svc, err := f.CreateService(ctx, expert)
			if err != nil {
				return nil, fmt.Errorf("create service: %w", err)
			}
			res.Services++

			// Each client applies at most once per service.
			n := s.opts.ApplicationsPerSvc
			if n > len(clients) {
				n = len(clients)
			}
			offset := f.fake.Number(0, len(clients))
			for j := 0; j < n; j++ {
				client := clients[(offset+j)%len(clients)]
				status := statuses[f.fake.Number(0, len(statuses)-1)]
				if _, err := f.CreateApplication(ctx, svc, client, status); err != nil {
					return nil, fmt.Errorf("create application: %w", err)
				}
				res.Applications++
			}
		}
	}

	middleware.Logger.Info("seeding complete",
		slog.Int("users", res.Users),
		slog.Int("services", res.Services),
		slog.Int("applications", res.Applications),
	)
	return res, nil
}
