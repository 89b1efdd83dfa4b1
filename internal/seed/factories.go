// Package seed provides helpers to create demo data for the marketplace
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gigboard/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "Password123"

var (
	skillsByCategory = map[models.ServiceCategory][]string{
		models.CategoryWebDevelopment:    {"go", "react", "postgres", "typescript", "css"},
		models.CategoryMobileDevelopment: {"swift", "kotlin", "flutter", "react native"},
		models.CategoryGraphicDesign:     {"figma", "illustrator", "branding", "logo"},
		models.CategoryContentWriting:    {"copywriting", "seo", "blogging", "editing"},
		models.CategoryDigitalMarketing:  {"ads", "analytics", "email", "social"},
		models.CategoryVideoEditing:      {"premiere", "after effects", "color grading"},
		models.CategoryConsulting:        {"strategy", "operations", "hiring"},
		models.CategoryLegal:             {"contracts", "trademarks", "compliance"},
		models.CategoryAccounting:        {"bookkeeping", "tax", "payroll"},
		models.CategoryTutoring:          {"math", "physics", "languages"},
		models.CategoryOther:             {"research", "data entry"},
	}

	pricingTypes  = []models.PricingType{models.PricingFixed, models.PricingHourly, models.PricingNegotiable}
	locationTypes = []models.LocationType{models.LocationRemote, models.LocationOnsite, models.LocationHybrid}
	durations     = []string{"1 day", "3 days", "1 week", "2 weeks", "1 month", "Ongoing"}
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db       *gorm.DB
	fake     *gofakeit.Faker
	password string
	seq      int
}

// NewFactory creates a Factory bound to db. A fixed seed yields the same
// data on every run.
func NewFactory(db *gorm.DB, seed int64, bcryptCost int) (*Factory, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return &Factory{db: db, fake: gofakeit.New(seed), password: string(hash)}, nil
}

// CreateUser persists a verified, active user with the given role.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(ctx context.Context, role models.Role, overrides ...func(*models.User)) (*models.User, error) {
	f.seq++
	first, last := f.fake.FirstName(), f.fake.LastName()
	now := time.Now()

	user := &models.User{
		FirstName:       first,
		LastName:        last,
		Email:           fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(first), strings.ToLower(last), f.seq),
		Password:        f.password,
		Role:            role,
		Bio:             truncate(f.fake.Sentence(12), 500),
		Phone:           f.fake.Phone(),
		ProfileImage:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.fake.UUID()),
		Location:        models.Address{City: f.fake.City(), State: f.fake.State(), Country: f.fake.Country()},
		IsActive:        true,
		IsVerified:      true,
		EmailVerifiedAt: &now,
	}
	if role == models.RoleExpert {
		category := f.category()
		user.Skills = f.pick(skillsByCategory[category], 3)
		user.Certifications = []string{f.fake.JobTitle() + " certificate"}
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateService persists an active service owned by expert.
func (f *Factory) CreateService(ctx context.Context, expert *models.User, overrides ...func(*models.Service)) (*models.Service, error) {
	category := f.category()
	pricing := models.Pricing{Type: pricingTypes[f.fake.Number(0, len(pricingTypes)-1)], Currency: "USD"}
	if pricing.Type != models.PricingNegotiable {
		amount := float64(f.fake.Number(2, 200) * 10)
		pricing.Amount = &amount
	}
	location := models.ServiceLocation{Type: locationTypes[f.fake.Number(0, len(locationTypes)-1)]}
	if location.Type != models.LocationRemote {
		location.City = f.fake.City()
		location.Country = f.fake.Country()
	}

	svc := &models.Service{
		ExpertID:     expert.ID,
		Title:        truncate(fmt.Sprintf("%s %s for %s", titleCase(f.fake.HipsterWord()), category, f.fake.Company()), 100),
		Description:  truncate(f.fake.Paragraph(2, 4, 12, " "), 2000),
		Category:     category,
		Pricing:      pricing,
		Duration:     durations[f.fake.Number(0, len(durations)-1)],
		Requirements: []string{f.fake.Sentence(6)},
		Tags:         f.pick(skillsByCategory[category], 3),
		Images:       []string{fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.fake.UUID())},
		Status:       models.ServiceStatusActive,
		Location:     location,
		ViewsCount:   f.fake.Number(0, 500),
		CreatedAt:    time.Now().Add(-time.Duration(f.fake.Number(0, 90*24)) * time.Hour),
	}

	for _, override := range overrides {
		override(svc)
	}

	if err := f.db.WithContext(ctx).Omit("Expert", "Applications").Create(svc).Error; err != nil {
		return nil, err
	}
	return svc, nil
}

// CreateApplication persists client's application to svc in the given
// state and keeps the service's application counter in step.
func (f *Factory) CreateApplication(ctx context.Context, svc *models.Service, client *models.User, status models.ApplicationStatus) (*models.Application, error) {
	app := &models.Application{
		ServiceID:        svc.ID,
		ClientID:         client.ID,
		ExpertID:         svc.ExpertID,
		Message:          truncate(f.fake.Paragraph(1, 3, 10, " "), 1000),
		ProposedTimeline: durations[f.fake.Number(0, len(durations)-1)],
		Status:           status,
	}
	if svc.Pricing.Amount != nil {
		price := *svc.Pricing.Amount * f.fake.Float64Range(0.8, 1.1)
		app.ProposedPrice = &price
	}
	if status.IsExpertResponse() {
		now := time.Now()
		app.ExpertResponse = models.ExpertResponse{Message: f.fake.Sentence(8), RespondedAt: &now}
	}

	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Service", "Client", "Expert").Create(app).Error; err != nil {
			return err
		}
		return tx.Model(&models.Service{}).Where("id = ?", svc.ID).
			UpdateColumn("applications_count", gorm.Expr("applications_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	svc.ApplicationsCount++
	return app, nil
}

func (f *Factory) category() models.ServiceCategory {
	return models.ServiceCategories[f.fake.Number(0, len(models.ServiceCategories)-1)]
}

// pick returns up to n distinct entries of from in random order.
func (f *Factory) pick(from []string, n int) []string {
	shuffled := append([]string(nil), from...)
	f.fake.ShuffleStrings(shuffled)
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max])
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
