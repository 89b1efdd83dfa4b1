package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gigboard/internal/config"
	"gigboard/internal/database"
	"gigboard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupTestDB opens a private in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := &config.Config{
		Env:      "test",
		DBDriver: "sqlite",
		DBPath:   fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}
	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		FirstName: "Test",
		LastName:  strings.Split(email, "@")[0],
		Email:     email,
		Password:  "hash",
		Role:      role,
		IsActive:  true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createService(t *testing.T, db *gorm.DB, expert *models.User, mutate func(*models.Service)) *models.Service {
	t.Helper()
	amount := 100.0
	svc := &models.Service{
		ExpertID:    expert.ID,
		Title:       "Landing page",
		Description: "A responsive landing page built to order",
		Category:    models.CategoryWebDevelopment,
		Pricing:     models.Pricing{Type: models.PricingFixed, Amount: &amount, Currency: "USD"},
		Duration:    "1 week",
		Status:      models.ServiceStatusActive,
		Location:    models.ServiceLocation{Type: models.LocationRemote},
	}
	if mutate != nil {
		mutate(svc)
	}
	require.NoError(t, db.Omit("Expert", "Applications").Create(svc).Error)
	return svc
}
