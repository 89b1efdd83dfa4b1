package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gigboard/internal/config"
	"gigboard/internal/database"
	"gigboard/internal/mailer"
	"gigboard/internal/models"
	"gigboard/internal/tasks"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "Secret123"

type testServer struct {
	*Server
	app   *fiber.App
	db    *gorm.DB
	redis *miniredis.Miniredis
	mail  *mailer.LogMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := &config.Config{
		Port:           "0",
		Env:            "test",
		JWTSecret:      "server-test-secret-server-test-secret",
		JWTTTL:         time.Hour,
		DBDriver:       "sqlite",
		DBPath:         fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		AllowedOrigins: "http://localhost:5173",
		FrontendURL:    "https://app.test",
		ViewSessionTTL: time.Minute,
	}

	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	mail := &mailer.LogMailer{}
	srv := NewServerWithDeps(cfg, Deps{DB: db, Redis: rdb, Runner: tasks.Inline{}, Mailer: mail})

	t.Cleanup(func() {
		_ = rdb.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return &testServer{Server: srv, app: srv.App(), db: db, redis: mr, mail: mail}
}

// seedUser inserts an active user and returns it with a valid bearer token.
func (ts *testServer) seedUser(t *testing.T, email string, role models.Role) (*models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		FirstName: "Test",
		LastName:  strings.Split(email, "@")[0],
		Email:     email,
		Password:  string(hash),
		Role:      role,
		IsActive:  true,
	}
	require.NoError(t, ts.db.Create(user).Error)

	token, _, err := ts.gate.Tokens().Issue(user)
	require.NoError(t, err)
	return user, token
}

func (ts *testServer) seedService(t *testing.T, expert *models.User, mutate func(*models.Service)) *models.Service {
	t.Helper()
	amount := 150.0
	svc := &models.Service{
		ExpertID:    expert.ID,
		Title:       "Marketing site build",
		Description: "A fast marketing site with a CMS and analytics wired in from day one",
		Category:    models.CategoryWebDevelopment,
		Pricing:     models.Pricing{Type: models.PricingFixed, Amount: &amount, Currency: "USD"},
		Duration:    "2 weeks",
		Status:      models.ServiceStatusActive,
		Location:    models.ServiceLocation{Type: models.LocationRemote},
	}
	if mutate != nil {
		mutate(svc)
	}
	require.NoError(t, ts.db.Omit("Expert", "Applications").Create(svc).Error)
	return svc
}

type apiResponse struct {
	Status int
	Header http.Header
	Body   map[string]any
}

func (r apiResponse) data() map[string]any {
	d, _ := r.Body["data"].(map[string]any)
	return d
}

func (r apiResponse) list() []any {
	l, _ := r.Body["data"].([]any)
	return l
}

func (r apiResponse) code() string {
	c, _ := r.Body["code"].(string)
	return c
}

func (r apiResponse) fields() map[string]any {
	f, _ := r.Body["fields"].(map[string]any)
	return f
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) apiResponse {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := apiResponse{Status: resp.StatusCode, Header: resp.Header}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}
