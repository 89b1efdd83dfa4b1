package server

import (
	"net/http"
	"strings"
	"testing"

	"gigboard/internal/mailer"
	"gigboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linkToken pulls the 64-character token following marker out of the last
// email sent.
func linkToken(t *testing.T, mail *mailer.LogMailer, marker string) string {
	t.Helper()
	sent := mail.Sent()
	require.NotEmpty(t, sent)
	html := sent[len(sent)-1].HTML
	idx := strings.Index(html, marker)
	require.GreaterOrEqual(t, idx, 0, "no %s link in email", marker)
	return html[idx+len(marker) : idx+len(marker)+64]
}

func TestRegisterLoginLogout(t *testing.T) {
	ts := newTestServer(t)

	reg := ts.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@example.com",
		"password":   "Engine42",
		"role":       "expert",
		"skills":     []string{"Go", "SQL"},
	}, "")
	require.Equal(t, http.StatusCreated, reg.Status, reg.Body)
	assert.NotEmpty(t, reg.data()["token"])
	assert.Equal(t, "Bearer", reg.data()["token_type"])
	user := reg.data()["user"].(map[string]any)
	assert.Equal(t, "expert", user["role"])
	assert.NotContains(t, user, "password")

	dup := ts.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"first_name": "Ada",
		"last_name":  "Again",
		"email":      "ada@example.com",
		"password":   "Engine42",
	}, "")
	assert.Equal(t, http.StatusConflict, dup.Status)
	assert.Equal(t, models.CodeConflict, dup.code())

	bad := ts.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "ada@example.com", "password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, bad.Status)
	assert.Equal(t, "Invalid email or password", bad.Body["error"])

	login := ts.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "ada@example.com", "password": "Engine42",
	}, "")
	require.Equal(t, http.StatusOK, login.Status)
	token := login.data()["token"].(string)

	profile := ts.do(t, http.MethodGet, "/api/users/profile", nil, token)
	require.Equal(t, http.StatusOK, profile.Status)
	assert.Equal(t, "ada@example.com", profile.data()["email"])

	out := ts.do(t, http.MethodPost, "/api/auth/logout", nil, token)
	assert.Equal(t, http.StatusOK, out.Status)

	revoked := ts.do(t, http.MethodGet, "/api/users/profile", nil, token)
	assert.Equal(t, http.StatusUnauthorized, revoked.Status)
	assert.Equal(t, "Token has been revoked", revoked.Body["error"])
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	res := ts.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"first_name": "",
		"last_name":  "Lovelace",
		"email":      "not-an-email",
		"password":   "short",
		"role":       "admin",
	}, "")
	require.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, models.CodeValidation, res.code())
	fields := res.fields()
	for _, f := range []string{"first_name", "email", "password", "role"} {
		assert.Contains(t, fields, f)
	}
}

func TestVerifyEmail(t *testing.T) {
	ts := newTestServer(t)

	reg := ts.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"first_name": "Grace",
		"last_name":  "Hopper",
		"email":      "grace@example.com",
		"password":   "Cobol1959",
	}, "")
	require.Equal(t, http.StatusCreated, reg.Status)
	assert.Equal(t, false, reg.data()["user"].(map[string]any)["is_verified"])

	token := linkToken(t, ts.mail, "/verify-email/")

	res := ts.do(t, http.MethodGet, "/api/auth/verify-email/"+token, nil, "")
	require.Equal(t, http.StatusOK, res.Status, res.Body)
	assert.Equal(t, true, res.data()["is_verified"])

	again := ts.do(t, http.MethodGet, "/api/auth/verify-email/"+token, nil, "")
	assert.Equal(t, http.StatusBadRequest, again.Status)
}

func TestForgotAndResetPassword(t *testing.T) {
	ts := newTestServer(t)
	_, oldToken := ts.seedUser(t, "reset@example.com", models.RoleClient)

	unknown := ts.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]any{"email": "nobody@example.com"}, "")
	assert.Equal(t, http.StatusOK, unknown.Status)
	assert.Empty(t, ts.mail.Sent())

	res := ts.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]any{"email": "reset@example.com"}, "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, unknown.Body["message"], res.Body["message"])

	raw := linkToken(t, ts.mail, "/reset-password/")

	reset := ts.do(t, http.MethodPost, "/api/auth/reset-password", map[string]any{
		"token": raw, "password": "Brand1New",
	}, "")
	require.Equal(t, http.StatusOK, reset.Status, reset.Body)
	assert.NotEmpty(t, reset.data()["token"])

	stale := ts.do(t, http.MethodGet, "/api/users/profile", nil, oldToken)
	assert.Equal(t, http.StatusUnauthorized, stale.Status)

	login := ts.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "reset@example.com", "password": "Brand1New",
	}, "")
	assert.Equal(t, http.StatusOK, login.Status)

	reused := ts.do(t, http.MethodPost, "/api/auth/reset-password", map[string]any{
		"token": raw, "password": "Another1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, reused.Status)
	assert.Equal(t, "Invalid or expired reset token", reused.Body["error"])
}

func TestChangePassword(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.seedUser(t, "change@example.com", models.RoleExpert)

	wrong := ts.do(t, http.MethodPut, "/api/auth/change-password", map[string]any{
		"current_password": "nope", "new_password": "Fresh123",
	}, token)
	assert.Equal(t, http.StatusUnauthorized, wrong.Status)

	res := ts.do(t, http.MethodPut, "/api/auth/change-password", map[string]any{
		"current_password": testPassword, "new_password": "Fresh123",
	}, token)
	require.Equal(t, http.StatusOK, res.Status, res.Body)
	fresh := res.data()["token"].(string)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/users/profile", nil, token).Status)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/users/profile", nil, fresh).Status)
}
