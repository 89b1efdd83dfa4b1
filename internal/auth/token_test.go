package auth

import (
	"testing"
	"time"

	"gigboard/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	user := &models.User{ID: 42, Role: models.RoleExpert, TokenVersion: 3}

	token, issued, err := m.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.NotEmpty(t, issued.ID)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
	assert.Equal(t, models.RoleExpert, claims.Role)
	assert.Equal(t, 3, claims.Version)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestTokenManager_UniqueJTI(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	user := &models.User{ID: 1, Role: models.RoleClient}

	_, a, err := m.Issue(user)
	require.NoError(t, err)
	_, b, err := m.Issue(user)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)
	issuedAt := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issuedAt }

	token, _, err := m.Issue(&models.User{ID: 1, Role: models.RoleClient})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.True(t, models.HasCode(err, models.CodeTokenExpired), "got %v", err)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	user := &models.User{ID: 1, Role: models.RoleClient}
	good, _, err := m.Issue(user)
	require.NoError(t, err)

	other := NewTokenManager("other-secret", time.Hour)
	forged, _, err := other.Issue(user)
	require.NoError(t, err)

	wrongAudience, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{"someone-else"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-number",
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":        "not.a.token",
		"wrong secret":   forged,
		"wrong audience": wrongAudience,
		"bad subject":    badSubject,
		"truncated":      good[:len(good)-4],
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.Parse(token)
			assert.True(t, models.HasCode(err, models.CodeUnauthorized), "got %v", err)
		})
	}
}

func TestTokenManager_RequiresSecret(t *testing.T) {
	_, _, err := NewTokenManager("", time.Hour).Issue(&models.User{ID: 1})
	assert.Error(t, err)
}
