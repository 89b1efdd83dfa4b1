package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gigboard/internal/config"
	"gigboard/internal/database"
	"gigboard/internal/mailer"
	"gigboard/internal/models"
	"gigboard/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// interleavingUsers runs afterRead once a lookup has returned, standing in
// for a concurrent writer that lands between a flow's read and its write.
type interleavingUsers struct {
	repository.UserRepository
	afterRead func()
}

func (u *interleavingUsers) hook() {
	if u.afterRead != nil {
		u.afterRead()
	}
}

func (u *interleavingUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := u.UserRepository.GetByEmail(ctx, email)
	u.hook()
	return user, err
}

func (u *interleavingUsers) GetByResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	user, err := u.UserRepository.GetByResetToken(ctx, hash, now)
	u.hook()
	return user, err
}

func (u *interleavingUsers) GetByVerificationToken(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	user, err := u.UserRepository.GetByVerificationToken(ctx, hash, now)
	u.hook()
	return user, err
}

type authFixture struct {
	db    *gorm.DB
	users *interleavingUsers
	svc   *AuthService
	mail  *mailer.LogMailer
	user  *models.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(context.Background(), &config.Config{
		Env:      "test",
		DBDriver: "sqlite",
		DBPath:   fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	user := &models.User{
		FirstName: "Dana",
		LastName:  "Scully",
		Email:     "dana@example.com",
		Password:  hashed(t, "Secret123"),
		Role:      models.RoleClient,
		IsActive:  true,
	}
	require.NoError(t, db.Create(user).Error)

	users := &interleavingUsers{UserRepository: repository.NewUserRepository(db, nil)}
	mail := &mailer.LogMailer{}
	svc := NewAuthService(users, newTestGate(users), newTestValidator(), &recordingRunner{}, mail, testLinks)
	svc.cost = bcrypt.MinCost
	return &authFixture{db: db, users: users, svc: svc, mail: mail, user: user}
}

// deactivateOnRead makes the next lookup be followed by an admin
// deactivation that also bumps token_version.
func (f *authFixture) deactivateOnRead(t *testing.T) {
	f.users.afterRead = func() {
		f.users.afterRead = nil
		require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", f.user.ID).
			Updates(map[string]any{"is_active": false, "token_version": gorm.Expr("token_version + 1")}).Error)
	}
}

func (f *authFixture) reload(t *testing.T) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, f.db.First(&user, f.user.ID).Error)
	return &user
}

func (f *authFixture) lastLinkToken(t *testing.T, marker string) string {
	t.Helper()
	sent := f.mail.Sent()
	require.NotEmpty(t, sent)
	html := sent[len(sent)-1].HTML
	i := strings.Index(html, marker)
	require.GreaterOrEqual(t, i, 0)
	return html[i+len(marker) : i+len(marker)+64]
}

func TestAuthService_LoginKeepsConcurrentDeactivation(t *testing.T) {
	f := newAuthFixture(t)
	f.deactivateOnRead(t)

	res, err := f.svc.Login(context.Background(), LoginInput{Email: "dana@example.com", Password: "Secret123"})
	require.NoError(t, err)

	stored := f.reload(t)
	assert.False(t, stored.IsActive)
	assert.Equal(t, 1, stored.TokenVersion)
	assert.NotNil(t, stored.LastLoginAt)

	_, err = f.svc.gate.Authenticate(context.Background(), "Bearer "+res.Token)
	assertCode(t, err, models.CodeUnauthorized)
}

func TestAuthService_ForgotPasswordKeepsConcurrentDeactivation(t *testing.T) {
	f := newAuthFixture(t)
	f.deactivateOnRead(t)

	require.NoError(t, f.svc.ForgotPassword(context.Background(), ForgotPasswordInput{Email: "dana@example.com"}))

	stored := f.reload(t)
	assert.False(t, stored.IsActive)
	assert.Equal(t, 1, stored.TokenVersion)
	assert.NotEmpty(t, stored.PasswordResetToken)
}

func TestAuthService_ResetPasswordKeepsConcurrentDeactivation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.ForgotPassword(ctx, ForgotPasswordInput{Email: "dana@example.com"}))
	raw := f.lastLinkToken(t, "/reset-password/")

	f.deactivateOnRead(t)
	_, err := f.svc.ResetPassword(ctx, ResetPasswordInput{Token: raw, Password: "Fresh123"})
	require.NoError(t, err)

	stored := f.reload(t)
	assert.False(t, stored.IsActive)
	assert.Equal(t, 2, stored.TokenVersion, "rotation increments on top of the concurrent bump")
	assert.Empty(t, stored.PasswordResetToken)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("Fresh123")))

	_, err = f.svc.ResetPassword(ctx, ResetPasswordInput{Token: raw, Password: "Other123"})
	assertCode(t, err, models.CodeValidation)
}

func TestAuthService_VerifyEmailKeepsConcurrentDeactivation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	hash := hashToken("verify-raw")
	expires := time.Now().Add(time.Hour)
	require.NoError(t, f.db.Model(f.user).Updates(map[string]any{
		"email_verification_token":      hash,
		"email_verification_expires_at": expires,
	}).Error)

	f.deactivateOnRead(t)
	verified, err := f.svc.VerifyEmail(ctx, "verify-raw")
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	stored := f.reload(t)
	assert.True(t, stored.IsVerified)
	assert.False(t, stored.IsActive)
	assert.Equal(t, 1, stored.TokenVersion)
	assert.Empty(t, stored.EmailVerificationToken)
}
