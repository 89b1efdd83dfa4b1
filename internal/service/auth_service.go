package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gigboard/internal/auth"
	"gigboard/internal/mailer"
	"gigboard/internal/middleware"
	"gigboard/internal/models"
	"gigboard/internal/repository"
	"gigboard/internal/tasks"
	"gigboard/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	verificationTTL  = 24 * time.Hour
	passwordResetTTL = 10 * time.Minute
)

var errInvalidCredentials = models.NewUnauthorizedError("Invalid email or password")

type AuthService struct {
	users    repository.UserRepository
	gate     *auth.Gate
	validate *validation.Validator
	notify   notifier
	cost     int
	now      func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	gate *auth.Gate,
	v *validation.Validator,
	runner tasks.Runner,
	mail mailer.Mailer,
	links mailer.Links,
) *AuthService {
	return &AuthService{
		users:    users,
		gate:     gate,
		validate: v,
		notify:   notifier{runner: runner, mail: mail, links: links},
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

type RegisterInput struct {
	FirstName      string   `json:"first_name" validate:"required,notblank,max=50"`
	LastName       string   `json:"last_name" validate:"required,notblank,max=50"`
	Email          string   `json:"email" validate:"required,email,max=255"`
	Password       string   `json:"password" validate:"required,password"`
	Role           string   `json:"role" validate:"omitempty,oneof=client expert"`
	Bio            string   `json:"bio" validate:"max=500"`
	Phone          string   `json:"phone" validate:"max=32"`
	Skills         []string `json:"skills" validate:"max=30,dive,notblank,max=50"`
	Certifications []string `json:"certifications" validate:"max=30,dive,notblank,max=100"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required,notblank"`
	Password string `json:"password" validate:"required,password"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password"`
}

// AuthResult is returned by every call that issues a credential.
type AuthResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Register creates a client or expert account and emails a verification link.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User already exists with this email")
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	rawToken, tokenHash, err := newOpaqueToken()
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	role := models.Role(in.Role)
	if role == "" {
		role = models.RoleClient
	}
	expires := s.now().Add(verificationTTL)
	user := &models.User{
		FirstName:                  strings.TrimSpace(in.FirstName),
		LastName:                   strings.TrimSpace(in.LastName),
		Email:                      email,
		Password:                   hash,
		Role:                       role,
		Bio:                        in.Bio,
		Phone:                      in.Phone,
		IsActive:                   true,
		EmailVerificationToken:     tokenHash,
		EmailVerificationExpiresAt: &expires,
	}
	if role == models.RoleExpert {
		user.Skills = in.Skills
		user.Certifications = in.Certifications
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.notify.send(mailer.TemplateVerifyEmail, func(l mailer.Links) (mailer.Message, error) {
		return l.VerifyEmail(user, rawToken)
	})

	return s.issue(user)
}

// Login checks the password of an active account and issues a token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, errInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		return nil, errInvalidCredentials
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user, "last_login_at"); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// ForgotPassword emails a reset link. Unknown addresses succeed silently so
// the endpoint cannot be used to probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	if err := s.validate.Struct(in); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if user == nil || !user.IsActive {
		middleware.Logger.InfoContext(ctx, "password reset requested for unknown account")
		return nil
	}

	rawToken, tokenHash, err := newOpaqueToken()
	if err != nil {
		return models.NewInternalError(err)
	}
	expires := s.now().Add(passwordResetTTL)
	user.PasswordResetToken = tokenHash
	user.PasswordResetExpires = &expires
	if err := s.users.Update(ctx, user, "password_reset_token", "password_reset_expires"); err != nil {
		return err
	}

	s.notify.send(mailer.TemplatePasswordReset, func(l mailer.Links) (mailer.Message, error) {
		return l.PasswordReset(user, rawToken)
	})
	return nil
}

// ResetPassword sets a new password from a reset token and invalidates every
// token issued before it.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) (*AuthResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByResetToken(ctx, hashToken(strings.TrimSpace(in.Token)), s.now())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewValidationError("Invalid or expired reset token")
	}

	rotated, err := s.rotatePassword(ctx, user, in.Password)
	if err != nil {
		return nil, err
	}
	if rotated == nil {
		return nil, models.NewValidationError("Invalid or expired reset token")
	}
	return s.issue(rotated)
}

// ChangePassword replaces the password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, in ChangePasswordInput) (*AuthResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.CurrentPassword)) != nil {
		return nil, models.NewUnauthorizedError("Current password is incorrect")
	}
	if in.CurrentPassword == in.NewPassword {
		return nil, models.NewFieldValidationError("Validation failed", map[string]string{
			"new_password": "New password must differ from the current password",
		})
	}

	rotated, err := s.rotatePassword(ctx, user, in.NewPassword)
	if err != nil {
		return nil, err
	}
	if rotated == nil {
		return nil, models.NewUnauthorizedError("Current password is incorrect")
	}
	return s.issue(rotated)
}

// VerifyEmail marks the address behind token as verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, models.NewValidationError("Invalid or expired verification token")
	}

	user, err := s.users.GetByVerificationToken(ctx, hashToken(token), s.now())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewValidationError("Invalid or expired verification token")
	}

	now := s.now()
	user.IsVerified = true
	user.EmailVerifiedAt = &now
	user.EmailVerificationToken = ""
	user.EmailVerificationExpiresAt = nil
	if err := s.users.Update(ctx, user,
		"is_verified", "email_verified_at", "email_verification_token", "email_verification_expires_at"); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout revokes the presented token.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.gate.Revoke(ctx, claims); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// rotatePassword swaps the hash only if user's stored hash is unchanged
// since it was read. It returns the reloaded user, or nil when another
// rotation won.
func (s *AuthService) rotatePassword(ctx context.Context, user *models.User, password string) (*models.User, error) {
	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}
	ok, err := s.users.RotatePassword(ctx, user.ID, user.Password, hash)
	if err != nil || !ok {
		return nil, err
	}
	return s.users.GetByID(ctx, user.ID)
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", models.NewValidationError("Password is too long")
		}
		return "", models.NewInternalError(err)
	}
	return string(hash), nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, claims, err := s.gate.Tokens().Issue(user)
	if err != nil {
		middleware.Logger.Error("failed to sign token", slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{
		User:      user,
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
