package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gigboard/internal/cache"
	"gigboard/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// UserFilter narrows admin user listings.
type UserFilter struct {
	Role   models.Role
	Active *bool
	Search string
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User, columns ...string) error
	RotatePassword(ctx context.Context, id uint, currentHash, newHash string) (bool, error)
	TouchLastActive(ctx context.Context, id uint, at time.Time) error
	List(ctx context.Context, filter UserFilter, limit, offset int) ([]models.User, int64, error)
}

type userRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewUserRepository returns a new UserRepository implementation. rdb is used
// to evict cached principals after writes and may be nil.
func NewUserRepository(db *gorm.DB, rdb *redis.Client) UserRepository {
	return &userRepository{db: db, redis: rdb}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no user has the address.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepository) GetByVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return r.findOne(ctx, "email_verification_token = ? AND email_verification_expires_at > ?", tokenHash, now)
}

func (r *userRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return r.findOne(ctx, "password_reset_token = ? AND password_reset_expires > ?", tokenHash, now)
}

func (r *userRepository) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists with this email")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Update writes only the named columns of user (plus updated_at). Columns
// that are not named keep whatever a concurrent writer stored, so an admin
// deactivation or token_version bump is never rolled back by a stale copy.
func (r *userRepository) Update(ctx context.Context, user *models.User, columns ...string) error {
	if len(columns) == 0 {
		return models.NewInternalError(errors.New("user update names no columns"))
	}
	cols := append(append([]string(nil), columns...), "updated_at")
	if err := r.db.WithContext(ctx).Model(user).Select(cols).Updates(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, r.redis, user.ID)
	return nil
}

// RotatePassword replaces the password hash, clears any reset token and
// bumps token_version in one statement. It only applies while the stored
// hash still equals currentHash and reports false otherwise.
func (r *userRepository) RotatePassword(ctx context.Context, id uint, currentHash, newHash string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND password = ?", id, currentHash).
		Updates(map[string]any{
			"password":               newHash,
			"password_reset_token":   "",
			"password_reset_expires": nil,
			"token_version":          gorm.Expr("token_version + ?", 1),
			"updated_at":             time.Now(),
		})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	cache.InvalidateUser(ctx, r.redis, id)
	return true, nil
}

// TouchLastActive writes only last_active_at and leaves updated_at alone.
func (r *userRepository) TouchLastActive(ctx context.Context, id uint, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_active_at", at).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter, limit, offset int) ([]models.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		like := "%" + escapeLike(term) + "%"
		q = q.Where(`(LOWER(email) LIKE ? ESCAPE '\' OR LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\')`, like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var users []models.User
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}
