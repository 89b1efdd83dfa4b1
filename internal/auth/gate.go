package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gigboard/internal/cache"
	"gigboard/internal/middleware"
	"gigboard/internal/models"

	"github.com/redis/go-redis/v9"
)

// UserStore is the slice of the user repository the gate needs.
type UserStore interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	TouchLastActive(ctx context.Context, id uint, at time.Time) error
}

// Principal is the cached, authorization-relevant part of a user.
type Principal struct {
	ID           uint        `json:"id"`
	Role         models.Role `json:"role"`
	Active       bool        `json:"active"`
	TokenVersion int         `json:"ver"`
}

// Identity is an authenticated caller.
type Identity struct {
	Principal
	Claims *Claims
}

// Gate authenticates bearer tokens and authorizes the resulting identities.
type Gate struct {
	tokens *TokenManager
	users  UserStore
	redis  *redis.Client
	policy Policy
	now    func() time.Time
}

// NewGate wires a gate. rdb may be nil, in which case revocation checks and
// principal caching are skipped.
func NewGate(tokens *TokenManager, users UserStore, rdb *redis.Client, policy Policy) *Gate {
	return &Gate{tokens: tokens, users: users, redis: rdb, policy: policy, now: time.Now}
}

// Tokens exposes the token manager used for issuing credentials.
func (g *Gate) Tokens() *TokenManager {
	return g.tokens
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", models.NewUnauthorizedError("Not authorized to access this route")
	}
	return strings.TrimSpace(token), nil
}

// Authenticate resolves an Authorization header into an identity.
func (g *Gate) Authenticate(ctx context.Context, header string) (*Identity, error) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, err
	}
	return g.AuthenticateToken(ctx, token)
}

// AuthenticateToken resolves a raw token into an identity. Revoked tokens,
// tokens of deleted or deactivated users, and tokens minted before the last
// credential change are rejected.
func (g *Gate) AuthenticateToken(ctx context.Context, token string) (*Identity, error) {
	claims, err := g.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := cache.IsBlacklisted(ctx, g.redis, claims.ID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "token revocation check failed", slog.String("error", err.Error()))
	}
	if revoked {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}

	userID, _ := claims.UserID()
	principal, err := g.principal(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !principal.Active {
		return nil, models.NewUnauthorizedError("Account is deactivated")
	}
	if principal.TokenVersion != claims.Version {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}

	g.touch(ctx, userID)

	return &Identity{Principal: principal, Claims: claims}, nil
}

func (g *Gate) principal(ctx context.Context, userID uint) (Principal, error) {
	var p Principal
	err := cache.Aside(ctx, g.redis, cache.UserKey(userID), &p, cache.UserTTL, func() error {
		user, err := g.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		p = PrincipalOf(user)
		return nil
	})
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return Principal{}, models.NewUnauthorizedError("User no longer exists")
		}
		return Principal{}, err
	}
	return p, nil
}

// touch records activity at most once per cache.ActiveTTL per user.
func (g *Gate) touch(ctx context.Context, userID uint) {
	first, err := cache.SetOnce(ctx, g.redis, cache.ActiveKey(userID), cache.ActiveTTL)
	if err != nil || !first {
		return
	}
	if err := g.users.TouchLastActive(ctx, userID, g.now()); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to update last active time",
			slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
	}
}

// Authorize checks the identity's role against action.
func (g *Gate) Authorize(id *Identity, action Action) error {
	return g.policy.Authorize(id.Role, action)
}

// Revoke blacklists the token described by claims until it would expire.
func (g *Gate) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	return cache.Blacklist(ctx, g.redis, claims.ID, claims.ExpiresAt.Sub(g.now()))
}

// Forget drops the cached principal so the next request reloads it.
func (g *Gate) Forget(ctx context.Context, userID uint) {
	cache.InvalidateUser(ctx, g.redis, userID)
}

// PrincipalOf projects user onto the fields the gate checks.
func PrincipalOf(user *models.User) Principal {
	return Principal{
		ID:           user.ID,
		Role:         user.Role,
		Active:       user.IsActive,
		TokenVersion: user.TokenVersion,
	}
}
