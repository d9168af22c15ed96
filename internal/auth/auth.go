package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey string

const ContextUserKey ctxKey = "user"

// User is the authenticated principal attached to the request context after
// token validation. Roles are resolved at load time with an explicit join, so
// downstream authorization never touches the store again.
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Roles       []RoleGrant `json:"roles,omitempty"`
	Permissions []string   `json:"permissions,omitempty"`
}

// RoleGrant is a role reference resolved against the role store.
type RoleGrant struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions,omitempty"`
}

// EffectivePermissions returns the permission set used for authorization.
// Direct permissions override role-derived ones entirely; the union of role
// permissions only applies when no direct permission exists.
func (u *User) EffectivePermissions() []string {
	if len(u.Permissions) > 0 {
		return u.Permissions
	}

	seen := make(map[string]struct{})
	var merged []string
	for _, role := range u.Roles {
		for _, p := range role.Permissions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged
}

func (u *User) HasAnyPermission(required []string) bool {
	effective := u.EffectivePermissions()
	for _, userPerm := range effective {
		for _, requiredPerm := range required {
			if userPerm == requiredPerm {
				return true
			}
		}
	}
	return false
}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}

// Credentials is the minimal identity record needed to verify a login.
type Credentials struct {
	UserID       int64
	PasswordHash string
	IsActive     bool
}

// Session mirrors the persisted session record for an issued token.
type Session struct {
	ID        int64
	Token     string
	UserID    int64
	Revoked   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Claims represents the signed token payload.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenGenerator creates and verifies session tokens.
type TokenGenerator interface {
	GenerateToken(userID int64) (token string, expiresAt time.Time, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
