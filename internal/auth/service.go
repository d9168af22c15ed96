package auth

import (
	"log/slog"
	"time"

	"github.com/frahmantamala/identity-management/internal"
)

// RepositoryAPI is the store contract for credentials, sessions and the
// identity load. Lookups return (nil, nil) when no record matches; an error
// always means a store failure, never "not found".
type RepositoryAPI interface {
	GetCredentialsByEmail(email string) (*Credentials, error)
	GetUserWithAccess(userID int64) (*User, error)
	CreateSession(token string, userID int64, expiresAt time.Time) error
	FindLiveSession(token string) (*Session, error)
	RevokeSession(token string) (bool, error)
	DeleteExpiredSessions(before time.Time) (int64, error)
}

type ServiceAPI interface {
	Login(dto LoginDTO) (string, *User, error)
	Authenticate(token string) (*User, error)
	Logout(token string) (bool, error)
	SessionTTL() time.Duration
}

// Service is the session manager: it verifies credentials, issues and
// revokes session tokens, and validates token liveness per request.
type Service struct {
	repo     RepositoryAPI
	tokenGen TokenGenerator
	ttl      time.Duration
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, tokenGen TokenGenerator, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		tokenGen: tokenGen,
		ttl:      ttl,
		logger:   logger,
	}
}

// Login verifies the email/password pair and mints a session token. Unknown
// email and wrong password report the identical failure so responses cannot
// be used to enumerate accounts.
func (s *Service) Login(dto LoginDTO) (string, *User, error) {
	if err := dto.Validate(); err != nil {
		return "", nil, err
	}

	creds, err := s.repo.GetCredentialsByEmail(dto.Email)
	if err != nil {
		s.logger.Error("credential lookup failed", "error", err)
		return "", nil, internal.NewInternalError("login failed", err)
	}
	if creds == nil || !creds.IsActive {
		return "", nil, internal.ErrInvalidCredentials
	}

	if err := VerifyPassword(creds.PasswordHash, dto.Password); err != nil {
		return "", nil, internal.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokenGen.GenerateToken(creds.UserID)
	if err != nil {
		s.logger.Error("token generation failed", "error", err, "user_id", creds.UserID)
		return "", nil, internal.NewInternalError("login failed", err)
	}

	if err := s.repo.CreateSession(token, creds.UserID, expiresAt); err != nil {
		s.logger.Error("session persist failed", "error", err, "user_id", creds.UserID)
		return "", nil, internal.NewInternalError("login failed", err)
	}

	user, err := s.repo.GetUserWithAccess(creds.UserID)
	if err != nil {
		s.logger.Error("user load failed after login", "error", err, "user_id", creds.UserID)
		return "", nil, internal.NewInternalError("login failed", err)
	}
	if user == nil {
		return "", nil, internal.ErrInvalidCredentials
	}

	return token, user, nil
}

// Authenticate validates a session token end to end: signature and expiry,
// server-side revocation state, then the identity load with roles resolved.
func (s *Service) Authenticate(token string) (*User, error) {
	if token == "" {
		return nil, internal.ErrMissingToken
	}

	claims, err := s.tokenGen.ValidateToken(token)
	if err != nil {
		// verification failures are authentication failures, not faults
		return nil, err
	}

	session, err := s.repo.FindLiveSession(token)
	if err != nil {
		s.logger.Error("session lookup failed", "error", err)
		return nil, internal.NewInternalError("authentication failed", err)
	}
	if session == nil {
		// covers revoked, expired-and-swept and never-issued tokens alike
		return nil, internal.ErrSessionRevoked
	}

	user, err := s.repo.GetUserWithAccess(claims.UserID)
	if err != nil {
		s.logger.Error("user load failed", "error", err, "user_id", claims.UserID)
		return nil, internal.NewInternalError("authentication failed", err)
	}
	if user == nil {
		return nil, internal.ErrInvalidToken
	}

	return user, nil
}

// Logout revokes the session for the given token. Idempotent: revoking an
// already-revoked or unknown token reports false rather than failing.
func (s *Service) Logout(token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	revoked, err := s.repo.RevokeSession(token)
	if err != nil {
		s.logger.Error("session revoke failed", "error", err)
		return false, internal.NewInternalError("logout failed", err)
	}

	return revoked, nil
}

func (s *Service) SessionTTL() time.Duration {
	return s.ttl
}

// PruneExpiredSessions hard-deletes session rows past their expiry. Expired
// tokens already fail validation on their own; this only keeps the sessions
// table from growing without bound. Run at process start.
func (s *Service) PruneExpiredSessions() (int64, error) {
	pruned, err := s.repo.DeleteExpiredSessions(time.Now())
	if err != nil {
		s.logger.Error("session prune failed", "error", err)
		return 0, internal.NewInternalError("session prune failed", err)
	}
	if pruned > 0 {
		s.logger.Info("pruned expired sessions", "count", pruned)
	}
	return pruned, nil
}
