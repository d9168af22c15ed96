package user

import (
	"log/slog"

	"github.com/frahmantamala/identity-management/internal"
	"github.com/frahmantamala/identity-management/internal/auth"
)

// RepositoryAPI is the identity store contract. Lookups return (nil, nil)
// when no record matches; errors always mean store failure.
type RepositoryAPI interface {
	GetAll(limit, offset int) ([]*User, error)
	GetByID(id int64) (*User, error)
	GetByEmail(email string) (*User, error)
	GetByUsername(username string) (*User, error)
	Create(record *User, roleIDs []int64, permissions []string) error
	Update(record *User) error
	Delete(id int64) error
	ReplaceRoles(userID int64, roleIDs []int64) error
	ReplacePermissions(userID int64, permissions []string) error
	MissingRoles(roleIDs []int64) ([]int64, error)
}

type Service struct {
	repo       RepositoryAPI
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) GetAll(limit, offset int) ([]*User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.repo.GetAll(limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, internal.NewInternalError("failed to list users", err)
	}
	return users, nil
}

func (s *Service) GetByID(id int64) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to get user", err)
	}
	if u == nil {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (s *Service) Create(dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.checkUnique(dto.Email, dto.Username, 0); err != nil {
		return nil, err
	}

	if err := s.checkRolesExist(dto.RoleIDs); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		s.logger.Error("password hash failed", "error", err)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	u := &User{
		Username:     dto.Username,
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: hash,
		IsActive:     true,
		Permissions:  dto.Permissions,
	}

	// One transactional write: a failure assigning roles or grants must not
	// leave a user row behind without them.
	if err := s.repo.Create(u, dto.RoleIDs, dto.Permissions); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "username", u.Username)
	return s.GetByID(u.ID)
}

// Update applies a partial update. A roles change on the caller's own
// account is rejected as self-demotion before the normal path runs,
// whatever the permission outcome would have been.
func (s *Service) Update(actorID, id int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	// Role-set checks run before anything is written so a rejected roles
	// change cannot leave the field edits behind.
	if dto.RoleIDs != nil {
		if actorID == id {
			return nil, internal.ErrSelfDemotion
		}
		if err := s.checkRolesExist(*dto.RoleIDs); err != nil {
			return nil, err
		}
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to update user", err)
	}
	if u == nil {
		return nil, internal.ErrUserNotFound
	}

	newEmail := u.Email
	newUsername := u.Username
	if dto.Email != nil {
		newEmail = *dto.Email
	}
	if dto.Username != nil {
		newUsername = *dto.Username
	}
	if newEmail != u.Email || newUsername != u.Username {
		if err := s.checkUnique(newEmail, newUsername, id); err != nil {
			return nil, err
		}
	}

	u.Email = newEmail
	u.Username = newUsername
	if dto.Name != nil {
		u.Name = *dto.Name
	}
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}
	if dto.Password != nil {
		hash, err := auth.HashPassword(*dto.Password, s.bcryptCost)
		if err != nil {
			s.logger.Error("password hash failed", "error", err)
			return nil, internal.NewInternalError("failed to update user", err)
		}
		u.PasswordHash = hash
	}

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to update user", err)
	}

	if dto.RoleIDs != nil {
		if err := s.repo.ReplaceRoles(id, *dto.RoleIDs); err != nil {
			s.logger.Error("failed to replace roles", "error", err, "user_id", id)
			return nil, internal.NewInternalError("failed to update user", err)
		}
	}
	if dto.Permissions != nil {
		if err := s.repo.ReplacePermissions(id, *dto.Permissions); err != nil {
			s.logger.Error("failed to replace permissions", "error", err, "user_id", id)
			return nil, internal.NewInternalError("failed to update user", err)
		}
	}

	return s.GetByID(id)
}

// Delete removes an identity. Deleting your own account is a conflict,
// checked before anything else.
func (s *Service) Delete(actorID, id int64) error {
	if actorID == id {
		return internal.ErrSelfDeletion
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get user", "error", err, "user_id", id)
		return internal.NewInternalError("failed to delete user", err)
	}
	if u == nil {
		return internal.ErrUserNotFound
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", id)
		return internal.NewInternalError("failed to delete user", err)
	}

	s.logger.Info("user deleted", "user_id", id, "username", u.Username)
	return nil
}

func (s *Service) checkUnique(email, username string, selfID int64) error {
	byEmail, err := s.repo.GetByEmail(email)
	if err != nil {
		s.logger.Error("email lookup failed", "error", err)
		return internal.NewInternalError("user lookup failed", err)
	}
	if byEmail != nil && byEmail.ID != selfID {
		return internal.ErrDuplicateEmail
	}

	byUsername, err := s.repo.GetByUsername(username)
	if err != nil {
		s.logger.Error("username lookup failed", "error", err)
		return internal.NewInternalError("user lookup failed", err)
	}
	if byUsername != nil && byUsername.ID != selfID {
		return internal.ErrDuplicateUsername
	}

	return nil
}

func (s *Service) checkRolesExist(roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return nil
	}

	missing, err := s.repo.MissingRoles(roleIDs)
	if err != nil {
		s.logger.Error("role lookup failed", "error", err)
		return internal.NewInternalError("role lookup failed", err)
	}
	if len(missing) > 0 {
		return internal.ErrRoleNotFound
	}
	return nil
}
