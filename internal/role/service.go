package role

import (
	"log/slog"

	"github.com/frahmantamala/identity-management/internal"
)

// RepositoryAPI is the role store contract. Lookups return (nil, nil) on no
// match; errors always mean store failure.
type RepositoryAPI interface {
	GetAll(limit, offset int) ([]*Role, error)
	GetByID(id int64) (*Role, error)
	GetByName(name string) (*Role, error)
	Create(role *Role) error
	Update(role *Role) error
	Delete(id int64) error
	IsAssigned(id int64) (bool, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetAll(limit, offset int) ([]*Role, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	roles, err := s.repo.GetAll(limit, offset)
	if err != nil {
		s.logger.Error("failed to list roles", "error", err)
		return nil, internal.NewInternalError("failed to list roles", err)
	}
	return roles, nil
}

func (s *Service) GetByID(id int64) (*Role, error) {
	r, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get role", "error", err, "role_id", id)
		return nil, internal.NewInternalError("failed to get role", err)
	}
	if r == nil {
		return nil, internal.ErrRoleNotFound
	}
	return r, nil
}

func (s *Service) Create(dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(dto.Name)
	if err != nil {
		s.logger.Error("role name lookup failed", "error", err)
		return nil, internal.NewInternalError("failed to create role", err)
	}
	if existing != nil {
		return nil, internal.ErrDuplicateRoleName
	}

	r := &Role{
		Name:        dto.Name,
		Description: dto.Description,
		Permissions: dto.Permissions,
	}

	if err := s.repo.Create(r); err != nil {
		s.logger.Error("failed to create role", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create role", err)
	}

	s.logger.Info("role created", "role_id", r.ID, "name", r.Name)
	return r, nil
}

func (s *Service) Update(id int64, dto UpdateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	r, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get role", "error", err, "role_id", id)
		return nil, internal.NewInternalError("failed to update role", err)
	}
	if r == nil {
		return nil, internal.ErrRoleNotFound
	}

	if dto.Name != nil && *dto.Name != r.Name {
		existing, err := s.repo.GetByName(*dto.Name)
		if err != nil {
			s.logger.Error("role name lookup failed", "error", err)
			return nil, internal.NewInternalError("failed to update role", err)
		}
		if existing != nil {
			return nil, internal.ErrDuplicateRoleName
		}
		r.Name = *dto.Name
	}
	if dto.Description != nil {
		r.Description = *dto.Description
	}
	if dto.Permissions != nil {
		r.Permissions = *dto.Permissions
	}

	if err := s.repo.Update(r); err != nil {
		s.logger.Error("failed to update role", "error", err, "role_id", id)
		return nil, internal.NewInternalError("failed to update role", err)
	}

	return r, nil
}

// Delete refuses to remove a role that users still reference, so identities
// never end up with dangling role ids.
func (s *Service) Delete(id int64) error {
	r, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get role", "error", err, "role_id", id)
		return internal.NewInternalError("failed to delete role", err)
	}
	if r == nil {
		return internal.ErrRoleNotFound
	}

	assigned, err := s.repo.IsAssigned(id)
	if err != nil {
		s.logger.Error("role assignment check failed", "error", err, "role_id", id)
		return internal.NewInternalError("failed to delete role", err)
	}
	if assigned {
		return internal.ErrRoleInUse
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete role", "error", err, "role_id", id)
		return internal.NewInternalError("failed to delete role", err)
	}

	s.logger.Info("role deleted", "role_id", id, "name", r.Name)
	return nil
}
