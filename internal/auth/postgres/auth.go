package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/identity-management/internal/auth"
	roleDatamodel "github.com/frahmantamala/identity-management/internal/core/datamodel/role"
	sessionDatamodel "github.com/frahmantamala/identity-management/internal/core/datamodel/session"
	userDatamodel "github.com/frahmantamala/identity-management/internal/core/datamodel/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetCredentialsByEmail(email string) (*auth.Credentials, error) {
	var record userDatamodel.User
	err := r.db.Where("email = ?", email).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &auth.Credentials{
		UserID:       record.ID,
		PasswordHash: record.PasswordHash,
		IsActive:     record.IsActive,
	}, nil
}

// GetUserWithAccess loads a user and resolves its role references with an
// explicit two-step join: user_roles first, then each role's permission set.
// Dangling role references contribute nothing.
func (r *Repository) GetUserWithAccess(userID int64) (*auth.User, error) {
	var record userDatamodel.User
	err := r.db.Where("id = ? AND is_active = ?", userID, true).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	user := &auth.User{
		ID:       record.ID,
		Username: record.Username,
		Email:    record.Email,
	}

	var assignments []userDatamodel.UserRole
	if err := r.db.Where("user_id = ?", userID).Find(&assignments).Error; err != nil {
		return nil, err
	}

	for _, assignment := range assignments {
		var roleRecord roleDatamodel.Role
		err := r.db.Where("id = ?", assignment.RoleID).First(&roleRecord).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}

		var grants []roleDatamodel.RolePermission
		if err := r.db.Where("role_id = ?", roleRecord.ID).Find(&grants).Error; err != nil {
			return nil, err
		}

		grant := auth.RoleGrant{
			ID:   roleRecord.ID,
			Name: roleRecord.Name,
		}
		for _, g := range grants {
			grant.Permissions = append(grant.Permissions, g.Permission)
		}
		user.Roles = append(user.Roles, grant)
	}

	var direct []userDatamodel.UserPermission
	if err := r.db.Where("user_id = ?", userID).Find(&direct).Error; err != nil {
		return nil, err
	}
	for _, d := range direct {
		user.Permissions = append(user.Permissions, d.Permission)
	}

	return user, nil
}

func (r *Repository) CreateSession(token string, userID int64, expiresAt time.Time) error {
	record := sessionDatamodel.Session{
		Token:     token,
		UserID:    userID,
		Revoked:   false,
		ExpiresAt: expiresAt,
	}
	return r.db.Create(&record).Error
}

// FindLiveSession matches the exact token string against a non-revoked,
// non-expired session record.
func (r *Repository) FindLiveSession(token string) (*auth.Session, error) {
	var record sessionDatamodel.Session
	err := r.db.Where("token = ? AND revoked = ? AND expires_at > ?", token, false, time.Now()).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &auth.Session{
		ID:        record.ID,
		Token:     record.Token,
		UserID:    record.UserID,
		Revoked:   record.Revoked,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// RevokeSession flips the revoked flag and reports whether a live record was
// actually changed, which keeps logout idempotent.
func (r *Repository) RevokeSession(token string) (bool, error) {
	result := r.db.Model(&sessionDatamodel.Session{}).
		Where("token = ? AND revoked = ?", token, false).
		Update("revoked", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteExpiredSessions hard-deletes rows past their expiry. Expired tokens
// already fail signature verification; this just keeps the table bounded.
func (r *Repository) DeleteExpiredSessions(before time.Time) (int64, error) {
	result := r.db.Where("expires_at <= ?", before).Delete(&sessionDatamodel.Session{})
	return result.RowsAffected, result.Error
}

var _ auth.RepositoryAPI = (*Repository)(nil)
