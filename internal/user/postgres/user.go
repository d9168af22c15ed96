package postgres

import (
	"errors"

	"gorm.io/gorm"

	roleDatamodel "github.com/frahmantamala/identity-management/internal/core/datamodel/role"
	userDatamodel "github.com/frahmantamala/identity-management/internal/core/datamodel/user"
	"github.com/frahmantamala/identity-management/internal/role"
	"github.com/frahmantamala/identity-management/internal/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) user.RepositoryAPI {
	return &Repository{db: db}
}

func (r *Repository) GetAll(limit, offset int) ([]*user.User, error) {
	var records []userDatamodel.User
	if err := r.db.Order("id ASC").Limit(limit).Offset(offset).Find(&records).Error; err != nil {
		return nil, err
	}

	users := make([]*user.User, 0, len(records))
	for i := range records {
		u, err := r.resolveAccess(&records[i])
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *Repository) GetByID(id int64) (*user.User, error) {
	return r.getOne("id = ?", id)
}

func (r *Repository) GetByEmail(email string) (*user.User, error) {
	return r.getOne("email = ?", email)
}

func (r *Repository) GetByUsername(username string) (*user.User, error) {
	return r.getOne("username = ?", username)
}

func (r *Repository) getOne(query string, arg interface{}) (*user.User, error) {
	var record userDatamodel.User
	err := r.db.Where(query, arg).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.resolveAccess(&record)
}

// resolveAccess turns a stored row into the domain user with its role
// references resolved against the role store. Dangling references are
// skipped, contributing an empty permission set.
func (r *Repository) resolveAccess(record *userDatamodel.User) (*user.User, error) {
	u := user.FromDataModel(record)

	var assignments []userDatamodel.UserRole
	if err := r.db.Where("user_id = ?", record.ID).Find(&assignments).Error; err != nil {
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
		permissions := make([]string, 0, len(grants))
		for _, g := range grants {
			permissions = append(permissions, g.Permission)
		}

		u.Roles = append(u.Roles, *role.FromDataModel(&roleRecord, permissions))
	}

	var direct []userDatamodel.UserPermission
	if err := r.db.Where("user_id = ?", record.ID).Find(&direct).Error; err != nil {
		return nil, err
	}
	for _, d := range direct {
		u.Permissions = append(u.Permissions, d.Permission)
	}

	return u, nil
}

// Create writes the user row together with its role assignments and direct
// permission grants in a single transaction, so none of the three can land
// without the others.
func (r *Repository) Create(domainUser *user.User, roleIDs []int64, permissions []string) error {
	record := user.ToDataModel(domainUser)
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			assignment := userDatamodel.UserRole{UserID: record.ID, RoleID: roleID}
			if err := tx.Create(&assignment).Error; err != nil {
				return err
			}
		}
		for _, p := range permissions {
			grant := userDatamodel.UserPermission{UserID: record.ID, Permission: p}
			if err := tx.Create(&grant).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	domainUser.ID = record.ID
	domainUser.CreatedAt = record.CreatedAt
	domainUser.UpdatedAt = record.UpdatedAt
	return nil
}

func (r *Repository) Update(domainUser *user.User) error {
	record := user.ToDataModel(domainUser)
	return r.db.Save(record).Error
}

func (r *Repository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&userDatamodel.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&userDatamodel.UserPermission{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&userDatamodel.User{}).Error
	})
}

func (r *Repository) ReplaceRoles(userID int64, roleIDs []int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&userDatamodel.UserRole{}).Error; err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			assignment := userDatamodel.UserRole{UserID: userID, RoleID: roleID}
			if err := tx.Create(&assignment).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) ReplacePermissions(userID int64, permissions []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&userDatamodel.UserPermission{}).Error; err != nil {
			return err
		}
		for _, p := range permissions {
			grant := userDatamodel.UserPermission{UserID: userID, Permission: p}
			if err := tx.Create(&grant).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) MissingRoles(roleIDs []int64) ([]int64, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	var records []roleDatamodel.Role
	if err := r.db.Where("id IN ?", roleIDs).Find(&records).Error; err != nil {
		return nil, err
	}

	found := make(map[int64]struct{}, len(records))
	for _, record := range records {
		found[record.ID] = struct{}{}
	}

	var missing []int64
	for _, id := range roleIDs {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
