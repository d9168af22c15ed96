package postgres

import (
	"errors"

	"gorm.io/gorm"

	roleDatamodel "github.com/frahmantamala/identity-management/internal/core/datamodel/role"
	userDatamodel "github.com/frahmantamala/identity-management/internal/core/datamodel/user"
	"github.com/frahmantamala/identity-management/internal/role"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) role.RepositoryAPI {
	return &Repository{db: db}
}

func (r *Repository) GetAll(limit, offset int) ([]*role.Role, error) {
	var records []roleDatamodel.Role
	if err := r.db.Order("name ASC").Limit(limit).Offset(offset).Find(&records).Error; err != nil {
		return nil, err
	}

	roles := make([]*role.Role, 0, len(records))
	for i := range records {
		permissions, err := r.permissionsFor(records[i].ID)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role.FromDataModel(&records[i], permissions))
	}
	return roles, nil
}

func (r *Repository) GetByID(id int64) (*role.Role, error) {
	var record roleDatamodel.Role
	err := r.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	permissions, err := r.permissionsFor(record.ID)
	if err != nil {
		return nil, err
	}
	return role.FromDataModel(&record, permissions), nil
}

func (r *Repository) GetByName(name string) (*role.Role, error) {
	var record roleDatamodel.Role
	err := r.db.Where("name = ?", name).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	permissions, err := r.permissionsFor(record.ID)
	if err != nil {
		return nil, err
	}
	return role.FromDataModel(&record, permissions), nil
}

func (r *Repository) Create(domainRole *role.Role) error {
	record := role.ToDataModel(domainRole)

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		for _, p := range domainRole.Permissions {
			grant := roleDatamodel.RolePermission{RoleID: record.ID, Permission: p}
			if err := tx.Create(&grant).Error; err != nil {
				return err
			}
		}
		domainRole.ID = record.ID
		domainRole.CreatedAt = record.CreatedAt
		domainRole.UpdatedAt = record.UpdatedAt
		return nil
	})
}

func (r *Repository) Update(domainRole *role.Role) error {
	record := role.ToDataModel(domainRole)

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(record).Error; err != nil {
			return err
		}
		// replace the permission set wholesale
		if err := tx.Where("role_id = ?", record.ID).Delete(&roleDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		for _, p := range domainRole.Permissions {
			grant := roleDatamodel.RolePermission{RoleID: record.ID, Permission: p}
			if err := tx.Create(&grant).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&roleDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&roleDatamodel.Role{}).Error
	})
}

func (r *Repository) IsAssigned(id int64) (bool, error) {
	var count int64
	err := r.db.Model(&userDatamodel.UserRole{}).Where("role_id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) permissionsFor(roleID int64) ([]string, error) {
	var grants []roleDatamodel.RolePermission
	if err := r.db.Where("role_id = ?", roleID).Find(&grants).Error; err != nil {
		return nil, err
	}

	permissions := make([]string, 0, len(grants))
	for _, g := range grants {
		permissions = append(permissions, g.Permission)
	}
	return permissions, nil
}
