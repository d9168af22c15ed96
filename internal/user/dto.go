package user

import (
	"github.com/frahmantamala/identity-management/internal/core/common/validation"
)

type CreateUserDTO struct {
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Password    string   `json:"password"`
	RoleIDs     []int64  `json:"role_ids"`
	Permissions []string `json:"permissions"`
}

func (d CreateUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("username", d.Username).Required().MinLength(3).MaxLength(64)
	v.Field("email", d.Email).Required().Email()
	v.Field("name", d.Name).MaxLength(255)
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(72)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateUserDTO uses pointers so absent fields are left untouched. A present
// RoleIDs field on the caller's own account is rejected as self-demotion
// before anything else runs.
type UpdateUserDTO struct {
	Username    *string   `json:"username,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Name        *string   `json:"name,omitempty"`
	Password    *string   `json:"password,omitempty"`
	IsActive    *bool     `json:"is_active,omitempty"`
	RoleIDs     *[]int64  `json:"role_ids,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
}

func (d UpdateUserDTO) Validate() error {
	v := validation.NewValidator()
	if d.Username != nil {
		v.Field("username", *d.Username).Required().MinLength(3).MaxLength(64)
	}
	if d.Email != nil {
		v.Field("email", *d.Email).Required().Email()
	}
	if d.Name != nil {
		v.Field("name", *d.Name).MaxLength(255)
	}
	if d.Password != nil {
		v.Field("password", *d.Password).Required().MinLength(8).MaxLength(72)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
