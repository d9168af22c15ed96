package role

import (
	"github.com/frahmantamala/identity-management/internal/core/common/validation"
)

type CreateRoleDTO struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

func (d CreateRoleDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(2).MaxLength(64)
	v.Field("description", d.Description).MaxLength(255)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateRoleDTO uses pointers so absent fields are left untouched.
type UpdateRoleDTO struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
}

func (d UpdateRoleDTO) Validate() error {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MinLength(2).MaxLength(64)
	}
	if d.Description != nil {
		v.Field("description", *d.Description).MaxLength(255)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
