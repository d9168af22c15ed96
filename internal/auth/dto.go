package auth

import (
	"github.com/frahmantamala/identity-management/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// LoginResponse carries the authenticated user; the token itself travels in
// the access_token cookie.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
