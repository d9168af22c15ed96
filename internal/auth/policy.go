package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/identity-management/internal"
)

// APIPrefix is stripped from request paths before the resource module name
// is extracted.
const APIPrefix = "/api/v1"

// MethodPolicy maps an HTTP method to a scope label and a base permission
// set. The effective required set for a request is the base set plus the
// module-scoped permission "<module>_<scope>".
type MethodPolicy struct {
	Scope string
	Base  []string
}

var methodPolicies = map[string]MethodPolicy{
	http.MethodGet:    {Scope: "read", Base: []string{"admin_granted"}},
	http.MethodPost:   {Scope: "write", Base: []string{"admin_granted"}},
	http.MethodPatch:  {Scope: "update", Base: []string{"admin_granted"}},
	http.MethodDelete: {Scope: "delete", Base: []string{"admin_granted"}},
}

// ModuleFromPath extracts the resource module name: the first path segment
// after the API prefix, e.g. /api/v1/users/123 -> "users".
func ModuleFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, APIPrefix)
	for _, segment := range strings.Split(trimmed, "/") {
		if segment != "" {
			return segment
		}
	}
	return ""
}

// Resolver makes allow/deny decisions from the static method policy table
// and the identity's effective permission set. The module name is derived
// from the URL at decision time, so new resource modules need no
// authorization code, only a permission string convention.
type Resolver struct {
	logger *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// RequiredPermissions computes the effective required set for a request:
// the method's base permissions plus the module-scoped permission.
func (r *Resolver) RequiredPermissions(method, path string) ([]string, bool) {
	policy, ok := methodPolicies[method]
	if !ok {
		return nil, false
	}

	required := make([]string, len(policy.Base))
	copy(required, policy.Base)

	if module := ModuleFromPath(path); module != "" {
		scoped := module + "_" + policy.Scope
		exists := false
		for _, p := range required {
			if p == scoped {
				exists = true
				break
			}
		}
		if !exists {
			required = append(required, scoped)
		}
	}

	return required, true
}

// Decide returns nil to allow the request and ErrForbidden to deny it.
// Holding any single permission from the required set is sufficient.
func (r *Resolver) Decide(u *User, method, path string) error {
	if u == nil {
		return internal.ErrMissingToken
	}

	required, ok := r.RequiredPermissions(method, path)
	if !ok {
		// no policy entry for this method: fail closed
		r.logger.Warn("no permission policy for method", "method", method, "path", path)
		return internal.ErrForbidden
	}

	if !u.HasAnyPermission(required) {
		r.logger.Warn("access denied: insufficient permissions",
			"user_id", u.ID,
			"required_permissions", required,
			"effective_permissions", u.EffectivePermissions())
		return internal.ErrForbidden
	}

	return nil
}
