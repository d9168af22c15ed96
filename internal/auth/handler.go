package auth

import (
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/identity-management/internal"
	"github.com/frahmantamala/identity-management/internal/transport"
)

// CookieName is the cookie carrying the session token.
const CookieName = "access_token"

type Handler struct {
	*transport.BaseHandler
	Service      ServiceAPI
	secureCookie bool
}

func NewHandler(svc ServiceAPI, secureCookie bool) *Handler {
	return &Handler{
		BaseHandler:  transport.NewBaseHandler(nil),
		Service:      svc,
		secureCookie: secureCookie,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body"))
		return
	}

	token, user, err := h.Service.Login(dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	h.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractToken(r, CookieName)

	revoked, err := h.Service.Logout(token)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.clearSessionCookie(w)
	h.WriteJSON(w, http.StatusOK, map[string]bool{"revoked": revoked})
}

// AuthMiddleware validates the session token and attaches the authenticated
// user to the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractToken(r, CookieName)
		if token == "" {
			h.WriteAppError(w, internal.ErrMissingToken)
			return
		}

		user, err := h.Service.Authenticate(token)
		if err != nil {
			h.WriteAppError(w, err)
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		ctx = internal.ContextWithUserID(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAccess runs the permission resolver against the request method and
// path. It must sit behind AuthMiddleware.
func RequireAccess(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			base := transport.NewBaseHandler(nil)

			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				base.WriteAppError(w, internal.ErrMissingToken)
				return
			}

			if err := resolver.Decide(user, r.Method, r.URL.Path); err != nil {
				base.WriteAppError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.Service.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteNoneMode,
	})
}
