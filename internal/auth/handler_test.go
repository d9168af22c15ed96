package auth_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/identity-management/internal/auth"
	authPostgres "github.com/frahmantamala/identity-management/internal/auth/postgres"
	roleDatamodel "github.com/frahmantamala/identity-management/internal/core/datamodel/role"
	sessionDatamodel "github.com/frahmantamala/identity-management/internal/core/datamodel/session"
	userDatamodel "github.com/frahmantamala/identity-management/internal/core/datamodel/user"
)

var _ = Describe("Auth Handler Integration", func() {
	var (
		db      *gorm.DB
		repo    *authPostgres.Repository
		service *auth.Service
		handler *auth.Handler
		slogger *slog.Logger
	)

	BeforeEach(func() {
		var err error
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(
			&userDatamodel.User{},
			&userDatamodel.UserRole{},
			&userDatamodel.UserPermission{},
			&roleDatamodel.Role{},
			&roleDatamodel.RolePermission{},
			&sessionDatamodel.Session{},
		)
		Expect(err).NotTo(HaveOccurred())

		repo = authPostgres.NewRepository(db)
		tokenGen := auth.NewJWTTokenGenerator("integration-test-secret-32-chars!", time.Hour)
		service = auth.NewService(repo, tokenGen, time.Hour, slogger)
		handler = auth.NewHandler(service, false)

		hash, err := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())

		adminRole := roleDatamodel.Role{Name: "admin", Description: "full administrator"}
		Expect(db.Create(&adminRole).Error).NotTo(HaveOccurred())
		Expect(db.Create(&roleDatamodel.RolePermission{RoleID: adminRole.ID, Permission: "admin_granted"}).Error).NotTo(HaveOccurred())

		testUser := userDatamodel.User{
			Username:     "admin",
			Email:        "admin@example.com",
			Name:         "Administrator",
			PasswordHash: string(hash),
			IsActive:     true,
		}
		Expect(db.Create(&testUser).Error).NotTo(HaveOccurred())
		Expect(db.Create(&userDatamodel.UserRole{UserID: testUser.ID, RoleID: adminRole.ID}).Error).NotTo(HaveOccurred())
	})

	login := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.Login(w, req)
		return w
	}

	Describe("POST /auth/login", func() {
		It("should set the session cookie and return the user", func() {
			w := login(`{"email":"admin@example.com","password":"correct_password"}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

			cookies := w.Result().Cookies()
			Expect(cookies).To(HaveLen(1))
			Expect(cookies[0].Name).To(Equal(auth.CookieName))
			Expect(cookies[0].Value).NotTo(BeEmpty())
			Expect(cookies[0].HttpOnly).To(BeTrue())

			var response auth.LoginResponse
			Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
			Expect(response.Token).To(Equal(cookies[0].Value))
			Expect(response.User.Email).To(Equal("admin@example.com"))
			Expect(response.User.Roles).To(HaveLen(1))
			Expect(response.User.Roles[0].Permissions).To(ContainElement("admin_granted"))
		})

		It("should reject a wrong password with 401", func() {
			w := login(`{"email":"admin@example.com","password":"wrong_password"}`)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(w.Result().Cookies()).To(BeEmpty())
		})

		It("should reject an unknown email with the same response as a wrong password", func() {
			wrongPassword := login(`{"email":"admin@example.com","password":"wrong_password"}`)
			unknownEmail := login(`{"email":"nobody@example.com","password":"correct_password"}`)

			Expect(unknownEmail.Code).To(Equal(wrongPassword.Code))
			Expect(unknownEmail.Body.String()).To(Equal(wrongPassword.Body.String()))
		})

		It("should reject a malformed body with 400", func() {
			w := login(`{not json`)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("AuthMiddleware", func() {
		var protected http.Handler

		BeforeEach(func() {
			protected = handler.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user, ok := auth.UserFromContext(r.Context())
				Expect(ok).To(BeTrue())
				w.Header().Set("X-User", user.Username)
				w.WriteHeader(http.StatusOK)
			}))
		})

		It("should pass a request carrying the session cookie", func() {
			loginResp := login(`{"email":"admin@example.com","password":"correct_password"}`)
			cookie := loginResp.Result().Cookies()[0]

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			req.AddCookie(cookie)
			w := httptest.NewRecorder()

			protected.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("X-User")).To(Equal("admin"))
		})

		It("should pass a request carrying a bearer header", func() {
			loginResp := login(`{"email":"admin@example.com","password":"correct_password"}`)
			var response auth.LoginResponse
			Expect(json.NewDecoder(loginResp.Body).Decode(&response)).To(Succeed())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			req.Header.Set("Authorization", "Bearer "+response.Token)
			w := httptest.NewRecorder()

			protected.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("should reject a request with no token", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			w := httptest.NewRecorder()

			protected.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should reject a garbage token", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			req.Header.Set("Authorization", "Bearer garbage.token.value")
			w := httptest.NewRecorder()

			protected.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should reject a token after logout", func() {
			loginResp := login(`{"email":"admin@example.com","password":"correct_password"}`)
			cookie := loginResp.Result().Cookies()[0]

			logoutReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
			logoutReq.AddCookie(cookie)
			logoutRec := httptest.NewRecorder()
			handler.Logout(logoutRec, logoutReq)
			Expect(logoutRec.Code).To(Equal(http.StatusOK))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			req.AddCookie(cookie)
			w := httptest.NewRecorder()

			protected.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("POST /auth/logout", func() {
		It("should revoke the session and clear the cookie", func() {
			loginResp := login(`{"email":"admin@example.com","password":"correct_password"}`)
			cookie := loginResp.Result().Cookies()[0]

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
			req.AddCookie(cookie)
			w := httptest.NewRecorder()

			handler.Logout(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var response map[string]bool
			Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
			Expect(response["revoked"]).To(BeTrue())

			cleared := w.Result().Cookies()
			Expect(cleared).To(HaveLen(1))
			Expect(cleared[0].Value).To(BeEmpty())
			Expect(cleared[0].MaxAge).To(BeNumerically("<", 0))
		})

		It("should report revoked false on a second logout", func() {
			loginResp := login(`{"email":"admin@example.com","password":"correct_password"}`)
			cookie := loginResp.Result().Cookies()[0]

			for i, expected := range []bool{true, false} {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
				req.AddCookie(cookie)
				w := httptest.NewRecorder()

				handler.Logout(w, req)

				Expect(w.Code).To(Equal(http.StatusOK), "logout attempt %d", i+1)

				var response map[string]bool
				Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
				Expect(response["revoked"]).To(Equal(expected))
			}
		})

		It("should succeed without any token", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
			w := httptest.NewRecorder()

			handler.Logout(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var response map[string]bool
			Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
			Expect(response["revoked"]).To(BeFalse())
		})
	})

	Describe("RequireAccess", func() {
		var guarded http.Handler

		BeforeEach(func() {
			resolver := auth.NewResolver(slogger)
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			guarded = handler.AuthMiddleware(auth.RequireAccess(resolver)(next))
		})

		It("should allow an admin through", func() {
			loginResp := login(`{"email":"admin@example.com","password":"correct_password"}`)
			cookie := loginResp.Result().Cookies()[0]

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/99", nil)
			req.AddCookie(cookie)
			w := httptest.NewRecorder()

			guarded.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("should deny a viewer writing", func() {
			hash, err := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)
			Expect(err).NotTo(HaveOccurred())

			viewerRole := roleDatamodel.Role{Name: "viewer"}
			Expect(db.Create(&viewerRole).Error).NotTo(HaveOccurred())
			Expect(db.Create(&roleDatamodel.RolePermission{RoleID: viewerRole.ID, Permission: "users_read"}).Error).NotTo(HaveOccurred())

			viewer := userDatamodel.User{
				Username:     "viewer",
				Email:        "viewer@example.com",
				PasswordHash: string(hash),
				IsActive:     true,
			}
			Expect(db.Create(&viewer).Error).NotTo(HaveOccurred())
			Expect(db.Create(&userDatamodel.UserRole{UserID: viewer.ID, RoleID: viewerRole.ID}).Error).NotTo(HaveOccurred())

			loginResp := login(`{"email":"viewer@example.com","password":"correct_password"}`)
			cookie := loginResp.Result().Cookies()[0]

			readReq := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			readReq.AddCookie(cookie)
			readRec := httptest.NewRecorder()
			guarded.ServeHTTP(readRec, readReq)
			Expect(readRec.Code).To(Equal(http.StatusOK))

			writeReq := httptest.NewRequest(http.MethodPost, "/api/v1/users", nil)
			writeReq.AddCookie(cookie)
			writeRec := httptest.NewRecorder()
			guarded.ServeHTTP(writeRec, writeReq)
			Expect(writeRec.Code).To(Equal(http.StatusForbidden))
		})
	})

	Describe("DeleteExpiredSessions", func() {
		It("should remove expired rows and leave live sessions intact", func() {
			loginResp := login(`{"email":"admin@example.com","password":"correct_password"}`)
			liveToken := loginResp.Result().Cookies()[0].Value

			expired := sessionDatamodel.Session{
				Token:     "long-gone-token",
				UserID:    1,
				ExpiresAt: time.Now().Add(-time.Hour),
			}
			Expect(db.Create(&expired).Error).NotTo(HaveOccurred())

			deleted, err := repo.DeleteExpiredSessions(time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(int64(1)))

			var remaining int64
			Expect(db.Model(&sessionDatamodel.Session{}).Count(&remaining).Error).NotTo(HaveOccurred())
			Expect(remaining).To(Equal(int64(1)))

			session, err := repo.FindLiveSession(liveToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(session).NotTo(BeNil())
		})
	})
})
