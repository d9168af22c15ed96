package auth

import (
	"net/http"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/identity-management/internal"
)

var _ = ginkgo.Describe("ModuleFromPath", func() {
	ginkgo.It("should extract the first segment after the API prefix", func() {
		gomega.Expect(ModuleFromPath("/api/v1/users")).To(gomega.Equal("users"))
		gomega.Expect(ModuleFromPath("/api/v1/users/123")).To(gomega.Equal("users"))
		gomega.Expect(ModuleFromPath("/api/v1/roles/5")).To(gomega.Equal("roles"))
	})

	ginkgo.It("should return empty for the bare prefix", func() {
		gomega.Expect(ModuleFromPath("/api/v1")).To(gomega.Equal(""))
		gomega.Expect(ModuleFromPath("/api/v1/")).To(gomega.Equal(""))
	})
})

var _ = ginkgo.Describe("Resolver", func() {
	var resolver *Resolver

	ginkgo.BeforeEach(func() {
		resolver = NewResolver(testLogger())
	})

	ginkgo.Describe("RequiredPermissions", func() {
		ginkgo.It("should combine the base set with the module scope", func() {
			// When
			required, ok := resolver.RequiredPermissions(http.MethodGet, "/api/v1/users")

			// Then
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(required).To(gomega.ConsistOf("admin_granted", "users_read"))
		})

		ginkgo.It("should map each method to its scope", func() {
			get, _ := resolver.RequiredPermissions(http.MethodGet, "/api/v1/roles")
			post, _ := resolver.RequiredPermissions(http.MethodPost, "/api/v1/roles")
			patch, _ := resolver.RequiredPermissions(http.MethodPatch, "/api/v1/roles/1")
			del, _ := resolver.RequiredPermissions(http.MethodDelete, "/api/v1/roles/1")

			gomega.Expect(get).To(gomega.ContainElement("roles_read"))
			gomega.Expect(post).To(gomega.ContainElement("roles_write"))
			gomega.Expect(patch).To(gomega.ContainElement("roles_update"))
			gomega.Expect(del).To(gomega.ContainElement("roles_delete"))
		})

		ginkgo.It("should report no policy for unmapped methods", func() {
			// When
			required, ok := resolver.RequiredPermissions(http.MethodPut, "/api/v1/users")

			// Then
			gomega.Expect(ok).To(gomega.BeFalse())
			gomega.Expect(required).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("Decide", func() {
		ginkgo.Context("when the user holds admin_granted through a role", func() {
			ginkgo.It("should allow any method on any module", func() {
				// Given
				user := &User{
					ID: 1,
					Roles: []RoleGrant{
						{ID: 1, Name: "admin", Permissions: []string{"admin_granted"}},
					},
				}

				// When & Then
				gomega.Expect(resolver.Decide(user, http.MethodGet, "/api/v1/users")).To(gomega.Succeed())
				gomega.Expect(resolver.Decide(user, http.MethodPost, "/api/v1/roles")).To(gomega.Succeed())
				gomega.Expect(resolver.Decide(user, http.MethodDelete, "/api/v1/users/7")).To(gomega.Succeed())
			})
		})

		ginkgo.Context("when the user holds only the module read scope", func() {
			ginkgo.It("should allow reads and deny writes", func() {
				// Given
				user := &User{
					ID: 2,
					Roles: []RoleGrant{
						{ID: 2, Name: "viewer", Permissions: []string{"users_read", "roles_read"}},
					},
				}

				// When & Then
				gomega.Expect(resolver.Decide(user, http.MethodGet, "/api/v1/users")).To(gomega.Succeed())
				gomega.Expect(resolver.Decide(user, http.MethodPost, "/api/v1/users")).To(gomega.Equal(internal.ErrForbidden))
				gomega.Expect(resolver.Decide(user, http.MethodDelete, "/api/v1/users/3")).To(gomega.Equal(internal.ErrForbidden))
			})
		})

		ginkgo.Context("when the user holds direct permissions", func() {
			ginkgo.It("should ignore role permissions entirely", func() {
				// Given: the role would grant users_read, the override does not
				user := &User{
					ID: 3,
					Roles: []RoleGrant{
						{ID: 2, Name: "viewer", Permissions: []string{"users_read"}},
					},
					Permissions: []string{"roles_read"},
				}

				// When & Then
				gomega.Expect(resolver.Decide(user, http.MethodGet, "/api/v1/roles")).To(gomega.Succeed())
				gomega.Expect(resolver.Decide(user, http.MethodGet, "/api/v1/users")).To(gomega.Equal(internal.ErrForbidden))
			})
		})

		ginkgo.Context("when the user holds permissions from several roles", func() {
			ginkgo.It("should authorize on the union", func() {
				// Given
				user := &User{
					ID: 4,
					Roles: []RoleGrant{
						{ID: 2, Name: "user-viewer", Permissions: []string{"users_read"}},
						{ID: 3, Name: "role-editor", Permissions: []string{"roles_read", "roles_write"}},
					},
				}

				// When & Then
				gomega.Expect(resolver.Decide(user, http.MethodGet, "/api/v1/users")).To(gomega.Succeed())
				gomega.Expect(resolver.Decide(user, http.MethodPost, "/api/v1/roles")).To(gomega.Succeed())
				gomega.Expect(resolver.Decide(user, http.MethodPost, "/api/v1/users")).To(gomega.Equal(internal.ErrForbidden))
			})
		})

		ginkgo.Context("when the user has no permissions at all", func() {
			ginkgo.It("should deny everything", func() {
				// Given
				user := &User{ID: 5}

				// When & Then
				gomega.Expect(resolver.Decide(user, http.MethodGet, "/api/v1/users")).To(gomega.Equal(internal.ErrForbidden))
			})
		})

		ginkgo.Context("when no user is attached", func() {
			ginkgo.It("should report a missing token", func() {
				// When
				err := resolver.Decide(nil, http.MethodGet, "/api/v1/users")

				// Then
				gomega.Expect(err).To(gomega.Equal(internal.ErrMissingToken))
			})
		})

		ginkgo.Context("when the method has no policy entry", func() {
			ginkgo.It("should fail closed even for admins", func() {
				// Given
				user := &User{
					ID: 1,
					Roles: []RoleGrant{
						{ID: 1, Name: "admin", Permissions: []string{"admin_granted"}},
					},
				}

				// When
				err := resolver.Decide(user, http.MethodPut, "/api/v1/users/1")

				// Then
				gomega.Expect(err).To(gomega.Equal(internal.ErrForbidden))
			})
		})
	})
})

var _ = ginkgo.Describe("User", func() {
	ginkgo.Describe("EffectivePermissions", func() {
		ginkgo.It("should union role permissions without duplicates", func() {
			// Given
			user := &User{
				Roles: []RoleGrant{
					{Name: "a", Permissions: []string{"users_read", "roles_read"}},
					{Name: "b", Permissions: []string{"roles_read", "roles_write"}},
				},
			}

			// When
			effective := user.EffectivePermissions()

			// Then
			gomega.Expect(effective).To(gomega.ConsistOf("users_read", "roles_read", "roles_write"))
		})

		ginkgo.It("should prefer direct permissions over roles", func() {
			// Given
			user := &User{
				Roles: []RoleGrant{
					{Name: "a", Permissions: []string{"users_read"}},
				},
				Permissions: []string{"roles_read"},
			}

			// When
			effective := user.EffectivePermissions()

			// Then
			gomega.Expect(effective).To(gomega.ConsistOf("roles_read"))
		})

		ginkgo.It("should be empty for a user with neither", func() {
			gomega.Expect((&User{}).EffectivePermissions()).To(gomega.BeEmpty())
		})
	})
})
