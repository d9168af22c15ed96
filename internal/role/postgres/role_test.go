package postgres_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	roleDatamodel "github.com/frahmantamala/identity-management/internal/core/datamodel/role"
	userDatamodel "github.com/frahmantamala/identity-management/internal/core/datamodel/user"
	"github.com/frahmantamala/identity-management/internal/role"
	rolePostgres "github.com/frahmantamala/identity-management/internal/role/postgres"
)

func TestRolePostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Role Postgres Suite")
}

var _ = Describe("Role Repository", func() {
	var (
		db   *gorm.DB
		repo role.RepositoryAPI
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(
			&roleDatamodel.Role{},
			&roleDatamodel.RolePermission{},
			&userDatamodel.UserRole{},
		)
		Expect(err).NotTo(HaveOccurred())

		repo = rolePostgres.NewRepository(db)
	})

	Describe("Create and GetByID", func() {
		It("should persist the role with its permission set", func() {
			created := &role.Role{
				Name:        "auditor",
				Description: "read everything",
				Permissions: []string{"users_read", "roles_read"},
			}

			Expect(repo.Create(created)).To(Succeed())
			Expect(created.ID).NotTo(BeZero())

			loaded, err := repo.GetByID(created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).NotTo(BeNil())
			Expect(loaded.Name).To(Equal("auditor"))
			Expect(loaded.Permissions).To(ConsistOf("users_read", "roles_read"))
		})

		It("should return nil without error when no record matches", func() {
			loaded, err := repo.GetByID(12345)

			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})
	})

	Describe("GetByName", func() {
		It("should find a role by its unique name", func() {
			created := &role.Role{Name: "auditor", Permissions: []string{"users_read"}}
			Expect(repo.Create(created)).To(Succeed())

			loaded, err := repo.GetByName("auditor")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).NotTo(BeNil())
			Expect(loaded.ID).To(Equal(created.ID))
		})

		It("should return nil without error for an unknown name", func() {
			loaded, err := repo.GetByName("ghost")

			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})
	})

	Describe("GetAll", func() {
		It("should list roles ordered by name", func() {
			Expect(repo.Create(&role.Role{Name: "viewer"})).To(Succeed())
			Expect(repo.Create(&role.Role{Name: "admin"})).To(Succeed())

			roles, err := repo.GetAll(10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(roles).To(HaveLen(2))
			Expect(roles[0].Name).To(Equal("admin"))
			Expect(roles[1].Name).To(Equal("viewer"))
		})
	})

	Describe("Update", func() {
		It("should replace the permission set wholesale", func() {
			created := &role.Role{Name: "auditor", Permissions: []string{"users_read"}}
			Expect(repo.Create(created)).To(Succeed())

			created.Permissions = []string{"roles_read", "roles_write"}
			Expect(repo.Update(created)).To(Succeed())

			loaded, err := repo.GetByID(created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Permissions).To(ConsistOf("roles_read", "roles_write"))
		})
	})

	Describe("Delete", func() {
		It("should remove the role and its permission rows", func() {
			created := &role.Role{Name: "auditor", Permissions: []string{"users_read"}}
			Expect(repo.Create(created)).To(Succeed())

			Expect(repo.Delete(created.ID)).To(Succeed())

			loaded, err := repo.GetByID(created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())

			var count int64
			Expect(db.Model(&roleDatamodel.RolePermission{}).Where("role_id = ?", created.ID).Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
		})
	})

	Describe("IsAssigned", func() {
		It("should report whether any user references the role", func() {
			created := &role.Role{Name: "auditor"}
			Expect(repo.Create(created)).To(Succeed())

			assigned, err := repo.IsAssigned(created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(assigned).To(BeFalse())

			Expect(db.Create(&userDatamodel.UserRole{UserID: 1, RoleID: created.ID}).Error).To(Succeed())

			assigned, err = repo.IsAssigned(created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(assigned).To(BeTrue())
		})
	})
})
