package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), cfg.Security.BCryptCost)

		roles := []struct {
			Name        string
			Desc        string
			Permissions []string
		}{
			{"admin", "full administrator", []string{"admin_granted"}},
			{"viewer", "read-only access", []string{"users_read", "roles_read"}},
		}

		for _, r := range roles {
			var rid int64
			row := db.Raw("SELECT id FROM roles WHERE name = ?", r.Name).Row()
			if err := row.Scan(&rid); err != nil {
				if err := db.Exec("INSERT INTO roles (name, description, created_at, updated_at) VALUES (?, ?, now(), now())", r.Name, r.Desc).Error; err != nil {
					log.Fatalf("failed to insert role %s: %v", r.Name, err)
				}
				if err := db.Raw("SELECT id FROM roles WHERE name = ?", r.Name).Row().Scan(&rid); err != nil {
					log.Fatalf("role not found after insert %s: %v", r.Name, err)
				}
				fmt.Println("Seeded role:", r.Name)
			}

			for _, perm := range r.Permissions {
				var exists int
				if err := db.Raw("SELECT 1 FROM role_permissions WHERE role_id = ? AND permission = ?", rid, perm).Row().Scan(&exists); err == nil {
					continue
				}
				if err := db.Exec("INSERT INTO role_permissions (role_id, permission) VALUES (?, ?)", rid, perm).Error; err != nil {
					log.Fatalf("failed to grant permission %s to role %s: %v", perm, r.Name, err)
				}
			}
		}

		adminEmail := "admin@mail.com"
		adminUsername := "admin"
		var exists int
		row := db.Raw("SELECT 1 FROM users WHERE email = ?", adminEmail).Row()
		adminExists := false
		if err := row.Scan(&exists); err == nil {
			fmt.Println("admin user already exists; will ensure role assignment")
			adminExists = true
		}

		if !adminExists {
			if err := db.Exec("INSERT INTO users (username, email, name, password_hash, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, true, now(), now())", adminUsername, adminEmail, "Administrator", string(hash)).Error; err != nil {
				log.Fatalf("failed to insert admin user: %v", err)
			}
			fmt.Println("Seeded admin user:", adminEmail)
		}

		var adminUserID int64
		if err := db.Raw("SELECT id FROM users WHERE email = ?", adminEmail).Row().Scan(&adminUserID); err != nil {
			log.Fatalf("failed to lookup admin user id: %v", err)
		}

		var adminRoleID int64
		if err := db.Raw("SELECT id FROM roles WHERE name = ?", "admin").Row().Scan(&adminRoleID); err != nil {
			log.Fatalf("failed to lookup admin role id: %v", err)
		}

		if err := db.Raw("SELECT 1 FROM user_roles WHERE user_id = ? AND role_id = ?", adminUserID, adminRoleID).Row().Scan(&exists); err != nil {
			if err := db.Exec("INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)", adminUserID, adminRoleID).Error; err != nil {
				log.Fatalf("failed to assign admin role to admin user: %v", err)
			}
		}

		fmt.Println("Assigned admin role to admin user:", adminEmail)
	},
}
