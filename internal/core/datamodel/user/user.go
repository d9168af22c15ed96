package user

import "time"

type User struct {
	ID           int64     `gorm:"primaryKey"`
	Username     string    `gorm:"column:username;uniqueIndex;not null"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	Name         string    `gorm:"column:name"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	IsActive     bool      `gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

type UserRole struct {
	ID     int64 `gorm:"primaryKey"`
	UserID int64 `gorm:"column:user_id;uniqueIndex:idx_user_role;not null"`
	RoleID int64 `gorm:"column:role_id;uniqueIndex:idx_user_role;not null"`
}

// UserPermission is a direct permission grant. A user holding any of these is
// authorized on them alone; role-derived permissions are not consulted.
type UserPermission struct {
	ID         int64  `gorm:"primaryKey"`
	UserID     int64  `gorm:"column:user_id;uniqueIndex:idx_user_perm;not null"`
	Permission string `gorm:"column:permission;uniqueIndex:idx_user_perm;not null"`
}
