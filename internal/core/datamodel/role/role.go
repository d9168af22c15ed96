package role

import "time"

type Role struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

type RolePermission struct {
	ID         int64  `gorm:"primaryKey"`
	RoleID     int64  `gorm:"column:role_id;uniqueIndex:idx_role_perm;not null"`
	Permission string `gorm:"column:permission;uniqueIndex:idx_role_perm;not null"`
}
