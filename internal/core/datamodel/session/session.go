package session

import "time"

// Session tracks an issued token server-side so logout can revoke it before
// the signature expiry kicks in. Rows are append-only except for the revoked
// flag.
type Session struct {
	ID        int64     `gorm:"primaryKey"`
	Token     string    `gorm:"column:token;uniqueIndex;not null"`
	UserID    int64     `gorm:"column:user_id;index;not null"`
	Revoked   bool      `gorm:"column:revoked;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	ExpiresAt time.Time `gorm:"column:expires_at;index;not null"`
}
