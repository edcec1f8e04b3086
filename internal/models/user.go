package models

import "github.com/google/uuid"

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

func ValidRole(r string) bool {
	return r == RoleCustomer || r == RoleStaff || r == RoleAdmin
}

type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null;size:255" json:"email"`
	PasswordHash string `gorm:"not null"                      json:"-"`
	Name         string `gorm:"not null;size:255"             json:"name"`
	Phone        string `gorm:"size:32"                       json:"phone"`
	Role         string `gorm:"not null;size:16"              json:"role"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"            json:"id"`
	Token     string    `gorm:"uniqueIndex;not null"  json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	JTI       string    `gorm:"uniqueIndex;not null"  json:"jti"`
	ExpiresAt int64     `gorm:"not null"              json:"expires_at"`
	Revoked   bool      `gorm:"not null"              json:"revoked"`
}
