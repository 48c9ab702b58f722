package models

import (
	"time"

	"gorm.io/gorm"
)

// RoleAdmin is the only role; every account may use the admin panel.
const RoleAdmin = "admin"

// User is an admin panel account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"size:255" json:"email"`
	PasswordHash string         `gorm:"size:255;not null" json:"-"`
	Role         string         `gorm:"size:32;default:'admin'" json:"role"`
	LastLoginAt  *time.Time     `json:"lastLoginAt"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate fills the role when the caller left it empty.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleAdmin
	}
	return nil
}

// All lists every model migrated at startup.
func All() []interface{} {
	return []interface{}{&User{}, &BlogPost{}, &Contact{}, &Language{}, &Translation{}}
}
