package models

import "time"

// Contact statuses moved through by the admin panel.
const (
	ContactStatusNew      = "new"
	ContactStatusRead     = "read"
	ContactStatusReplied  = "replied"
	ContactStatusArchived = "archived"
)

// ValidContactStatus reports whether s is one of the known statuses.
func ValidContactStatus(s string) bool {
	switch s {
	case ContactStatusNew, ContactStatusRead, ContactStatusReplied, ContactStatusArchived:
		return true
	}
	return false
}

// Contact is a submission of the public contact form.
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Email     string    `gorm:"size:255;index;not null" json:"email"`
	Company   string    `gorm:"size:255" json:"company"`
	Phone     string    `gorm:"size:64" json:"phone"`
	Service   string    `gorm:"size:128" json:"service"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Status    string    `gorm:"size:16;index;default:'new'" json:"status"`
	IP        string    `gorm:"size:45" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
