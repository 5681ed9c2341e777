package models

import "time"

// User roles. The first registered account becomes an admin; everyone else
// defaults to a regular user until promoted.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents an account that can sign in and manage tracked services.
type User struct {
	BaseModel

	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name         string `gorm:"type:varchar(255);not null" json:"name"`
	Role         string `gorm:"type:varchar(32);default:'user'" json:"role"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`

	// Password reset flow: a short-lived numeric code delivered by email.
	ResetCode          string     `gorm:"type:varchar(16)" json:"-"`
	ResetCodeExpiresAt *time.Time `json:"-"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
