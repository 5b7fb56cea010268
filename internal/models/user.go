package models

import (
	"time"
)

// Roles accepted for User.Role.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID uint `json:"id" gorm:"primaryKey"`
	// Uniqueness is enforced per active account in the auth service, so a
	// deactivated username can be registered again.
	Username     string    `json:"username" gorm:"type:varchar(255);index;not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	Phone        string    `json:"phone" gorm:"type:varchar(50);index"`
	FullName     string    `json:"full_name" gorm:"type:varchar(255);not null"`
	Role         string    `json:"role" gorm:"type:varchar(50);default:'user'"` // admin, user
	IsActive     bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidRole reports whether role is one of the accepted user roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// Signature is an uploaded signature image owned by a user. At most one
// signature per user may have IsDefault set.
type Signature struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	User      User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Filename  string    `json:"filename" gorm:"type:varchar(255);not null"`
	FilePath  string    `json:"file_path" gorm:"type:varchar(500);not null"`
	IsDefault bool      `json:"is_default" gorm:"default:false;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
