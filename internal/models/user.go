package models

import (
	"gorm.io/gorm"
)

// Role represents a user's role in the system
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLead      Role = "lead"
	RoleDeveloper Role = "developer"
)

// Valid reports whether the role is a member of the role enum
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleLead || r == RoleDeveloper
}

// User represents a user in the system
type User struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Username string `json:"username" gorm:"unique;not null"`
	Password string `json:"-" gorm:"not null"`
	Role     Role   `json:"role" gorm:"not null;default:'developer'"`
	gorm.Model
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}
