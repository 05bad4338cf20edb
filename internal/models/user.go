package models

import "time"

// UserType classifies users for visibility filtering.
type UserType string

const (
	UserTypeAdmin  UserType = "Admin"
	UserTypeTeam   UserType = "Team"
	UserTypeVendor UserType = "Vendor"
)

// Valid reports whether t is a known user type.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeAdmin, UserTypeTeam, UserTypeVendor:
		return true
	}
	return false
}

// User is a directory entry. Authentication data lives elsewhere.
type User struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	UserType  UserType  `db:"user_type" json:"user_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
