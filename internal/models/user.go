package models

import "time"

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// User mirrors an identity held by Casdoor; it is never persisted locally.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Role        UserRole  `json:"role"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CanAuthor reports whether the user may own tests.
func (u *User) CanAuthor() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}
