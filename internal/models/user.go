package models

import "time"

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleEditor UserRole = "editor"
	UserRoleViewer UserRole = "viewer"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleEditor, UserRoleViewer:
		return true
	}
	return false
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusPending  UserStatus = "pending"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusPending:
		return true
	}
	return false
}

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	Name         *string
	Role         UserRole
	Status       UserStatus
	LastLogin    *time.Time
	AvatarURL    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is a time-bounded bearer grant owned by exactly one user. Only the
// SHA-256 of the bearer token is persisted.
type Session struct {
	ID        string
	UserID    string
	TokenHash []byte
	IPAddress *string
	UserAgent *string
	CreatedAt time.Time
	LastUsed  time.Time
	ExpiresAt time.Time
}

// ValidAt reports whether the session grants access at the given instant.
func (s Session) ValidAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
