// Package api holds the JSON bodies shared by the HTTP handlers and the
// admin client.
package api

import (
	"time"

	"drravalement/site/internal/models"
)

type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        *string    `json:"name,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
	Avatar      *string    `json:"avatar,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Permissions []string   `json:"permissions,omitempty"`
}

func FromUser(u models.User) User {
	return User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		Status:    string(u.Status),
		LastLogin: u.LastLogin,
		Avatar:    u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}

func (u User) Model() models.User {
	return models.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      models.UserRole(u.Role),
		Status:    models.UserStatus(u.Status),
		LastLogin: u.LastLogin,
		AvatarURL: u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	LastUsed  time.Time `json:"lastUsed"`
	IPAddress *string   `json:"ipAddress,omitempty"`
	UserAgent *string   `json:"userAgent,omitempty"`
	Current   bool      `json:"current,omitempty"`
}

func FromSession(s models.Session) Session {
	return Session{
		ID:        s.ID,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
		LastUsed:  s.LastUsed,
		IPAddress: s.IPAddress,
		UserAgent: s.UserAgent,
	}
}

func (s Session) Model() models.Session {
	return models.Session{
		ID:        s.ID,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
		LastUsed:  s.LastUsed,
		IPAddress: s.IPAddress,
		UserAgent: s.UserAgent,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token   string  `json:"token"`
	User    User    `json:"user"`
	Session Session `json:"session"`
}

// SessionResponse answers GET /api/v1/auth/session.
type SessionResponse struct {
	User    User    `json:"user"`
	Session Session `json:"session"`
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type UserList struct {
	Items []User `json:"items"`
	Total int    `json:"total"`
}

type Quote struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Service   string    `json:"service"`
	SurfaceM2 float64   `json:"surfaceM2"`
	Message   string    `json:"message,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func FromQuote(q models.Quote) Quote {
	return Quote{
		ID:        q.ID,
		Name:      q.Name,
		Email:     q.Email,
		Phone:     q.Phone,
		Service:   q.Service,
		SurfaceM2: q.SurfaceM2,
		Message:   q.Message,
		Status:    string(q.Status),
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

type QuoteRequest struct {
	Name      string  `json:"name" binding:"required"`
	Email     string  `json:"email" binding:"required"`
	Phone     string  `json:"phone" binding:"required"`
	Service   string  `json:"service" binding:"required"`
	SurfaceM2 float64 `json:"surfaceM2"`
	Message   string  `json:"message"`
}

type QuoteList struct {
	Items []Quote `json:"items"`
}

type Media struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Format     string    `json:"format"`
	MIME       string    `json:"mime"`
	SizeBytes  int64     `json:"sizeBytes"`
	AltText    string    `json:"altText,omitempty"`
	UploadedBy string    `json:"uploadedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

func FromMedia(m models.Media, url string) Media {
	return Media{
		ID:         m.ID,
		URL:        url,
		Format:     m.Format,
		MIME:       m.MIME,
		SizeBytes:  m.SizeBytes,
		AltText:    m.AltText,
		UploadedBy: m.UploadedBy,
		CreatedAt:  m.CreatedAt,
	}
}
