package models

import (
	"time"
)

// Profile is the durable per-user record kept by the backend. The client never
// caches it beyond the current process.
type Profile struct {
	ID           string    `json:"id" validate:"required"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	AvatarURL    string    `json:"avatar_url"`
	IsAdmin      bool      `json:"is_admin"`
	IsBanned     bool      `json:"is_banned"`
	HasOnboarded bool      `json:"has_onboarded"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterData is what the registration form submits.
type RegisterData struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Avatar   string `json:"avatar,omitempty" validate:"omitempty,url"`
	Password string `json:"password,omitempty"`
}
