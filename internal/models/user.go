package models

import (
	"time"
)

/** --------------------ENTITIES-------------------- */
// User is created on first login through the identity provider.
// ID is the provider's subject identifier.
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(255)" json:"id"`
	Name      string    `gorm:"index" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Picture   string    `json:"picture,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tasks []Task `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
}

// Identity is what a session token resolves to
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

/** -------------------- DTOs -------------------- */
// Response
type UserResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
}

// LoginResponse is returned to the frontend after the provider callback
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func (u *User) Identity() *Identity {
	return &Identity{UserID: u.ID, Name: u.Name, Email: u.Email}
}

func (u *User) Response() UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Picture: u.Picture}
}
