package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// User mirrors an identity-provider account. Permissions are stored but not
// consulted: every admin is fully privileged.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	ExternalID   string    `json:"externalId" bson:"externalId"`
	Email        string    `json:"email" bson:"email"`
	Name         string    `json:"name" bson:"name"`
	Phone        string    `json:"phone,omitempty" bson:"phone,omitempty"`
	ProfileImage string    `json:"profileImage,omitempty" bson:"profileImage,omitempty"`
	Role         string    `json:"role" bson:"role"`
	Permissions  []string  `json:"permissions,omitempty" bson:"permissions,omitempty"`
	LastLogin    time.Time `json:"lastLogin" bson:"lastLogin"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// SyncInput carries profile fields the client got from the identity provider.
type SyncInput struct {
	Email        string `json:"email" validate:"omitempty,email"`
	Name         string `json:"name" validate:"max=200"`
	Phone        string `json:"phone" validate:"max=32"`
	ProfileImage string `json:"profileImage" validate:"omitempty,url"`
}
