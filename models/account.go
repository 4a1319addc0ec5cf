package models

import "time"

const (
	// RoleAdmin is the administrator role; it grants every permission.
	RoleAdmin = "admin"
	// RoleUser is the default role for self-registered accounts.
	RoleUser = "user"
)

// Account is the console's snapshot of the signed-in account as returned by
// /auth/profile. It is always replaced wholesale, never patched field by field.
type Account struct {
	ID             uint       `json:"id" yaml:"id"`
	Username       string     `json:"username" yaml:"username"`
	Email          string     `json:"email" yaml:"email"`
	Role           string     `json:"role" yaml:"role"`
	Avatar         string     `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	IsActive       bool       `json:"is_active" yaml:"is_active"`
	HasGitLabToken bool       `json:"has_gitlab_personal_access_token" yaml:"has_gitlab_personal_access_token"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty" yaml:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" yaml:"updated_at"`
}

// IsAdmin reports whether the account carries the administrator role. Role
// names are case sensitive.
func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// LoginRequest is the credential exchange payload for /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the payload for /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by login, register and refresh. The server in
// this deployment never issues a refresh token, so RefreshToken is usually empty.
type LoginResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	ExpiresAt    int64    `json:"expires_at"`
	User         *Account `json:"user"`
}

// ChangePasswordRequest is the self-service password change payload.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// UpdateProfileRequest updates the caller's own profile fields.
type UpdateProfileRequest struct {
	Email          string  `json:"email,omitempty"`
	Avatar         string  `json:"avatar,omitempty"`
	GitLabPATToken *string `json:"gitlab_personal_access_token,omitempty"`
}

// AvatarResponse is returned by the avatar upload endpoint.
type AvatarResponse struct {
	Avatar string `json:"avatar"`
}

// CreateAccountRequest is the admin payload for creating an account.
type CreateAccountRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Email          string `json:"email"`
	Role           string `json:"role,omitempty"`
	GitLabPATToken string `json:"gitlab_personal_access_token,omitempty"`
}

// UpdateAccountRequest is the admin payload for updating an account.
type UpdateAccountRequest struct {
	Email          string  `json:"email,omitempty"`
	Role           string  `json:"role,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
	GitLabPATToken *string `json:"gitlab_personal_access_token,omitempty"`
}

// AccountQuery filters the admin account listing.
type AccountQuery struct {
	Page     int
	PageSize int
	Search   string
	Role     string
}

// AccountPage is one page of the admin account listing.
type AccountPage struct {
	Total    int64     `json:"total" yaml:"total"`
	Data     []Account `json:"data" yaml:"data"`
	Page     int       `json:"page" yaml:"page"`
	PageSize int       `json:"page_size" yaml:"page_size"`
}
