package models

import "time"

// User is a notification recipient: a GitLab author/assignee mapped to a phone.
type User struct {
	ID             uint      `json:"id" yaml:"id"`
	Email          string    `json:"email" yaml:"email"`
	Phone          string    `json:"phone" yaml:"phone"`
	Name           string    `json:"name,omitempty" yaml:"name,omitempty"`
	GitLabUsername string    `json:"gitlab_username,omitempty" yaml:"gitlab_username,omitempty"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"updated_at"`
}

// UserInput is the create/update payload for users.
type UserInput struct {
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Name           string `json:"name,omitempty"`
	GitLabUsername string `json:"gitlab_username,omitempty"`
}
