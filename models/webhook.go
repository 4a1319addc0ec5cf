package models

import "time"

// Webhook is a chat-bot endpoint that receives merge request notifications.
type Webhook struct {
	ID               uint              `json:"id" yaml:"id"`
	Name             string            `json:"name" yaml:"name"`
	URL              string            `json:"url" yaml:"url"`
	Description      string            `json:"description,omitempty" yaml:"description,omitempty"`
	Type             string            `json:"type,omitempty" yaml:"type,omitempty"`
	SecurityKeywords []string          `json:"security_keywords,omitempty" yaml:"security_keywords,omitempty"`
	CustomHeaders    map[string]string `json:"custom_headers,omitempty" yaml:"custom_headers,omitempty"`
	IsActive         bool              `json:"is_active" yaml:"is_active"`
	Projects         []Project         `json:"projects,omitempty" yaml:"projects,omitempty"`
	CreatedAt        time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" yaml:"updated_at"`
}

// WebhookInput is the create/update payload for webhooks.
type WebhookInput struct {
	Name             string            `json:"name,omitempty"`
	URL              string            `json:"url,omitempty"`
	Description      string            `json:"description,omitempty"`
	Type             string            `json:"type,omitempty"`
	Secret           *string           `json:"secret,omitempty"`
	SecurityKeywords []string          `json:"security_keywords,omitempty"`
	CustomHeaders    map[string]string `json:"custom_headers,omitempty"`
	IsActive         *bool             `json:"is_active,omitempty"`
}
