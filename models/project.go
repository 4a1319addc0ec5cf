package models

import (
	"encoding/json"
	"time"
)

// Project is a GitLab project whose merge requests produce notifications.
type Project struct {
	ID                uint      `json:"id" yaml:"id"`
	Name              string    `json:"name" yaml:"name"`
	URL               string    `json:"url" yaml:"url"`
	GitLabProjectID   int       `json:"gitlab_project_id" yaml:"gitlab_project_id"`
	Description       string    `json:"description,omitempty" yaml:"description,omitempty"`
	WebhookSynced     bool      `json:"webhook_synced" yaml:"webhook_synced"`
	AutoManageWebhook bool      `json:"auto_manage_webhook" yaml:"auto_manage_webhook"`
	Webhooks          []Webhook `json:"webhooks,omitempty" yaml:"webhooks,omitempty"`
	CreatedAt         time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"updated_at"`
}

// ProjectInput is the create/update payload for projects.
type ProjectInput struct {
	Name            string `json:"name,omitempty"`
	URL             string `json:"url,omitempty"`
	GitLabProjectID int    `json:"gitlab_project_id,omitempty"`
	Description     string `json:"description,omitempty"`
	AccessToken     string `json:"access_token,omitempty"`
}

// ScanGroupRequest asks the server to enumerate the projects of a GitLab group.
type ScanGroupRequest struct {
	URL         string `json:"url"`
	AccessToken string `json:"access_token,omitempty"`
}

// ProjectWebhookLink binds a project to a webhook.
type ProjectWebhookLink struct {
	ProjectID uint `json:"project_id"`
	WebhookID uint `json:"webhook_id"`
}

// BatchResult is the server's report for batch operations. Items are kept raw
// because their shape depends on the operation.
type BatchResult struct {
	SuccessCount int               `json:"success_count" yaml:"success_count"`
	FailureCount int               `json:"failure_count" yaml:"failure_count"`
	TotalCount   int               `json:"total_count" yaml:"total_count"`
	Results      []json.RawMessage `json:"results" yaml:"-"`
}
