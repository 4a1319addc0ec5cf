package models

import "time"

// ResourceType names a resource that can be delegated to a manager account.
type ResourceType string

const (
	ResourceTypeProject ResourceType = "project"
	ResourceTypeWebhook ResourceType = "webhook"
	ResourceTypeUser    ResourceType = "user"
)

// ManagerAssignment assigns (or removes) a manager for a resource.
type ManagerAssignment struct {
	ResourceID   uint         `json:"resource_id"`
	ResourceType ResourceType `json:"resource_type"`
	ManagerID    uint         `json:"manager_id"`
}

// ResourceManager is one manager assignment as listed by the server.
type ResourceManager struct {
	ID           uint         `json:"id" yaml:"id"`
	ResourceID   uint         `json:"resource_id" yaml:"resource_id"`
	ResourceType ResourceType `json:"resource_type" yaml:"resource_type"`
	ManagerID    uint         `json:"manager_id" yaml:"manager_id"`
	Manager      *Account     `json:"manager,omitempty" yaml:"manager,omitempty"`
	CreatedAt    time.Time    `json:"created_at" yaml:"created_at"`
}

// ResourceManagerList is the response of GET /resource-managers.
type ResourceManagerList struct {
	Managers []ResourceManager `json:"managers" yaml:"managers"`
	Total    int               `json:"total" yaml:"total"`
}

// ManagedResources is the response of GET /resource-managers/managed/{id}.
type ManagedResources struct {
	ResourceIDs []uint `json:"resource_ids" yaml:"resource_ids"`
	Total       int    `json:"total" yaml:"total"`
}
