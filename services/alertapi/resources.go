package alertapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"mergealert/models"
	"mergealert/services/gateway"
)

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.gw.Get(ctx, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) CreateUser(ctx context.Context, in models.UserInput) (*models.User, error) {
	var user models.User
	if err := c.gw.Post(ctx, "/users", in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, id uint, in models.UserInput) (*models.User, error) {
	var user models.User
	if err := c.gw.Put(ctx, fmt.Sprintf("/users/%d", id), in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeleteUser(ctx context.Context, id uint) error {
	return c.gw.Delete(ctx, fmt.Sprintf("/users/%d", id), nil)
}

func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := c.gw.Get(ctx, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) CreateProject(ctx context.Context, in models.ProjectInput) (*models.Project, error) {
	var project models.Project
	if err := c.gw.Post(ctx, "/projects", in, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) UpdateProject(ctx context.Context, id uint, in models.ProjectInput) (*models.Project, error) {
	var project models.Project
	if err := c.gw.Put(ctx, fmt.Sprintf("/projects/%d", id), in, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) DeleteProject(ctx context.Context, id uint) error {
	return c.gw.Delete(ctx, fmt.Sprintf("/projects/%d", id), nil)
}

// ParseProjectURL asks the server to resolve a GitLab project URL.
func (c *Client) ParseProjectURL(ctx context.Context, projectURL string) (map[string]any, error) {
	var out map[string]any
	if err := c.gw.Post(ctx, "/projects/parse-url", map[string]string{"url": projectURL}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ScanGroupProjects(ctx context.Context, req models.ScanGroupRequest) (map[string]any, error) {
	var out map[string]any
	if err := c.gw.Post(ctx, "/projects/scan-group", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BatchCreateProjects(ctx context.Context, payload any) (*models.BatchResult, error) {
	var out models.BatchResult
	if err := c.gw.Post(ctx, "/projects/batch-create", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SyncGitLabWebhook(ctx context.Context, projectID uint) error {
	return c.gw.Post(ctx, fmt.Sprintf("/projects/%d/sync-gitlab-webhook", projectID), nil, nil)
}

func (c *Client) DeleteGitLabWebhook(ctx context.Context, projectID uint) error {
	return c.gw.Delete(ctx, fmt.Sprintf("/projects/%d/sync-gitlab-webhook", projectID), nil)
}

func (c *Client) GitLabWebhookStatus(ctx context.Context, projectID uint) (map[string]any, error) {
	var out map[string]any
	if err := c.gw.Get(ctx, fmt.Sprintf("/projects/%d/gitlab-webhook-status", projectID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BatchCheckWebhookStatus checks the GitLab hook state of several projects at once.
func (c *Client) BatchCheckWebhookStatus(ctx context.Context, projectIDs []uint) (map[string]any, error) {
	var out map[string]any
	if err := c.gw.Post(ctx, "/projects/batch-check-webhook-status", map[string]any{"project_ids": projectIDs}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LinkProjectWebhook(ctx context.Context, link models.ProjectWebhookLink) error {
	return c.gw.Post(ctx, "/project-webhooks", link, nil)
}

func (c *Client) UnlinkProjectWebhook(ctx context.Context, link models.ProjectWebhookLink) error {
	return c.gw.Delete(ctx, fmt.Sprintf("/project-webhooks/%d/%d", link.ProjectID, link.WebhookID), nil)
}

func (c *Client) ListWebhooks(ctx context.Context) ([]models.Webhook, error) {
	var webhooks []models.Webhook
	if err := c.gw.Get(ctx, "/webhooks", nil, &webhooks); err != nil {
		return nil, err
	}
	return webhooks, nil
}

func (c *Client) CreateWebhook(ctx context.Context, in models.WebhookInput) (*models.Webhook, error) {
	var webhook models.Webhook
	if err := c.gw.Post(ctx, "/webhooks", in, &webhook); err != nil {
		return nil, err
	}
	return &webhook, nil
}

func (c *Client) UpdateWebhook(ctx context.Context, id uint, in models.WebhookInput) (*models.Webhook, error) {
	var webhook models.Webhook
	if err := c.gw.Put(ctx, fmt.Sprintf("/webhooks/%d", id), in, &webhook); err != nil {
		return nil, err
	}
	return &webhook, nil
}

func (c *Client) DeleteWebhook(ctx context.Context, id uint) error {
	return c.gw.Delete(ctx, fmt.Sprintf("/webhooks/%d", id), nil)
}

// SendTestMessage asks the server to deliver a sample notification through the webhook.
func (c *Client) SendTestMessage(ctx context.Context, id uint) error {
	return c.gw.Post(ctx, fmt.Sprintf("/webhooks/%d/test", id), nil, nil)
}

func (c *Client) AssignManager(ctx context.Context, a models.ManagerAssignment) error {
	return c.gw.Post(ctx, "/resource-managers/assign", a, nil)
}

func (c *Client) RemoveManager(ctx context.Context, a models.ManagerAssignment) error {
	return c.gw.Post(ctx, "/resource-managers/remove", a, nil)
}

func (c *Client) ResourceManagers(ctx context.Context, resourceID uint, resourceType models.ResourceType) (*models.ResourceManagerList, error) {
	params := url.Values{}
	params.Set("resource_id", strconv.FormatUint(uint64(resourceID), 10))
	params.Set("resource_type", string(resourceType))
	var out models.ResourceManagerList
	if err := c.gw.Get(ctx, "/resource-managers", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ManagedResources(ctx context.Context, accountID uint, resourceType models.ResourceType) (*models.ManagedResources, error) {
	params := url.Values{}
	params.Set("resource_type", string(resourceType))
	var out models.ManagedResources
	if err := c.gw.Get(ctx, fmt.Sprintf("/resource-managers/managed/%d", accountID), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BatchAssignManagers(ctx context.Context, accountID uint, assignments []models.ManagerAssignment) error {
	body := map[string]any{"assignments": assignments}
	return c.gw.Post(ctx, fmt.Sprintf("/resource-managers/batch-assign/%d", accountID), body, nil)
}

func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	if err := c.gw.Get(ctx, "/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ProjectDailyStats returns one series per project for the last days days.
func (c *Client) ProjectDailyStats(ctx context.Context, days int) ([]models.DailySeries, error) {
	return c.dailyStats(ctx, "/stats/projects/daily", days)
}

func (c *Client) WebhookDailyStats(ctx context.Context, days int) ([]models.DailySeries, error) {
	return c.dailyStats(ctx, "/stats/webhooks/daily", days)
}

func (c *Client) dailyStats(ctx context.Context, path string, days int) ([]models.DailySeries, error) {
	params := url.Values{}
	if days > 0 {
		params.Set("days", strconv.Itoa(days))
	}
	var series []models.DailySeries
	if err := c.gw.Get(ctx, path, params, &series); err != nil {
		return nil, err
	}
	return series, nil
}

func (c *Client) ListNotifications(ctx context.Context, pageSize int) ([]models.Notification, error) {
	params := url.Values{}
	if pageSize > 0 {
		params.Set("page_size", strconv.Itoa(pageSize))
	}
	var notifications []models.Notification
	if err := c.gw.Get(ctx, "/notifications", params, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (c *Client) TestGitLabConnection(ctx context.Context, req models.GitLabTokenCheck) (map[string]any, error) {
	var out map[string]any
	if err := c.gw.Post(ctx, "/gitlab/test-connection", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GitLabConfig(ctx context.Context) (*models.GitLabConfig, error) {
	var cfg models.GitLabConfig
	if err := c.gw.Get(ctx, "/gitlab/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) TestGitLabToken(ctx context.Context, req models.GitLabTokenCheck) (map[string]any, error) {
	var out map[string]any
	if err := c.gw.Post(ctx, "/gitlab/test-token", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Bootstrap reports whether the one-time admin setup is still pending. It is
// asked before every screen change and does not count as activity.
func (c *Client) Bootstrap(ctx context.Context) (*models.BootstrapStatus, error) {
	var status models.BootstrapStatus
	if err := c.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/system/bootstrap", Passive: true}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetupAdmin completes the bootstrap. An invalid setup token answers 401,
// which must not be mistaken for an expired session.
func (c *Client) SetupAdmin(ctx context.Context, req models.SetupAdminRequest) error {
	return c.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/system/setup-admin", Body: req, SkipAuthFailure: true, Passive: true}, nil)
}
