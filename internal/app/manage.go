package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"mergealert/handlers"
	"mergealert/models"
	"mergealert/services/sessions"
)

// Resource names checked against the session's permission table.
const (
	resUsers    = "users"
	resProjects = "projects"
	resWebhooks = "webhooks"
	resAccounts = "accounts"
	resManagers = "resource_managers"
	resProfile  = "profile"
)

var (
	ErrForbidden  = errors.New("permission denied")
	ErrIDRequired = errors.New("id is required")
	ErrDeleteSelf = errors.New("cannot delete the signed-in account")
)

// authorize runs the session checks and then the permission table.
func (a *App) authorize(ctx context.Context, resource, action string) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	if !a.Session.HasPermission(resource, action) {
		return fmt.Errorf("%w: %s %s", ErrForbidden, action, resource)
	}
	return nil
}

// mutate authorizes, runs op and prints its result. summary is the table
// rendering and the success notice.
func mutate[T any](ctx context.Context, a *App, resource, action string, op func(context.Context) (T, error), summary func(T) string) error {
	if err := a.authorize(ctx, resource, action); err != nil {
		return err
	}
	v, err := op(ctx)
	if err != nil {
		return err
	}
	msg := summary(v)
	a.log.Info("resource changed", "resource", resource, "action", action)
	a.Notifier.Success(msg)
	return a.printer().Print(v, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, msg)
	})
}

// change is mutate for calls that return nothing worth printing.
func (a *App) change(ctx context.Context, resource, action string, op func(context.Context) error, msg string) error {
	if err := a.authorize(ctx, resource, action); err != nil {
		return err
	}
	if err := op(ctx); err != nil {
		return err
	}
	a.log.Info("resource changed", "resource", resource, "action", action)
	a.Notifier.Success(msg)
	return nil
}

func (a *App) printMap(m map[string]any) error {
	if m == nil {
		m = map[string]any{}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return a.printer().Print(m, func(tw *tabwriter.Writer) {
		for _, k := range keys {
			fmt.Fprintf(tw, "%s\t%v\n", k, m[k])
		}
	})
}

func requireID(id uint) error {
	if id == 0 {
		return ErrIDRequired
	}
	return nil
}

// Users

func (a *App) CreateUser(ctx context.Context, in models.UserInput) error {
	return mutate(ctx, a, resUsers, sessions.ActionCreate, func(ctx context.Context) (*models.User, error) {
		return a.API.CreateUser(ctx, in)
	}, func(u *models.User) string { return fmt.Sprintf("user %d created", u.ID) })
}

func (a *App) UpdateUser(ctx context.Context, id uint, in models.UserInput) error {
	if err := requireID(id); err != nil {
		return err
	}
	return mutate(ctx, a, resUsers, sessions.ActionUpdate, func(ctx context.Context) (*models.User, error) {
		return a.API.UpdateUser(ctx, id, in)
	}, func(u *models.User) string { return fmt.Sprintf("user %d updated", u.ID) })
}

func (a *App) DeleteUser(ctx context.Context, id uint) error {
	if err := requireID(id); err != nil {
		return err
	}
	return a.change(ctx, resUsers, sessions.ActionDelete, func(ctx context.Context) error {
		return a.API.DeleteUser(ctx, id)
	}, fmt.Sprintf("user %d deleted", id))
}

// Projects

func (a *App) CreateProject(ctx context.Context, in models.ProjectInput) error {
	return mutate(ctx, a, resProjects, sessions.ActionCreate, func(ctx context.Context) (*models.Project, error) {
		return a.API.CreateProject(ctx, in)
	}, func(p *models.Project) string { return fmt.Sprintf("project %d (%s) created", p.ID, p.Name) })
}

func (a *App) UpdateProject(ctx context.Context, id uint, in models.ProjectInput) error {
	if err := requireID(id); err != nil {
		return err
	}
	return mutate(ctx, a, resProjects, sessions.ActionUpdate, func(ctx context.Context) (*models.Project, error) {
		return a.API.UpdateProject(ctx, id, in)
	}, func(p *models.Project) string { return fmt.Sprintf("project %d updated", p.ID) })
}

func (a *App) DeleteProject(ctx context.Context, id uint) error {
	if err := requireID(id); err != nil {
		return err
	}
	return a.change(ctx, resProjects, sessions.ActionDelete, func(ctx context.Context) error {
		return a.API.DeleteProject(ctx, id)
	}, fmt.Sprintf("project %d deleted", id))
}

// ParseProjectURL resolves a GitLab project URL before it is added.
func (a *App) ParseProjectURL(ctx context.Context, projectURL string) error {
	if err := a.authorize(ctx, resProjects, sessions.ActionCreate); err != nil {
		return err
	}
	out, err := a.API.ParseProjectURL(ctx, projectURL)
	if err != nil {
		return err
	}
	return a.printMap(out)
}

// ScanGroup lists the projects of a GitLab group so they can be batch created.
func (a *App) ScanGroup(ctx context.Context, req models.ScanGroupRequest) error {
	if err := a.authorize(ctx, resProjects, sessions.ActionCreate); err != nil {
		return err
	}
	out, err := a.API.ScanGroupProjects(ctx, req)
	if err != nil {
		return err
	}
	return a.printMap(out)
}

// BatchCreateProjects posts the payload read from a JSON or YAML file.
func (a *App) BatchCreateProjects(ctx context.Context, path string) error {
	raw, err := afero.ReadFile(a.Fs, path)
	if err != nil {
		return fmt.Errorf("read batch file: %w", err)
	}
	var payload map[string]any
	if err := yaml.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("parse batch file: %w", err)
	}
	return mutate(ctx, a, resProjects, sessions.ActionCreate, func(ctx context.Context) (*models.BatchResult, error) {
		return a.API.BatchCreateProjects(ctx, payload)
	}, func(r *models.BatchResult) string {
		return fmt.Sprintf("batch create: %d succeeded, %d failed of %d", r.SuccessCount, r.FailureCount, r.TotalCount)
	})
}

// SyncProjectWebhook installs (or, with remove, deletes) the GitLab hook of a project.
func (a *App) SyncProjectWebhook(ctx context.Context, projectID uint, remove bool) error {
	if err := requireID(projectID); err != nil {
		return err
	}
	if remove {
		return a.change(ctx, resProjects, sessions.ActionUpdate, func(ctx context.Context) error {
			return a.API.DeleteGitLabWebhook(ctx, projectID)
		}, fmt.Sprintf("GitLab webhook removed from project %d", projectID))
	}
	return a.change(ctx, resProjects, sessions.ActionUpdate, func(ctx context.Context) error {
		return a.API.SyncGitLabWebhook(ctx, projectID)
	}, fmt.Sprintf("GitLab webhook synced for project %d", projectID))
}

// WebhookStatus reports the GitLab hook state of one project, or of several at once.
func (a *App) WebhookStatus(ctx context.Context, projectIDs []uint) error {
	if len(projectIDs) == 0 {
		return ErrIDRequired
	}
	if err := a.authorize(ctx, resProjects, sessions.ActionView); err != nil {
		return err
	}
	var (
		out map[string]any
		err error
	)
	if len(projectIDs) == 1 {
		out, err = a.API.GitLabWebhookStatus(ctx, projectIDs[0])
	} else {
		out, err = a.API.BatchCheckWebhookStatus(ctx, projectIDs)
	}
	if err != nil {
		return err
	}
	return a.printMap(out)
}

// LinkWebhook binds a project to a webhook, or unbinds it.
func (a *App) LinkWebhook(ctx context.Context, link models.ProjectWebhookLink, unlink bool) error {
	if link.ProjectID == 0 || link.WebhookID == 0 {
		return ErrIDRequired
	}
	if unlink {
		return a.change(ctx, resProjects, sessions.ActionUpdate, func(ctx context.Context) error {
			return a.API.UnlinkProjectWebhook(ctx, link)
		}, fmt.Sprintf("webhook %d unlinked from project %d", link.WebhookID, link.ProjectID))
	}
	return a.change(ctx, resProjects, sessions.ActionUpdate, func(ctx context.Context) error {
		return a.API.LinkProjectWebhook(ctx, link)
	}, fmt.Sprintf("webhook %d linked to project %d", link.WebhookID, link.ProjectID))
}

// Webhooks

func (a *App) CreateWebhook(ctx context.Context, in models.WebhookInput) error {
	return mutate(ctx, a, resWebhooks, sessions.ActionCreate, func(ctx context.Context) (*models.Webhook, error) {
		return a.API.CreateWebhook(ctx, in)
	}, func(w *models.Webhook) string { return fmt.Sprintf("webhook %d (%s) created", w.ID, w.Name) })
}

func (a *App) UpdateWebhook(ctx context.Context, id uint, in models.WebhookInput) error {
	if err := requireID(id); err != nil {
		return err
	}
	return mutate(ctx, a, resWebhooks, sessions.ActionUpdate, func(ctx context.Context) (*models.Webhook, error) {
		return a.API.UpdateWebhook(ctx, id, in)
	}, func(w *models.Webhook) string { return fmt.Sprintf("webhook %d updated", w.ID) })
}

func (a *App) DeleteWebhook(ctx context.Context, id uint) error {
	if err := requireID(id); err != nil {
		return err
	}
	return a.change(ctx, resWebhooks, sessions.ActionDelete, func(ctx context.Context) error {
		return a.API.DeleteWebhook(ctx, id)
	}, fmt.Sprintf("webhook %d deleted", id))
}

// TestWebhook sends a sample notification through a webhook.
func (a *App) TestWebhook(ctx context.Context, id uint) error {
	if err := requireID(id); err != nil {
		return err
	}
	return a.change(ctx, resWebhooks, sessions.ActionView, func(ctx context.Context) error {
		return a.API.SendTestMessage(ctx, id)
	}, fmt.Sprintf("test message sent through webhook %d", id))
}

// Accounts

// CreateAccount creates a console account. An empty password is generated
// and printed alongside the new account.
func (a *App) CreateAccount(ctx context.Context, req models.CreateAccountRequest) error {
	generated := req.Password == ""
	if generated {
		pw, err := handlers.GeneratePassword()
		if err != nil {
			return fmt.Errorf("generate password: %w", err)
		}
		req.Password = pw
	}
	return mutate(ctx, a, resAccounts, sessions.ActionCreate, func(ctx context.Context) (*accountCreated, error) {
		account, err := a.API.CreateAccount(ctx, req)
		if err != nil {
			return nil, err
		}
		created := &accountCreated{Account: account}
		if generated {
			created.Password = req.Password
		}
		return created, nil
	}, func(c *accountCreated) string {
		if c.Password != "" {
			return fmt.Sprintf("account %d (%s) created, password: %s", c.Account.ID, c.Account.Username, c.Password)
		}
		return fmt.Sprintf("account %d (%s) created", c.Account.ID, c.Account.Username)
	})
}

type accountCreated struct {
	Account  *models.Account `json:"account" yaml:"account"`
	Password string          `json:"password,omitempty" yaml:"password,omitempty"`
}

func (a *App) UpdateAccount(ctx context.Context, id uint, req models.UpdateAccountRequest) error {
	if err := requireID(id); err != nil {
		return err
	}
	return mutate(ctx, a, resAccounts, sessions.ActionUpdate, func(ctx context.Context) (*models.Account, error) {
		return a.API.UpdateAccount(ctx, id, req)
	}, func(acc *models.Account) string { return fmt.Sprintf("account %d updated", acc.ID) })
}

func (a *App) DeleteAccount(ctx context.Context, id uint) error {
	if err := requireID(id); err != nil {
		return err
	}
	return a.change(ctx, resAccounts, sessions.ActionDelete, func(ctx context.Context) error {
		if self := a.Session.Account(); self != nil && self.ID == id {
			return ErrDeleteSelf
		}
		return a.API.DeleteAccount(ctx, id)
	}, fmt.Sprintf("account %d deleted", id))
}

// AssignManager delegates a resource to a manager account, or revokes it.
func (a *App) AssignManager(ctx context.Context, asg models.ManagerAssignment, remove bool) error {
	if asg.ResourceID == 0 || asg.ManagerID == 0 {
		return ErrIDRequired
	}
	switch asg.ResourceType {
	case models.ResourceTypeProject, models.ResourceTypeWebhook, models.ResourceTypeUser:
	default:
		return fmt.Errorf("unknown resource type %q", asg.ResourceType)
	}
	if remove {
		return a.change(ctx, resManagers, sessions.ActionDelete, func(ctx context.Context) error {
			return a.API.RemoveManager(ctx, asg)
		}, fmt.Sprintf("account %d no longer manages %s %d", asg.ManagerID, asg.ResourceType, asg.ResourceID))
	}
	return a.change(ctx, resManagers, sessions.ActionCreate, func(ctx context.Context) error {
		return a.API.AssignManager(ctx, asg)
	}, fmt.Sprintf("account %d now manages %s %d", asg.ManagerID, asg.ResourceType, asg.ResourceID))
}

// GitLab

// GitLabConfig shows the server's GitLab instance.
func (a *App) GitLabConfig(ctx context.Context) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	cfg, err := a.API.GitLabConfig(ctx)
	if err != nil {
		return err
	}
	return a.printer().Print(cfg, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "gitlab url\t%s\n", cfg.GitLabURL)
	})
}

// CheckGitLab validates a GitLab URL and token. A personal token check is a
// profile operation; a project connection check needs project create rights.
func (a *App) CheckGitLab(ctx context.Context, check models.GitLabTokenCheck, personal bool) error {
	var (
		out map[string]any
		err error
	)
	if personal {
		if err := a.authorize(ctx, resProfile, sessions.ActionUpdate); err != nil {
			return err
		}
		out, err = a.API.TestGitLabToken(ctx, check)
	} else {
		if err := a.authorize(ctx, resProjects, sessions.ActionCreate); err != nil {
			return err
		}
		out, err = a.API.TestGitLabConnection(ctx, check)
	}
	if err != nil {
		return err
	}
	return a.printMap(out)
}
