package handlers

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/sourcegraph/conc/pool"

	"mergealert/models"
	"mergealert/utils"
)

const managerLookupConcurrency = 4

type resourceManagerService interface {
	ListAccounts(ctx context.Context, q models.AccountQuery) (*models.AccountPage, error)
	ResourceManagers(ctx context.Context, resourceID uint, resourceType models.ResourceType) (*models.ResourceManagerList, error)
	ManagedResources(ctx context.Context, accountID uint, resourceType models.ResourceType) (*models.ManagedResources, error)
}

// ResourceManagersHandler renders manager delegation (admin only).
type ResourceManagersHandler struct {
	managers resourceManagerService
}

func NewResourceManagersHandler(managers resourceManagerService) *ResourceManagersHandler {
	return &ResourceManagersHandler{managers: managers}
}

// ManagerSummary is one account with the resources it manages.
type ManagerSummary struct {
	AccountID   uint   `json:"account_id" yaml:"account_id"`
	Username    string `json:"username" yaml:"username"`
	Email       string `json:"email" yaml:"email"`
	ResourceIDs []uint `json:"resource_ids" yaml:"resource_ids"`
}

// Render shows the managers of one resource (resource_id), the resources of
// one manager (manager_id), or an overview of every non-admin account.
// resource_type defaults to project.
func (h *ResourceManagersHandler) Render(ctx context.Context, p *Printer, q url.Values) error {
	resourceType := models.ResourceType(q.Get("resource_type"))
	switch resourceType {
	case models.ResourceTypeProject, models.ResourceTypeWebhook, models.ResourceTypeUser:
	case "":
		resourceType = models.ResourceTypeProject
	default:
		return fmt.Errorf("unknown resource_type %q", resourceType)
	}

	if id, err := strconv.ParseUint(q.Get("resource_id"), 10, 64); err == nil && id > 0 {
		return h.renderManagers(ctx, p, uint(id), resourceType)
	}
	if id, err := strconv.ParseUint(q.Get("manager_id"), 10, 64); err == nil && id > 0 {
		return h.renderManaged(ctx, p, uint(id), resourceType)
	}
	return h.renderOverview(ctx, p, resourceType)
}

func (h *ResourceManagersHandler) renderManagers(ctx context.Context, p *Printer, id uint, rt models.ResourceType) error {
	list, err := h.managers.ResourceManagers(ctx, id, rt)
	if err != nil {
		return err
	}
	return p.Print(list, func(tw *tabwriter.Writer) {
		row(tw, "MANAGER", "USERNAME", "EMAIL", "ASSIGNED")
		for _, m := range list.Managers {
			username, email := "-", "-"
			if m.Manager != nil {
				username, email = m.Manager.Username, m.Manager.Email
			}
			row(tw, m.ManagerID, username, email, utils.FormatTime(m.CreatedAt))
		}
	})
}

func (h *ResourceManagersHandler) renderManaged(ctx context.Context, p *Printer, id uint, rt models.ResourceType) error {
	managed, err := h.managers.ManagedResources(ctx, id, rt)
	if err != nil {
		return err
	}
	return p.Print(managed, func(tw *tabwriter.Writer) {
		row(tw, "RESOURCE TYPE", "RESOURCE ID")
		for _, rid := range managed.ResourceIDs {
			row(tw, rt, rid)
		}
	})
}

// Overview lists every non-admin account with the resources of type rt it manages.
func (h *ResourceManagersHandler) Overview(ctx context.Context, rt models.ResourceType) ([]ManagerSummary, error) {
	page, err := h.managers.ListAccounts(ctx, models.AccountQuery{Page: 1, PageSize: 100, Role: models.RoleUser})
	if err != nil {
		return nil, err
	}

	p := pool.NewWithResults[ManagerSummary]().WithContext(ctx).WithMaxGoroutines(managerLookupConcurrency)
	for _, account := range page.Data {
		p.Go(func(ctx context.Context) (ManagerSummary, error) {
			managed, err := h.managers.ManagedResources(ctx, account.ID, rt)
			if err != nil {
				return ManagerSummary{}, fmt.Errorf("managed resources of %s: %w", account.Username, err)
			}
			ids := managed.ResourceIDs
			if ids == nil {
				ids = []uint{}
			}
			return ManagerSummary{AccountID: account.ID, Username: account.Username, Email: account.Email, ResourceIDs: ids}, nil
		})
	}
	summaries, err := p.Wait()
	if err != nil {
		return nil, err
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].AccountID < summaries[j].AccountID })
	return summaries, nil
}

func (h *ResourceManagersHandler) renderOverview(ctx context.Context, p *Printer, rt models.ResourceType) error {
	summaries, err := h.Overview(ctx, rt)
	if err != nil {
		return err
	}
	if summaries == nil {
		summaries = []ManagerSummary{}
	}
	return p.Print(summaries, func(tw *tabwriter.Writer) {
		row(tw, "ACCOUNT", "USERNAME", "EMAIL", "MANAGED "+string(rt)+"S")
		for _, s := range summaries {
			row(tw, s.AccountID, s.Username, s.Email, len(s.ResourceIDs))
		}
	})
}
