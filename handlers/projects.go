package handlers

import (
	"context"
	"net/url"
	"strings"
	"text/tabwriter"

	"mergealert/models"
	"mergealert/utils"
)

type projectService interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
}

// ProjectsHandler renders watched GitLab projects.
type ProjectsHandler struct {
	projects projectService
}

func NewProjectsHandler(projects projectService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects}
}

// Render lists projects; search filters by name or URL.
func (h *ProjectsHandler) Render(ctx context.Context, p *Printer, q url.Values) error {
	projects, err := h.projects.ListProjects(ctx)
	if err != nil {
		return err
	}
	if search := strings.ToLower(strings.TrimSpace(q.Get("search"))); search != "" {
		filtered := projects[:0:0]
		for _, pr := range projects {
			if containsFold(search, pr.Name, pr.URL) {
				filtered = append(filtered, pr)
			}
		}
		projects = filtered
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return p.Print(projects, func(tw *tabwriter.Writer) {
		row(tw, "ID", "NAME", "GITLAB ID", "URL", "WEBHOOKS", "HOOK SYNCED", "UPDATED")
		for _, pr := range projects {
			row(tw, pr.ID, pr.Name, pr.GitLabProjectID, pr.URL, len(pr.Webhooks), yesNo(pr.WebhookSynced), utils.FormatTime(pr.UpdatedAt))
		}
	})
}
