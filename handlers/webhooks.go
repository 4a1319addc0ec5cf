package handlers

import (
	"context"
	"net/url"
	"text/tabwriter"

	"mergealert/models"
	"mergealert/utils"
)

type webhookService interface {
	ListWebhooks(ctx context.Context) ([]models.Webhook, error)
}

// WebhooksHandler renders chat-bot endpoints.
type WebhooksHandler struct {
	webhooks webhookService
}

func NewWebhooksHandler(webhooks webhookService) *WebhooksHandler {
	return &WebhooksHandler{webhooks: webhooks}
}

func (h *WebhooksHandler) Render(ctx context.Context, p *Printer, _ url.Values) error {
	hooks, err := h.webhooks.ListWebhooks(ctx)
	if err != nil {
		return err
	}
	if hooks == nil {
		hooks = []models.Webhook{}
	}
	return p.Print(hooks, func(tw *tabwriter.Writer) {
		row(tw, "ID", "NAME", "TYPE", "ACTIVE", "PROJECTS", "URL", "UPDATED")
		for _, w := range hooks {
			row(tw, w.ID, w.Name, dash(w.Type), yesNo(w.IsActive), len(w.Projects), w.URL, utils.FormatTime(w.UpdatedAt))
		}
	})
}
