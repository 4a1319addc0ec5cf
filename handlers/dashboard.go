package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/sourcegraph/conc/pool"

	"mergealert/models"
	"mergealert/utils"
)

const (
	dashboardDays          = 7
	dashboardNotifications = 10
	dashboardTopSeries     = 5
)

type statsService interface {
	Stats(ctx context.Context) (*models.Stats, error)
	ProjectDailyStats(ctx context.Context, days int) ([]models.DailySeries, error)
	WebhookDailyStats(ctx context.Context, days int) ([]models.DailySeries, error)
	ListNotifications(ctx context.Context, pageSize int) ([]models.Notification, error)
}

// DashboardHandler renders the home screen. Its four data loads run
// concurrently; a failed section is logged and left empty.
type DashboardHandler struct {
	stats statsService
	log   *slog.Logger
}

func NewDashboardHandler(stats statsService) *DashboardHandler {
	return &DashboardHandler{stats: stats, log: slog.Default().With("component", "dashboard")}
}

// Dashboard is the combined dashboard payload.
type Dashboard struct {
	Stats               *models.Stats         `json:"stats" yaml:"stats"`
	ProjectDaily        []models.DailySeries  `json:"project_daily" yaml:"project_daily"`
	WebhookDaily        []models.DailySeries  `json:"webhook_daily" yaml:"webhook_daily"`
	RecentNotifications []models.Notification `json:"recent_notifications" yaml:"recent_notifications"`
}

// Load fetches every dashboard section. It fails only when all sections fail.
func (h *DashboardHandler) Load(ctx context.Context, days int) (*Dashboard, error) {
	if days <= 0 {
		days = dashboardDays
	}
	var d Dashboard
	p := pool.New().WithErrors().WithContext(ctx)

	p.Go(func(ctx context.Context) error {
		stats, err := h.stats.Stats(ctx)
		if err != nil {
			h.log.Warn("stats failed", "error", err)
			return fmt.Errorf("stats: %w", err)
		}
		d.Stats = stats
		return nil
	})
	p.Go(func(ctx context.Context) error {
		series, err := h.stats.ProjectDailyStats(ctx, days)
		if err != nil {
			h.log.Warn("project daily stats failed", "error", err)
			return fmt.Errorf("project daily stats: %w", err)
		}
		d.ProjectDaily = series
		return nil
	})
	p.Go(func(ctx context.Context) error {
		series, err := h.stats.WebhookDailyStats(ctx, days)
		if err != nil {
			h.log.Warn("webhook daily stats failed", "error", err)
			return fmt.Errorf("webhook daily stats: %w", err)
		}
		d.WebhookDaily = series
		return nil
	})
	p.Go(func(ctx context.Context) error {
		items, err := h.stats.ListNotifications(ctx, dashboardNotifications)
		if err != nil {
			h.log.Warn("recent notifications failed", "error", err)
			return fmt.Errorf("recent notifications: %w", err)
		}
		d.RecentNotifications = items
		return nil
	})

	err := p.Wait()
	if d.Stats == nil && d.ProjectDaily == nil && d.WebhookDaily == nil && d.RecentNotifications == nil && err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	// nil slices render as [] in json
	if d.ProjectDaily == nil {
		d.ProjectDaily = []models.DailySeries{}
	}
	if d.WebhookDaily == nil {
		d.WebhookDaily = []models.DailySeries{}
	}
	if d.RecentNotifications == nil {
		d.RecentNotifications = []models.Notification{}
	}
	return &d, nil
}

// Render prints the dashboard. The days query parameter sets the series length.
func (h *DashboardHandler) Render(ctx context.Context, p *Printer, q url.Values) error {
	days, _ := strconv.Atoi(q.Get("days"))
	d, err := h.Load(ctx, days)
	if err != nil {
		return err
	}
	return p.Print(d, func(tw *tabwriter.Writer) {
		if d.Stats != nil {
			row(tw, "USERS", "PROJECTS", "WEBHOOKS", "NOTIFICATIONS", "RECENT", "DELIVERED")
			row(tw,
				utils.FormatCount(d.Stats.TotalUsers),
				utils.FormatCount(d.Stats.TotalProjects),
				utils.FormatCount(d.Stats.TotalWebhooks),
				utils.FormatCount(d.Stats.TotalNotifications),
				utils.FormatCount(d.Stats.RecentNotifications),
				utils.FormatCount(d.Stats.SuccessfulNotifications),
			)
			row(tw)
		}
		if len(d.ProjectDaily) > 0 {
			row(tw, "TOP PROJECTS", "TOTAL")
			for _, s := range topSeries(d.ProjectDaily) {
				row(tw, s.ProjectName, utils.FormatCount(s.Total()))
			}
			row(tw)
		}
		if len(d.WebhookDaily) > 0 {
			row(tw, "TOP WEBHOOKS", "TOTAL")
			for _, s := range topSeries(d.WebhookDaily) {
				row(tw, s.WebhookName, utils.FormatCount(s.Total()))
			}
			row(tw)
		}
		row(tw, "TIME", "PROJECT", "TITLE", "AUTHOR", "SENT")
		for _, n := range d.RecentNotifications {
			row(tw, utils.FormatTime(n.CreatedAt), n.ProjectName, n.Title, utils.ExtractNameFromEmail(n.AuthorEmail), yesNo(n.NotificationSent))
		}
	})
}

func topSeries(series []models.DailySeries) []models.DailySeries {
	out := make([]models.DailySeries, len(series))
	copy(out, series)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total() > out[j].Total() })
	if len(out) > dashboardTopSeries {
		out = out[:dashboardTopSeries]
	}
	return out
}
