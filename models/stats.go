package models

import "time"

// Stats are the aggregate counters shown on the dashboard.
type Stats struct {
	TotalUsers              int64 `json:"total_users" yaml:"total_users"`
	TotalProjects           int64 `json:"total_projects" yaml:"total_projects"`
	TotalWebhooks           int64 `json:"total_webhooks" yaml:"total_webhooks"`
	TotalNotifications      int64 `json:"total_notifications" yaml:"total_notifications"`
	RecentNotifications     int64 `json:"recent_notifications" yaml:"recent_notifications"`
	SuccessfulNotifications int64 `json:"successful_notifications" yaml:"successful_notifications"`
}

// DailyCount is the number of notifications on one day.
type DailyCount struct {
	Date  string `json:"date" yaml:"date"`
	Count int64  `json:"count" yaml:"count"`
}

// DailySeries is a per-project or per-webhook series of daily counts.
type DailySeries struct {
	ProjectID   uint         `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	ProjectName string       `json:"project_name,omitempty" yaml:"project_name,omitempty"`
	WebhookID   uint         `json:"webhook_id,omitempty" yaml:"webhook_id,omitempty"`
	WebhookName string       `json:"webhook_name,omitempty" yaml:"webhook_name,omitempty"`
	Data        []DailyCount `json:"data" yaml:"data"`
}

// Total sums the series.
func (s DailySeries) Total() int64 {
	var n int64
	for _, d := range s.Data {
		n += d.Count
	}
	return n
}

// Notification is one merge request notification sent (or attempted).
type Notification struct {
	ID               uint      `json:"id" yaml:"id"`
	ProjectID        uint      `json:"project_id" yaml:"project_id"`
	ProjectName      string    `json:"project_name,omitempty" yaml:"project_name,omitempty"`
	MergeRequestID   int       `json:"merge_request_id" yaml:"merge_request_id"`
	Title            string    `json:"title" yaml:"title"`
	SourceBranch     string    `json:"source_branch" yaml:"source_branch"`
	TargetBranch     string    `json:"target_branch" yaml:"target_branch"`
	AuthorEmail      string    `json:"author_email" yaml:"author_email"`
	AssigneeEmails   []string  `json:"assignee_emails,omitempty" yaml:"assignee_emails,omitempty"`
	NotificationSent bool      `json:"notification_sent" yaml:"notification_sent"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
}
