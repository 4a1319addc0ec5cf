package handlers

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"mergealert/models"
	"mergealert/utils"
)

const defaultNotificationPageSize = 20

type notificationService interface {
	ListNotifications(ctx context.Context, pageSize int) ([]models.Notification, error)
}

// NotificationsHandler renders the notification history.
type NotificationsHandler struct {
	notifications notificationService
}

func NewNotificationsHandler(notifications notificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// Render lists the latest notifications; page_size bounds the count.
func (h *NotificationsHandler) Render(ctx context.Context, p *Printer, q url.Values) error {
	size, err := strconv.Atoi(q.Get("page_size"))
	if err != nil || size <= 0 {
		size = defaultNotificationPageSize
	}
	items, err := h.notifications.ListNotifications(ctx, size)
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.Notification{}
	}
	return p.Print(items, func(tw *tabwriter.Writer) {
		row(tw, "ID", "TIME", "PROJECT", "MR", "BRANCHES", "AUTHOR", "ASSIGNEES", "SENT")
		for _, n := range items {
			assignees := make([]string, 0, len(n.AssigneeEmails))
			for _, e := range n.AssigneeEmails {
				assignees = append(assignees, utils.ExtractNameFromEmail(e))
			}
			row(tw,
				n.ID,
				utils.FormatTime(n.CreatedAt),
				n.ProjectName,
				"!"+strconv.Itoa(n.MergeRequestID),
				n.SourceBranch+" -> "+n.TargetBranch,
				utils.ExtractNameFromEmail(n.AuthorEmail),
				dash(strings.Join(assignees, ",")),
				yesNo(n.NotificationSent),
			)
		}
	})
}
