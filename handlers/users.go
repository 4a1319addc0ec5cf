package handlers

import (
	"context"
	"net/url"
	"strings"
	"text/tabwriter"

	"mergealert/models"
	"mergealert/utils"
)

type userService interface {
	ListUsers(ctx context.Context) ([]models.User, error)
}

// UsersHandler renders notification recipients.
type UsersHandler struct {
	users userService
}

func NewUsersHandler(users userService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Render lists users; the search parameter filters by name, email or GitLab username.
func (h *UsersHandler) Render(ctx context.Context, p *Printer, q url.Values) error {
	users, err := h.users.ListUsers(ctx)
	if err != nil {
		return err
	}
	if search := strings.ToLower(strings.TrimSpace(q.Get("search"))); search != "" {
		filtered := users[:0:0]
		for _, u := range users {
			if containsFold(search, u.Name, u.Email, u.GitLabUsername) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if users == nil {
		users = []models.User{}
	}
	return p.Print(users, func(tw *tabwriter.Writer) {
		row(tw, "ID", "NAME", "EMAIL", "PHONE", "GITLAB", "CREATED")
		for _, u := range users {
			name := u.Name
			if name == "" {
				name = utils.ExtractNameFromEmail(u.Email)
			}
			row(tw, u.ID, name, u.Email, utils.FormatPhone(u.Phone), dash(u.GitLabUsername), utils.FormatTime(u.CreatedAt))
		}
	})
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
