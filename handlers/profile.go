package handlers

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"mergealert/models"
	"mergealert/utils"
)

var errNoProfile = errors.New("no profile loaded")

type sessionView interface {
	Account() *models.Account
	LastActivity() time.Time
	TokenExpiresAt() time.Time
	HasPermission(resource, action string) bool
}

// permissionResources and permissionActions are the rows and columns of the
// profile permission grid.
var (
	permissionResources = []string{"projects", "webhooks", "users", "notifications", "profile", "accounts"}
	permissionActions   = []string{"view", "create", "update", "delete"}
)

// ProfileHandler renders the signed-in account.
type ProfileHandler struct {
	session sessionView
}

func NewProfileHandler(session sessionView) *ProfileHandler {
	return &ProfileHandler{session: session}
}

// Profile is the signed-in account plus local session details.
type Profile struct {
	Account        models.Account      `json:"account" yaml:"account"`
	LastActivityAt time.Time           `json:"last_activity_at" yaml:"last_activity_at"`
	TokenExpiresAt *time.Time          `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
	Permissions    map[string][]string `json:"permissions" yaml:"permissions"`
}

func (h *ProfileHandler) Load() (*Profile, error) {
	account := h.session.Account()
	if account == nil {
		return nil, errNoProfile
	}
	p := &Profile{
		Account:        *account,
		LastActivityAt: h.session.LastActivity(),
		Permissions:    make(map[string][]string, len(permissionResources)),
	}
	if exp := h.session.TokenExpiresAt(); !exp.IsZero() {
		p.TokenExpiresAt = &exp
	}
	for _, resource := range permissionResources {
		allowed := []string{}
		for _, action := range permissionActions {
			if h.session.HasPermission(resource, action) {
				allowed = append(allowed, action)
			}
		}
		p.Permissions[resource] = allowed
	}
	return p, nil
}

func (h *ProfileHandler) Render(_ context.Context, p *Printer, _ url.Values) error {
	profile, err := h.Load()
	if err != nil {
		return err
	}
	a := profile.Account
	return p.Print(profile, func(tw *tabwriter.Writer) {
		row(tw, "Username", a.Username)
		row(tw, "Email", a.Email)
		row(tw, "Role", a.Role)
		row(tw, "Avatar", dash(a.Avatar))
		row(tw, "GitLab token", yesNo(a.HasGitLabToken))
		row(tw, "Last login", utils.FormatTimePtr(a.LastLoginAt))
		row(tw, "Last activity", utils.FormatTime(profile.LastActivityAt))
		row(tw, "Token expires", utils.FormatTimePtr(profile.TokenExpiresAt))
		row(tw)
		for _, resource := range permissionResources {
			actions := profile.Permissions[resource]
			if len(actions) == 0 {
				row(tw, resource, "-")
				continue
			}
			row(tw, resource, strings.Join(actions, ","))
		}
	})
}
