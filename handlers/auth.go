package handlers

import (
	"context"
	"net/url"
	"text/tabwriter"
)

// AuthScreenHandler renders the login, register and setup screens. The forms
// themselves are the login, register and setup-admin commands.
type AuthScreenHandler struct {
	screen  string
	command string
}

func NewAuthScreenHandler(screen, command string) *AuthScreenHandler {
	return &AuthScreenHandler{screen: screen, command: command}
}

type authScreen struct {
	Screen   string `json:"screen" yaml:"screen"`
	Command  string `json:"command" yaml:"command"`
	Redirect string `json:"redirect,omitempty" yaml:"redirect,omitempty"`
}

func (h *AuthScreenHandler) Render(_ context.Context, p *Printer, q url.Values) error {
	s := authScreen{Screen: h.screen, Command: h.command, Redirect: q.Get("redirect")}
	return p.Print(s, func(tw *tabwriter.Writer) {
		row(tw, h.screen+":", "run `mergealert "+h.command+"`")
		if s.Redirect != "" {
			row(tw, "then:", s.Redirect)
		}
	})
}
