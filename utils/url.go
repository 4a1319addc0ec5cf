package utils

import (
	"net/url"
	"strings"
)

// Console screen paths referenced outside the route table.
const (
	LoginPath      = "/login"
	RegisterPath   = "/register"
	SetupAdminPath = "/setup-admin"
	HomePath       = "/"
)

// WithRedirect appends target as the redirect query parameter of path.
// An empty target yields path unchanged.
func WithRedirect(path, target string) string {
	if target == "" {
		return path
	}
	return path + "?" + url.Values{"redirect": {target}}.Encode()
}

// PathOnly strips the query string and fragment from a console target.
func PathOnly(target string) string {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	if target == "" {
		return HomePath
	}
	return target
}

// RedirectParam returns the redirect query parameter of target, if any.
func RedirectParam(target string) string {
	i := strings.IndexByte(target, '?')
	if i < 0 {
		return ""
	}
	q, err := url.ParseQuery(target[i+1:])
	if err != nil {
		return ""
	}
	return q.Get("redirect")
}

// SafeRedirect accepts only local absolute paths, falling back to the home screen.
// Scheme-relative ("//host") and absolute URLs are rejected.
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return HomePath
	}
	return target
}

// IsAuthScreen reports whether target is the login or register screen.
func IsAuthScreen(target string) bool {
	p := PathOnly(target)
	return p == LoginPath || p == RegisterPath
}
