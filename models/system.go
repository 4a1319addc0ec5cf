package models

// BootstrapStatus is the raw (unenveloped) response of /system/bootstrap.
type BootstrapStatus struct {
	AdminSetupRequired bool `json:"admin_setup_required"`
}

// SetupAdminRequest completes the one-time administrator bootstrap.
type SetupAdminRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GitLabConfig is the server-side GitLab configuration visible to clients.
type GitLabConfig struct {
	GitLabURL string `json:"gitlab_url" yaml:"gitlab_url"`
}

// GitLabTokenCheck asks the server to validate a GitLab URL and token.
type GitLabTokenCheck struct {
	URL         string `json:"url,omitempty"`
	GitLabURL   string `json:"gitlab_url,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}
