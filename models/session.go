package models

import "time"

// Session is the locally persisted credential state of the console.
// An empty AccessToken means anonymous, regardless of server-side validity.
type Session struct {
	AccessToken    string    `json:"token,omitempty"`
	RefreshToken   string    `json:"refreshToken,omitempty"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// IsAuthenticated reports whether an access token is held.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != ""
}

// HasRefreshToken reports whether a refresh token is held.
func (s Session) HasRefreshToken() bool {
	return s.RefreshToken != ""
}

// IdleFor returns the time elapsed since the last recorded activity.
func (s Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivityAt)
}
