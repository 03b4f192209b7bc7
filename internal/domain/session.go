// Package domain contains core domain types for the Workpal application.
package domain

import (
	"time"
)

// Session holds the two-token backend credentials for one browser session.
// The browser only ever sees the opaque session ID; tokens stay server-side.
type Session struct {
	ID           string    `json:"id"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasAccessToken reports whether an access token is stored. This is a
// presence check only; validity is discovered lazily on the first
// rejected backend call.
func (s *Session) HasAccessToken() bool {
	return s != nil && s.AccessToken != ""
}
