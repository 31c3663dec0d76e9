package domain

import "time"

// Meeting is a recorded meeting with its extracted outcomes
type Meeting struct {
	ID            string
	TenantID      string
	WorkspaceID   string
	WorkspaceName string
	Title         string
	HeldAt        time.Time
	Attendees     []string
	ActionItems   []string
	Decisions     []string
	Notes         string
}

// MeetingFilter narrows meeting queries. Results are ordered by HeldAt descending.
type MeetingFilter struct {
	TenantIDs     []string
	WorkspaceIDs  []string
	TitleContains string
	Limit         int
}
