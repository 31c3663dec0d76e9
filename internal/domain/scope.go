package domain

import "time"

// User is the person asking the assistant
type User struct {
	ID              string
	Name            string
	PrimaryTenantID string
}

// Scope describes what the requesting user can see. It is resolved before the
// assistant runs; permission enforcement has already been applied to these IDs.
type Scope struct {
	UserID          string
	UserName        string
	PrimaryTenantID string
	TenantIDs       []string
	WorkspaceIDs    []string
}

// IsEmpty reports whether the scope identifies no user
func (s *Scope) IsEmpty() bool {
	return s == nil || s.UserID == ""
}

// WorkItemFilter narrows work item queries
type WorkItemFilter struct {
	WorkspaceIDs     []string
	AssigneeID       string
	IncludeCompleted bool
	UpdatedSince     *time.Time
	Limit            int
}
