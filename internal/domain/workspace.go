package domain

import (
	"fmt"
	"time"
)

// Workspace represents a board of work items scoped to a tenant
type Workspace struct {
	ID          string
	TenantID    string
	Name        string
	MemberNames []string
	CreatedAt   time.Time
}

// NewWorkspace creates a new Workspace instance
func NewWorkspace(id, tenantID, name string, createdAt time.Time) *Workspace {
	return &Workspace{
		ID:        id,
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: createdAt,
	}
}

// ValidateWorkspace validates a Workspace instance
func ValidateWorkspace(w *Workspace) error {
	if w == nil {
		return fmt.Errorf("workspace cannot be nil")
	}

	if w.ID == "" {
		return fmt.Errorf("workspace ID is required")
	}

	if w.TenantID == "" {
		return fmt.Errorf("workspace TenantID is required")
	}

	if w.Name == "" {
		return fmt.Errorf("workspace Name is required")
	}

	return nil
}
