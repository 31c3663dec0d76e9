package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RiskLevel is the qualitative risk rating of a work item
type RiskLevel string

const (
	RiskLevelNone     RiskLevel = ""
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// RiskLevelsBySeverity lists rated levels from most to least severe.
var RiskLevelsBySeverity = []RiskLevel{RiskLevelCritical, RiskLevelHigh, RiskLevelMedium, RiskLevelLow}

// IsValid reports whether the level is a known value (the empty level means unrated)
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLevelNone, RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical:
		return true
	}
	return false
}

// Priority is the scheduling priority of a work item
type Priority string

const (
	PriorityNone   Priority = ""
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// PrioritiesByUrgency lists priorities from most to least urgent.
var PrioritiesByUrgency = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

// IsValid reports whether the priority is a known value
func (p Priority) IsValid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank orders priorities: urgent=0 ... low=3, unset=4
func (p Priority) Rank() int {
	for i, candidate := range PrioritiesByUrgency {
		if p == candidate {
			return i
		}
	}
	return len(PrioritiesByUrgency)
}

var completedColumns = map[string]struct{}{
	"done":      {},
	"completed": {},
	"complete":  {},
	"closed":    {},
	"finished":  {},
	"resolved":  {},
}

// CompletedColumns lists the terminal column names in lower case
func CompletedColumns() []string {
	out := make([]string, 0, len(completedColumns))
	for name := range completedColumns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// WorkItem is a unit of trackable work on a workspace board.
// Pointer fields are optional and may be absent on legacy rows.
type WorkItem struct {
	ID            string
	Title         string
	Description   string
	TenantID      string
	WorkspaceID   string
	WorkspaceName string
	Column        string
	AssigneeID    string
	AssigneeName  string
	Priority      Priority
	Progress      int
	DueDate       *time.Time

	RiskLevel      RiskLevel
	RiskLikelihood *int
	RiskImpact     *int
	RiskScore      *int
	AIRiskScore    *int

	Labels         []string
	Mitigations    []string
	Stakeholders   []string
	Blocked        bool
	BlockedReason  string
	PredecessorIDs []string
	ParentID       string
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsCompleted reports whether the item sits in a terminal column or is fully progressed
func (w *WorkItem) IsCompleted() bool {
	if w.CompletedAt != nil || w.Progress >= 100 {
		return true
	}
	_, ok := completedColumns[strings.ToLower(strings.TrimSpace(w.Column))]
	return ok
}

// IsOverdue reports whether the due date is in the past and the item is not completed
func (w *WorkItem) IsOverdue(now time.Time) bool {
	return w.DueDate != nil && w.DueDate.Before(now) && !w.IsCompleted()
}

// DaysOverdue returns whole days past due, zero when not overdue
func (w *WorkItem) DaysOverdue(now time.Time) int {
	if !w.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(*w.DueDate).Hours() / 24)
}

// IsHighRisk reports whether the item is rated high or critical
func (w *WorkItem) IsHighRisk() bool {
	return w.RiskLevel == RiskLevelHigh || w.RiskLevel == RiskLevelCritical
}

// IsUnassigned reports whether nobody owns the item
func (w *WorkItem) IsUnassigned() bool {
	return w.AssigneeID == "" && w.AssigneeName == ""
}

// HasRiskData reports whether any risk field is populated
func (w *WorkItem) HasRiskData() bool {
	return w.RiskLevel != RiskLevelNone || w.RiskScore != nil || w.AIRiskScore != nil ||
		w.RiskLikelihood != nil || w.RiskImpact != nil
}

// AIRiskAtLeast reports whether the AI-derived score is present and >= threshold
func (w *WorkItem) AIRiskAtLeast(threshold int) bool {
	return w.AIRiskScore != nil && *w.AIRiskScore >= threshold
}

// HasLabelContaining reports whether any label contains one of the fragments (case-insensitive)
func (w *WorkItem) HasLabelContaining(fragments ...string) bool {
	for _, label := range w.Labels {
		lower := strings.ToLower(label)
		for _, fragment := range fragments {
			if strings.Contains(lower, fragment) {
				return true
			}
		}
	}
	return false
}

// Blocker returns the designated predecessor: the first predecessor reference,
// otherwise the parent reference.
func (w *WorkItem) Blocker() string {
	for _, id := range w.PredecessorIDs {
		if id != "" && id != w.ID {
			return id
		}
	}
	if w.ParentID != w.ID {
		return w.ParentID
	}
	return ""
}

// Assignee returns a display name for the owner
func (w *WorkItem) Assignee() string {
	if w.AssigneeName != "" {
		return w.AssigneeName
	}
	return w.AssigneeID
}

// ValidateWorkItem validates a WorkItem instance
func ValidateWorkItem(w *WorkItem) error {
	if w == nil {
		return fmt.Errorf("work item cannot be nil")
	}
	if w.ID == "" || w.Title == "" {
		return ErrMissingRequiredField
	}
	if !w.RiskLevel.IsValid() {
		return ErrInvalidRiskLevel
	}
	if !w.Priority.IsValid() {
		return ErrInvalidPriority
	}
	if w.Progress < 0 || w.Progress > 100 {
		return ErrInvalidProgress
	}
	return nil
}
