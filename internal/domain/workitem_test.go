package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestWorkItem_IsCompleted(t *testing.T) {
	tests := []struct {
		name string
		item WorkItem
		want bool
	}{
		{name: "done column", item: WorkItem{Column: "Done"}, want: true},
		{name: "completed column with spaces", item: WorkItem{Column: " Completed "}, want: true},
		{name: "full progress", item: WorkItem{Column: "In Progress", Progress: 100}, want: true},
		{name: "completed timestamp", item: WorkItem{Column: "Review", CompletedAt: timePtr(time.Now())}, want: true},
		{name: "in progress", item: WorkItem{Column: "In Progress", Progress: 40}, want: false},
		{name: "no column", item: WorkItem{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.IsCompleted())
		})
	}
}

func TestWorkItem_IsOverdue(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	past := &WorkItem{DueDate: timePtr(now.Add(-72 * time.Hour)), Column: "To Do"}
	assert.True(t, past.IsOverdue(now))
	assert.Equal(t, 3, past.DaysOverdue(now))

	done := &WorkItem{DueDate: timePtr(now.Add(-72 * time.Hour)), Column: "Done"}
	assert.False(t, done.IsOverdue(now))
	assert.Equal(t, 0, done.DaysOverdue(now))

	future := &WorkItem{DueDate: timePtr(now.Add(24 * time.Hour))}
	assert.False(t, future.IsOverdue(now))

	noDue := &WorkItem{}
	assert.False(t, noDue.IsOverdue(now))
}

func TestWorkItem_Blocker(t *testing.T) {
	assert.Equal(t, "p1", (&WorkItem{ID: "x", PredecessorIDs: []string{"p1", "p2"}, ParentID: "parent"}).Blocker())
	assert.Equal(t, "parent", (&WorkItem{ID: "x", ParentID: "parent"}).Blocker())
	assert.Equal(t, "p2", (&WorkItem{ID: "x", PredecessorIDs: []string{"x", "p2"}}).Blocker())
	assert.Equal(t, "", (&WorkItem{ID: "x", ParentID: "x"}).Blocker())
	assert.Equal(t, "", (&WorkItem{ID: "x"}).Blocker())
}

func TestWorkItem_RiskHelpers(t *testing.T) {
	item := &WorkItem{RiskLevel: RiskLevelCritical, AIRiskScore: intPtr(82), Labels: []string{"Release-Blocker"}}
	assert.True(t, item.IsHighRisk())
	assert.True(t, item.HasRiskData())
	assert.True(t, item.AIRiskAtLeast(80))
	assert.False(t, item.AIRiskAtLeast(90))
	assert.True(t, item.HasLabelContaining("blocker"))
	assert.False(t, item.HasLabelContaining("critical"))

	plain := &WorkItem{}
	assert.False(t, plain.HasRiskData())
	assert.False(t, plain.AIRiskAtLeast(0))
	assert.True(t, plain.IsUnassigned())
}

func TestPriority_Rank(t *testing.T) {
	assert.Less(t, PriorityUrgent.Rank(), PriorityHigh.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityLow.Rank(), PriorityNone.Rank())
}

func TestValidateWorkItem(t *testing.T) {
	tests := []struct {
		name    string
		item    *WorkItem
		wantErr error
	}{
		{name: "valid", item: &WorkItem{ID: "t1", Title: "Ship", Priority: PriorityHigh, RiskLevel: RiskLevelLow, Progress: 10}},
		{name: "missing title", item: &WorkItem{ID: "t1"}, wantErr: ErrMissingRequiredField},
		{name: "bad risk", item: &WorkItem{ID: "t1", Title: "x", RiskLevel: "severe"}, wantErr: ErrInvalidRiskLevel},
		{name: "bad priority", item: &WorkItem{ID: "t1", Title: "x", Priority: "p0"}, wantErr: ErrInvalidPriority},
		{name: "bad progress", item: &WorkItem{ID: "t1", Title: "x", Progress: 140}, wantErr: ErrInvalidProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWorkItem(tt.item)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}

	assert.Error(t, ValidateWorkItem(nil))
}

func TestCompletedColumns(t *testing.T) {
	cols := CompletedColumns()

	assert.Contains(t, cols, "done")
	assert.Contains(t, cols, "resolved")
	assert.IsIncreasing(t, cols)
	for _, c := range cols {
		assert.True(t, (&WorkItem{Column: c}).IsCompleted(), c)
	}
}
