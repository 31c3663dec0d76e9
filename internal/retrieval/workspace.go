package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloo-solutions/taskpilot/internal/domain"
)

// recentActivityCount bounds the recently updated items shown in the overview
const recentActivityCount = 10

// WorkspaceOverview is the fallback context: each visible workspace with its
// open counts, followed by the most recently updated items.
func (s *Set) WorkspaceOverview(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	stats, items, err := s.workspaceStats(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, nil
	}

	block := domain.NewContextBlock("general-workspace", "YOUR WORKSPACES")
	block.AddLine(fmt.Sprintf("You can see %s:", plural(len(stats), "workspace", "workspaces")))
	for _, st := range stats {
		block.AddLine(fmt.Sprintf("- %s: %d open, %d completed, %d overdue",
			st.name, st.open(), st.completed, st.overdue))
	}

	recent := make([]*domain.WorkItem, 0, len(items))
	for _, item := range items {
		if !item.IsCompleted() {
			recent = append(recent, item)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].UpdatedAt.After(recent[j].UpdatedAt)
	})
	if len(recent) > recentActivityCount {
		recent = recent[:recentActivityCount]
	}
	for _, item := range recent {
		block.AddEntry(item.ID, "RECENTLY UPDATED", itemLine(item, req.Now))
	}
	return block, nil
}
