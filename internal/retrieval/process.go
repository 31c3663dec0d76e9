package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cloo-solutions/taskpilot/internal/domain"
)

// StalledAfter is how long an open item may go without updates before it is reported as stalled
const StalledAfter = 14 * 24 * time.Hour

// Process reports flow signals: work in progress per status, blocked items and stalled items
func (s *Set) Process(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	items, err := s.openItems(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	block := domain.NewContextBlock("process", "PROCESS AND FLOW")
	block.AddLine("Work in progress by status: " + formatCounts(countBy(items, func(i *domain.WorkItem) string {
		if i.Column == "" {
			return "no status"
		}
		return i.Column
	}), len(items)))

	var blocked, stalled []*domain.WorkItem
	for _, item := range items {
		if item.Blocked {
			blocked = append(blocked, item)
			continue
		}
		if !item.UpdatedAt.IsZero() && req.Now.Sub(item.UpdatedAt) >= StalledAfter {
			stalled = append(stalled, item)
		}
	}
	block.AddLine(fmt.Sprintf("Blocked: %d. Stalled (no update in %d days): %d.",
		len(blocked), int(StalledAfter.Hours()/24), len(stalled)))

	sortByUrgency(blocked)
	sort.SliceStable(stalled, func(i, j int) bool {
		return stalled[i].UpdatedAt.Before(stalled[j].UpdatedAt)
	})
	addCappedGroups(block, []group{
		{name: "BLOCKED", items: blocked},
		{name: "STALLED", items: stalled},
	}, func(item *domain.WorkItem) string {
		line := itemLine(item, req.Now)
		if !item.UpdatedAt.IsZero() {
			line += fmt.Sprintf(" last updated %s", item.UpdatedAt.Format(dateLayout))
		}
		return line
	})
	return block, nil
}
