package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloo-solutions/taskpilot/internal/domain"
)

type workspaceStats struct {
	id          string
	name        string
	total       int
	completed   int
	overdue     int
	highRisk    int
	blocked     int
	progressSum int
}

func (w *workspaceStats) open() int {
	return w.total - w.completed
}

func (w *workspaceStats) completion() int {
	return percent(w.completed, w.total)
}

func (w *workspaceStats) averageProgress() int {
	if w.total == 0 {
		return 0
	}
	return w.progressSum / w.total
}

// collectStats tallies items per workspace. Workspaces with no items are kept.
func collectStats(workspaces []*domain.Workspace, items []*domain.WorkItem, now time.Time) []*workspaceStats {
	byID := make(map[string]*workspaceStats, len(workspaces))
	out := make([]*workspaceStats, 0, len(workspaces))
	for _, ws := range workspaces {
		st := &workspaceStats{id: ws.ID, name: ws.Name}
		byID[ws.ID] = st
		out = append(out, st)
	}
	for _, item := range items {
		st, ok := byID[item.WorkspaceID]
		if !ok {
			name := item.WorkspaceName
			if name == "" {
				name = item.WorkspaceID
			}
			st = &workspaceStats{id: item.WorkspaceID, name: name}
			byID[item.WorkspaceID] = st
			out = append(out, st)
		}
		st.total++
		progress := item.Progress
		if item.IsCompleted() {
			st.completed++
			progress = 100
		}
		st.progressSum += progress
		if item.IsOverdue(now) {
			st.overdue++
		}
		if item.IsHighRisk() && !item.IsCompleted() {
			st.highRisk++
		}
		if item.Blocked && !item.IsCompleted() {
			st.blocked++
		}
	}
	return out
}

func (s *Set) workspaceStats(ctx context.Context, req Request) ([]*workspaceStats, []*domain.WorkItem, error) {
	if req.Scope.IsEmpty() || len(req.Scope.WorkspaceIDs) == 0 {
		return nil, nil, nil
	}
	workspaces, err := s.store.Workspaces(ctx, req.Scope.WorkspaceIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load workspaces: %w", err)
	}
	items, err := s.allItems(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return collectStats(workspaces, items, req.Now), items, nil
}

// Comparison contrasts the visible workspaces on completion, overdue and risk counts
func (s *Set) Comparison(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	stats, _, err := s.workspaceStats(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, nil
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].completion() != stats[j].completion() {
			return stats[i].completion() > stats[j].completion()
		}
		return stats[i].name < stats[j].name
	})

	block := domain.NewContextBlock("comparison", "WORKSPACE COMPARISON")
	if len(stats) == 1 {
		block.AddLine("Only one workspace is visible to you.")
	} else {
		block.AddLine(fmt.Sprintf("Comparing %d workspaces (highest completion first):", len(stats)))
	}
	for _, st := range stats {
		block.AddEntry(st.id, "", fmt.Sprintf("- %s: %s, %d%% complete, %d open, %d overdue, %d high-risk, %d blocked, average progress %d%%",
			st.name, plural(st.total, "item", "items"), st.completion(), st.open(),
			st.overdue, st.highRisk, st.blocked, st.averageProgress()))
	}
	return block, nil
}

// Distribution breaks the open items down by status, priority, risk level and assignee
func (s *Set) Distribution(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	items, err := s.openItems(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	block := domain.NewContextBlock("distribution", "WORK DISTRIBUTION")
	block.AddLine(fmt.Sprintf("Distribution of %s:", plural(len(items), "open item", "open items")))
	block.AddLine("By status: " + formatCounts(countBy(items, func(i *domain.WorkItem) string {
		if i.Column == "" {
			return "no status"
		}
		return i.Column
	}), len(items)))
	block.AddLine("By priority: " + formatCounts(countBy(items, func(i *domain.WorkItem) string {
		if i.Priority == domain.PriorityNone {
			return "none"
		}
		return string(i.Priority)
	}), len(items)))
	block.AddLine("By risk level: " + formatCounts(countBy(items, func(i *domain.WorkItem) string {
		if i.RiskLevel == domain.RiskLevelNone {
			return "unrated"
		}
		return string(i.RiskLevel)
	}), len(items)))
	block.AddLine("By assignee: " + formatCounts(countBy(items, func(i *domain.WorkItem) string {
		if a := i.Assignee(); a != "" {
			return a
		}
		return "unassigned"
	}), len(items)))
	return block, nil
}

// Progress reports completion per workspace and the items currently in flight
func (s *Set) Progress(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	stats, items, err := s.workspaceStats(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	total, completed := 0, 0
	for _, st := range stats {
		total += st.total
		completed += st.completed
	}

	block := domain.NewContextBlock("progress", "PROGRESS")
	block.AddLine(fmt.Sprintf("Overall: %d of %d items complete (%d%%).", completed, total, percent(completed, total)))
	for _, st := range stats {
		if st.total == 0 {
			continue
		}
		block.AddLine(fmt.Sprintf("- %s: %d/%d complete (%d%%), average progress %d%%",
			st.name, st.completed, st.total, st.completion(), st.averageProgress()))
	}

	inFlight := make([]*domain.WorkItem, 0)
	for _, item := range items {
		if !item.IsCompleted() && item.Progress > 0 {
			inFlight = append(inFlight, item)
		}
	}
	sort.SliceStable(inFlight, func(i, j int) bool {
		return inFlight[i].Progress > inFlight[j].Progress
	})
	addCappedGroups(block, []group{{name: "IN PROGRESS", items: inFlight}}, func(item *domain.WorkItem) string {
		return itemLine(item, req.Now)
	})
	return block, nil
}

// Aggregate summarizes totals across the visible workspaces and lists the riskiest open items
func (s *Set) Aggregate(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	stats, items, err := s.workspaceStats(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, nil
	}

	var total, completed, overdue, highRisk, blocked, unassigned int
	for _, item := range items {
		total++
		if item.IsCompleted() {
			completed++
			continue
		}
		if item.IsOverdue(req.Now) {
			overdue++
		}
		if item.IsHighRisk() {
			highRisk++
		}
		if item.Blocked {
			blocked++
		}
		if item.IsUnassigned() {
			unassigned++
		}
	}

	block := domain.NewContextBlock("aggregate", "SUMMARY")
	if n := len(req.Scope.TenantIDs); n > 0 {
		block.AddLine(fmt.Sprintf("Organizations: %d", n))
	}
	block.AddLine(fmt.Sprintf("Workspaces: %d", len(stats)))
	block.AddLine(fmt.Sprintf("Work items: %d total, %d completed, %d open", total, completed, total-completed))
	block.AddLine(fmt.Sprintf("Open items: %d overdue, %d high or critical risk, %d blocked, %d unassigned",
		overdue, highRisk, blocked, unassigned))

	risky := make([]*domain.WorkItem, 0)
	for _, item := range items {
		if !item.IsCompleted() && item.IsHighRisk() {
			risky = append(risky, item)
		}
	}
	sortByRisk(risky)
	addCappedGroups(block, []group{{name: "HIGHEST RISK ITEMS", items: risky}}, func(item *domain.WorkItem) string {
		return itemLine(item, req.Now)
	})
	return block, nil
}

type count struct {
	key string
	n   int
}

func countBy(items []*domain.WorkItem, key func(*domain.WorkItem) string) []count {
	index := make(map[string]int)
	counts := make([]count, 0)
	for _, item := range items {
		k := key(item)
		if i, ok := index[k]; ok {
			counts[i].n++
			continue
		}
		index[k] = len(counts)
		counts = append(counts, count{key: k, n: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].n != counts[j].n {
			return counts[i].n > counts[j].n
		}
		return counts[i].key < counts[j].key
	})
	return counts
}

func formatCounts(counts []count, total int) string {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s %d (%d%%)", c.key, c.n, percent(c.n, total)))
	}
	return strings.Join(parts, ", ")
}
