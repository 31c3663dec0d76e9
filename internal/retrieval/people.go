package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cloo-solutions/taskpilot/internal/domain"
)

// overloadFactor marks an assignee overloaded above this multiple of the mean open load
const overloadFactor = 1.5

// Stakeholders lists workspace members and the stakeholders named on open items
func (s *Set) Stakeholders(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	if req.Scope.IsEmpty() || len(req.Scope.WorkspaceIDs) == 0 {
		return nil, nil
	}
	workspaces, err := s.store.Workspaces(ctx, req.Scope.WorkspaceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspaces: %w", err)
	}
	items, err := s.openItems(ctx, req)
	if err != nil {
		return nil, err
	}

	block := domain.NewContextBlock("stakeholder", "STAKEHOLDERS")
	for _, ws := range workspaces {
		if len(ws.MemberNames) == 0 {
			continue
		}
		block.AddEntry(ws.ID, "WORKSPACE MEMBERS", fmt.Sprintf("- %s: %s", ws.Name, strings.Join(ws.MemberNames, ", ")))
	}

	involvement := make(map[string][]string)
	for _, item := range items {
		for _, name := range item.Stakeholders {
			involvement[name] = append(involvement[name], item.Title)
		}
	}
	names := make([]string, 0, len(involvement))
	for name := range involvement {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(involvement[names[i]]) != len(involvement[names[j]]) {
			return len(involvement[names[i]]) > len(involvement[names[j]])
		}
		return names[i] < names[j]
	})
	for i, name := range names {
		if i == PerGroupCap {
			block.AddEntry("", "ITEM STAKEHOLDERS", fmt.Sprintf("  ... and %d more", len(names)-PerGroupCap))
			break
		}
		titles := involvement[name]
		block.AddEntry("", "ITEM STAKEHOLDERS", fmt.Sprintf("- %s: %s (%s)",
			name, plural(len(titles), "open item", "open items"), excerpt(strings.Join(titles, "; "), 160)))
	}

	if block.IsEmpty() {
		return nil, nil
	}
	return block, nil
}

type workload struct {
	name     string
	open     int
	overdue  int
	highRisk int
	urgent   int
	blocked  int
}

// Resources reports open workload per assignee and flags overloaded people
func (s *Set) Resources(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	items, err := s.openItems(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	loads := make(map[string]*workload)
	unassigned := 0
	for _, item := range items {
		name := item.Assignee()
		if name == "" {
			unassigned++
			continue
		}
		w, ok := loads[name]
		if !ok {
			w = &workload{name: name}
			loads[name] = w
		}
		w.open++
		if item.IsOverdue(req.Now) {
			w.overdue++
		}
		if item.IsHighRisk() {
			w.highRisk++
		}
		if item.Priority == domain.PriorityUrgent {
			w.urgent++
		}
		if item.Blocked {
			w.blocked++
		}
	}

	ordered := make([]*workload, 0, len(loads))
	assigned := 0
	for _, w := range loads {
		ordered = append(ordered, w)
		assigned += w.open
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].open != ordered[j].open {
			return ordered[i].open > ordered[j].open
		}
		return ordered[i].name < ordered[j].name
	})

	block := domain.NewContextBlock("resource", "WORKLOAD BY ASSIGNEE")
	block.AddLine(fmt.Sprintf("%s across %s; %d unassigned.",
		plural(len(items), "open item", "open items"), plural(len(ordered), "assignee", "assignees"), unassigned))

	mean := 0.0
	if len(ordered) > 0 {
		mean = float64(assigned) / float64(len(ordered))
	}
	for i, w := range ordered {
		if i == PerGroupCap {
			block.AddLine(fmt.Sprintf("  ... and %d more", len(ordered)-PerGroupCap))
			break
		}
		line := fmt.Sprintf("- %s: %d open, %d overdue, %d high-risk, %d urgent, %d blocked",
			w.name, w.open, w.overdue, w.highRisk, w.urgent, w.blocked)
		if len(ordered) > 1 && float64(w.open) > mean*overloadFactor {
			line += " (OVERLOADED)"
		}
		block.AddLine(line)
	}
	return block, nil
}
