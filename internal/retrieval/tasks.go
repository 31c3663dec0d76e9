package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cloo-solutions/taskpilot/internal/domain"
)

// OwnItems lists the open items assigned to the requesting user, grouped by priority
func (s *Set) OwnItems(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	if req.Scope.IsEmpty() || len(req.Scope.WorkspaceIDs) == 0 {
		return nil, nil
	}
	items, err := s.items(ctx, req, domain.WorkItemFilter{AssigneeID: req.Scope.UserID})
	if err != nil {
		return nil, err
	}

	block := domain.NewContextBlock("own-items", "YOUR WORK ITEMS")
	if len(items) == 0 {
		block.AddLine("You have no open work items assigned to you.")
		return block, nil
	}

	overdue := 0
	for _, item := range items {
		if item.IsOverdue(req.Now) {
			overdue++
		}
	}
	line := fmt.Sprintf("You have %s assigned to you", plural(len(items), "open item", "open items"))
	if overdue > 0 {
		line += fmt.Sprintf(", %d overdue", overdue)
	}
	block.AddLine(line + ".")

	sortByUrgency(items)
	addCappedGroups(block, groupItems(items, prioritySectionOrder(), prioritySection), func(item *domain.WorkItem) string {
		return itemLine(item, req.Now)
	})
	return block, nil
}

// Incomplete lists every open item in scope, grouped by workflow column
func (s *Set) Incomplete(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	items, err := s.openItems(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	workspaces := make(map[string]struct{})
	for _, item := range items {
		workspaces[item.WorkspaceID] = struct{}{}
	}

	block := domain.NewContextBlock("incomplete", "INCOMPLETE WORK ITEMS")
	block.AddLine(fmt.Sprintf("%s across %s.",
		plural(len(items), "incomplete item", "incomplete items"),
		plural(len(workspaces), "workspace", "workspaces")))

	sortByUrgency(items)
	addCappedGroups(block, groupItems(items, nil, columnSection), func(item *domain.WorkItem) string {
		return itemLine(item, req.Now)
	})
	return block, nil
}

// Overdue lists items past their due date, most overdue first, grouped by priority
func (s *Set) Overdue(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	items, err := s.openItems(ctx, req)
	if err != nil {
		return nil, err
	}

	overdue := make([]*domain.WorkItem, 0)
	for _, item := range items {
		if item.IsOverdue(req.Now) {
			overdue = append(overdue, item)
		}
	}

	block := domain.NewContextBlock("overdue", "OVERDUE WORK ITEMS")
	if len(overdue) == 0 {
		if len(items) == 0 {
			return nil, nil
		}
		block.AddLine("No open work items are past their due date.")
		return block, nil
	}

	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].DueDate.Before(*overdue[j].DueDate)
	})
	block.AddLine(fmt.Sprintf("%s past due.", plural(len(overdue), "item is", "items are")))
	addCappedGroups(block, groupItems(overdue, prioritySectionOrder(), prioritySection), func(item *domain.WorkItem) string {
		return itemLine(item, req.Now)
	})
	return block, nil
}

func columnSection(item *domain.WorkItem) string {
	if item.Column == "" {
		return "NO STATUS"
	}
	return strings.ToUpper(item.Column)
}
