package retrieval

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/taskpilot/internal/domain"
)

const dateLayout = "2006-01-02"

// itemLine renders a one-line summary of a work item. Absent optional fields
// are omitted rather than shown as blanks.
func itemLine(item *domain.WorkItem, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("- ")
	sb.WriteString(item.Title)
	if item.WorkspaceName != "" {
		sb.WriteString(" [")
		sb.WriteString(item.WorkspaceName)
		sb.WriteString("]")
	}

	details := make([]string, 0, 6)
	if item.Column != "" {
		details = append(details, "status: "+item.Column)
	}
	if item.Priority != domain.PriorityNone {
		details = append(details, "priority: "+string(item.Priority))
	}
	if item.RiskLevel != domain.RiskLevelNone {
		details = append(details, "risk: "+string(item.RiskLevel))
	}
	if item.Progress > 0 {
		details = append(details, fmt.Sprintf("progress: %d%%", item.Progress))
	}
	if item.DueDate != nil {
		due := "due " + item.DueDate.Format(dateLayout)
		if days := item.DaysOverdue(now); days > 0 {
			due += fmt.Sprintf(" (%d days overdue)", days)
		}
		details = append(details, due)
	}
	if assignee := item.Assignee(); assignee != "" {
		details = append(details, "assignee: "+assignee)
	} else {
		details = append(details, "unassigned")
	}
	if item.Blocked {
		blocked := "BLOCKED"
		if item.BlockedReason != "" {
			blocked += ": " + item.BlockedReason
		}
		details = append(details, blocked)
	}

	sb.WriteString(" (")
	sb.WriteString(strings.Join(details, ", "))
	sb.WriteString(")")
	return sb.String()
}

// riskDetails renders the numeric risk fields that are present
func riskDetails(item *domain.WorkItem) string {
	parts := make([]string, 0, 4)
	if item.RiskLikelihood != nil {
		parts = append(parts, fmt.Sprintf("likelihood %d", *item.RiskLikelihood))
	}
	if item.RiskImpact != nil {
		parts = append(parts, fmt.Sprintf("impact %d", *item.RiskImpact))
	}
	if item.RiskScore != nil {
		parts = append(parts, fmt.Sprintf("risk score %d", *item.RiskScore))
	}
	if item.AIRiskScore != nil {
		parts = append(parts, fmt.Sprintf("AI risk score %d", *item.AIRiskScore))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  Risk: " + strings.Join(parts, ", ")
}

// group is an ordered section of items
type group struct {
	name  string
	items []*domain.WorkItem
}

// groupItems buckets items by key, keeping the bucket order given by order.
// Keys not listed in order are appended after, sorted by name.
func groupItems(items []*domain.WorkItem, order []string, key func(*domain.WorkItem) string) []group {
	buckets := make(map[string][]*domain.WorkItem)
	for _, item := range items {
		k := key(item)
		buckets[k] = append(buckets[k], item)
	}

	groups := make([]group, 0, len(buckets))
	seen := make(map[string]struct{}, len(order))
	for _, name := range order {
		seen[name] = struct{}{}
		if len(buckets[name]) > 0 {
			groups = append(groups, group{name: name, items: buckets[name]})
		}
	}
	extra := make([]string, 0)
	for name := range buckets {
		if _, ok := seen[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		groups = append(groups, group{name: name, items: buckets[name]})
	}
	return groups
}

// addCappedGroups writes each group as a section, capping entries per group
func addCappedGroups(block *domain.ContextBlock, groups []group, render func(*domain.WorkItem) string) {
	for _, g := range groups {
		for i, item := range g.items {
			if i == PerGroupCap {
				block.AddEntry("", g.name, fmt.Sprintf("  ... and %d more", len(g.items)-PerGroupCap))
				break
			}
			block.AddEntry(item.ID, g.name, render(item))
		}
	}
}

// riskSection maps a risk level to its section header
func riskSection(item *domain.WorkItem) string {
	if item.RiskLevel == domain.RiskLevelNone {
		return "UNRATED"
	}
	return strings.ToUpper(string(item.RiskLevel))
}

func riskSectionOrder() []string {
	order := make([]string, 0, len(domain.RiskLevelsBySeverity)+1)
	for _, level := range domain.RiskLevelsBySeverity {
		order = append(order, strings.ToUpper(string(level)))
	}
	return append(order, "UNRATED")
}

func prioritySection(item *domain.WorkItem) string {
	if item.Priority == domain.PriorityNone {
		return "NO PRIORITY"
	}
	return strings.ToUpper(string(item.Priority)) + " PRIORITY"
}

func prioritySectionOrder() []string {
	order := make([]string, 0, len(domain.PrioritiesByUrgency)+1)
	for _, p := range domain.PrioritiesByUrgency {
		order = append(order, strings.ToUpper(string(p))+" PRIORITY")
	}
	return append(order, "NO PRIORITY")
}

// sortByUrgency orders by priority, then earliest due date, then most recently updated
func sortByUrgency(items []*domain.WorkItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if (a.DueDate == nil) != (b.DueDate == nil) {
			return a.DueDate != nil
		}
		if a.DueDate != nil && !a.DueDate.Equal(*b.DueDate) {
			return a.DueDate.Before(*b.DueDate)
		}
		return a.UpdatedAt.After(b.UpdatedAt)
	})
}

// sortByRisk orders by AI risk score, then risk score, then most recently updated
func sortByRisk(items []*domain.WorkItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if va, vb := intOr(a.AIRiskScore, -1), intOr(b.AIRiskScore, -1); va != vb {
			return va > vb
		}
		if va, vb := intOr(a.RiskScore, -1), intOr(b.RiskScore, -1); va != vb {
			return va > vb
		}
		return a.UpdatedAt.After(b.UpdatedAt)
	})
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

// excerpt trims text to at most limit runes, cutting at a word boundary
func excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:limit])
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > limit/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "..."
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return part * 100 / total
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, pluralForm)
}
