package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/taskpilot/internal/domain"
)

const (
	// CriticalAIRiskThreshold is the AI risk score at which an item counts as critical
	CriticalAIRiskThreshold = 80
	// MitigationAIRiskThreshold is the AI risk score at which an item is worth mitigating
	MitigationAIRiskThreshold = 70
)

var criticalLabelFragments = []string{"critical", "blocker"}

// CriticalReason names the first criterion that marks an item critical, or ""
// when none applies. The criteria are independent: critical risk level, high
// risk level, urgent priority, AI risk score >= 80, a critical/blocker label.
func CriticalReason(item *domain.WorkItem) string {
	switch {
	case item.RiskLevel == domain.RiskLevelCritical:
		return "CRITICAL RISK"
	case item.RiskLevel == domain.RiskLevelHigh:
		return "HIGH RISK"
	case item.Priority == domain.PriorityUrgent:
		return "URGENT PRIORITY"
	case item.AIRiskAtLeast(CriticalAIRiskThreshold):
		return "AI RISK SCORE 80+"
	case item.HasLabelContaining(criticalLabelFragments...):
		return "LABELLED CRITICAL OR BLOCKER"
	}
	return ""
}

var criticalSectionOrder = []string{
	"CRITICAL RISK", "HIGH RISK", "URGENT PRIORITY", "AI RISK SCORE 80+", "LABELLED CRITICAL OR BLOCKER",
}

// CriticalItems returns the items satisfying at least one critical criterion,
// preserving input order.
func CriticalItems(items []*domain.WorkItem) []*domain.WorkItem {
	out := make([]*domain.WorkItem, 0)
	for _, item := range items {
		if CriticalReason(item) != "" {
			out = append(out, item)
		}
	}
	return out
}

// WorthMitigating reports whether an item's stakes justify listing its mitigations
func WorthMitigating(item *domain.WorkItem) bool {
	return item.IsHighRisk() ||
		item.AIRiskAtLeast(MitigationAIRiskThreshold) ||
		item.Priority == domain.PriorityUrgent
}

// Critical lists open items flagged critical by any criterion
func (s *Set) Critical(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	items, err := s.openItems(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	critical := CriticalItems(items)
	block := domain.NewContextBlock("critical", "CRITICAL WORK ITEMS")
	if len(critical) == 0 {
		block.AddLine("No open work items are flagged critical, high risk, urgent or as blockers.")
		return block, nil
	}

	sortByRisk(critical)
	block.AddLine(fmt.Sprintf("%s flagged critical:", plural(len(critical), "open item is", "open items are")))
	addCappedGroups(block, groupItems(critical, criticalSectionOrder, CriticalReason), func(item *domain.WorkItem) string {
		line := itemLine(item, req.Now)
		if risk := riskDetails(item); risk != "" {
			line += "\n" + risk
		}
		return line
	})
	return block, nil
}

// Mitigation lists every recorded mitigation strategy for items worth
// mitigating, grouped by risk level
func (s *Set) Mitigation(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	items, err := s.openItems(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	worth := make([]*domain.WorkItem, 0)
	for _, item := range items {
		if WorthMitigating(item) {
			worth = append(worth, item)
		}
	}

	block := domain.NewContextBlock("mitigation", "RISK MITIGATION STRATEGIES")
	if len(worth) == 0 {
		block.AddLine("No open work items are high risk, urgent or scored 70+ by AI, so no mitigation strategies are listed.")
		return block, nil
	}

	sortByRisk(worth)
	withStrategies := 0
	for _, item := range worth {
		if len(item.Mitigations) > 0 {
			withStrategies++
		}
	}
	block.AddLine(fmt.Sprintf("%s need risk attention, %d with recorded mitigation strategies.",
		plural(len(worth), "item", "items"), withStrategies))
	addCappedGroups(block, groupItems(worth, riskSectionOrder(), riskSection), func(item *domain.WorkItem) string {
		return mitigationEntry(item, req)
	})
	return block, nil
}

func mitigationEntry(item *domain.WorkItem, req Request) string {
	var sb strings.Builder
	sb.WriteString(itemLine(item, req.Now))
	if risk := riskDetails(item); risk != "" {
		sb.WriteString("\n")
		sb.WriteString(risk)
	}
	if len(item.Mitigations) == 0 {
		sb.WriteString("\n  (no mitigation strategies recorded)")
		return sb.String()
	}
	sb.WriteString("\n  Mitigation strategies:")
	for i, m := range item.Mitigations {
		fmt.Fprintf(&sb, "\n    %d. %s", i+1, m)
	}
	return sb.String()
}

// GeneralRisk lists open items carrying any risk data, grouped by risk level
func (s *Set) GeneralRisk(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	items, err := s.openItems(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	rated := make([]*domain.WorkItem, 0)
	for _, item := range items {
		if item.HasRiskData() {
			rated = append(rated, item)
		}
	}

	block := domain.NewContextBlock("general-risk", "RISK OVERVIEW")
	if len(rated) == 0 {
		block.AddLine("No open work items carry risk ratings.")
		return block, nil
	}

	sortByRisk(rated)
	counts := countBy(rated, riskSection)
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s %d", strings.ToLower(c.key), c.n))
	}
	block.AddLine(fmt.Sprintf("%s with risk data: %s.", plural(len(rated), "open item", "open items"), strings.Join(parts, ", ")))
	addCappedGroups(block, groupItems(rated, riskSectionOrder(), riskSection), func(item *domain.WorkItem) string {
		line := itemLine(item, req.Now)
		if risk := riskDetails(item); risk != "" {
			line += "\n" + risk
		}
		return line
	})
	return block, nil
}
