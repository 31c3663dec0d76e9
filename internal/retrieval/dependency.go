package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/taskpilot/internal/dependency"
	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/cloo-solutions/taskpilot/internal/fuzzy"
)

// maxListedChains bounds the chains rendered when no item is named
const maxListedChains = 5

// Dependencies renders the predecessor chain and bottleneck of the item named
// in the prompt, or of the blocked and predecessor-bearing items when none is named.
func (s *Set) Dependencies(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	items, err := s.openItems(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	analyzer := s.analyzer(req)
	block := domain.NewContextBlock("dependency", "DEPENDENCY CHAINS")

	if target := s.namedItem(req.Prompt, items); target != nil {
		text, err := s.renderChain(ctx, analyzer, target, req.Now)
		if err != nil {
			return nil, err
		}
		block.AddEntry(target.ID, "", text)
		return block, nil
	}

	targets := make([]*domain.WorkItem, 0)
	for _, item := range items {
		if item.Blocker() != "" {
			targets = append(targets, item)
		}
	}
	if len(targets) == 0 {
		block.AddLine("No open work items have predecessors or parent dependencies.")
		return block, nil
	}
	sortByUrgency(targets)

	block.AddLine(fmt.Sprintf("%s depend on other work:", plural(len(targets), "open item", "open items")))
	for i, target := range targets {
		if i == maxListedChains {
			block.AddFooter(fmt.Sprintf("... and %d more dependent items", len(targets)-maxListedChains))
			break
		}
		text, err := s.renderChain(ctx, analyzer, target, req.Now)
		if err != nil {
			return nil, err
		}
		block.AddEntry(target.ID, "", text)
	}
	return block, nil
}

// namedItem finds the work item whose title appears in the prompt, falling
// back to the best fuzzy match of the text after a dependency keyword.
func (s *Set) namedItem(prompt string, items []*domain.WorkItem) *domain.WorkItem {
	var best *domain.WorkItem
	for _, item := range items {
		title := strings.ToLower(strings.TrimSpace(item.Title))
		if title == "" || !strings.Contains(prompt, title) {
			continue
		}
		if best == nil || len(item.Title) > len(best.Title) {
			best = item
		}
	}
	if best != nil {
		return best
	}

	subject := dependencySubject(prompt)
	if subject == "" {
		return nil
	}
	match, ok := fuzzy.Best(subject, items, func(w *domain.WorkItem) string { return w.Title }, s.cfg.FuzzyThreshold)
	if !ok {
		return nil
	}
	return match.Candidate
}

var dependencyMarkers = []string{
	"depends on", "depend on", "blocking", "blocked by", "dependencies of", "dependencies for",
	"dependency chain for", "chain for", "predecessors of", "waiting on", "prerequisites for",
}

func dependencySubject(prompt string) string {
	for _, marker := range dependencyMarkers {
		if idx := strings.Index(prompt, marker); idx >= 0 {
			subject := strings.TrimSpace(prompt[idx+len(marker):])
			subject = strings.TrimPrefix(subject, "the ")
			return strings.Trim(subject, "?!.,;:\" ")
		}
	}
	return ""
}

func (s *Set) renderChain(ctx context.Context, analyzer *dependency.Analyzer, target *domain.WorkItem, now time.Time) (string, error) {
	chain, err := analyzer.ChainFor(ctx, target, s.cfg.MaxChainDepth)
	if err != nil {
		return "", fmt.Errorf("failed to build chain for %s: %w", target.ID, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Chain for %q (%s, root first):\n", target.Title, plural(len(chain), "item", "items"))
	for i, item := range chain {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, strings.TrimPrefix(itemLine(item, now), "- "))
	}
	if bottleneck, ok := analyzer.BottleneckOf(chain); ok && bottleneck.Score > 0 {
		fmt.Fprintf(&sb, "  Bottleneck: %s (score %d: %s)\n",
			bottleneck.Item.Title, bottleneck.Score, strings.Join(bottleneck.Reasons, ", "))
	}
	return sb.String(), nil
}
