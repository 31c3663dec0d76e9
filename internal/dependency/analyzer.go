// Package dependency walks predecessor chains of work items and scores each
// link to find the most likely bottleneck.
package dependency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/cloo-solutions/taskpilot/internal/telemetry"
	"go.uber.org/zap"
)

// DefaultMaxDepth bounds chain walks on malformed or runaway data
const DefaultMaxDepth = 10

// Signal weights. All signals are additive.
const (
	WeightNotCompleted = 3
	WeightHighRisk     = 2
	WeightLowProgress  = 2
	WeightOverdue      = 3
	WeightBlocked      = 4
	WeightUnassigned   = 1
)

// Reasons reported for each triggered signal
const (
	ReasonNotCompleted = "not completed"
	ReasonHighRisk     = "high risk"
	ReasonLowProgress  = "progress below 50%"
	ReasonOverdue      = "overdue"
	ReasonBlocked      = "blocked"
	ReasonUnassigned   = "unassigned"
)

// WorkItemLookup resolves predecessor references
type WorkItemLookup interface {
	WorkItemByID(ctx context.Context, id string) (*domain.WorkItem, error)
}

// Score is the bottleneck assessment for one item in a chain
type Score struct {
	Item     *domain.WorkItem
	Position int
	Score    int
	Reasons  []string
}

// Analyzer walks predecessor chains
type Analyzer struct {
	lookup WorkItemLookup
	logger *zap.Logger
	now    func() time.Time
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger used for data-quality warnings
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the time source used for overdue checks
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAnalyzer creates a new Analyzer instance
func NewAnalyzer(lookup WorkItemLookup, opts ...Option) *Analyzer {
	a := &Analyzer{
		lookup: lookup,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ChainFor returns the predecessor chain of target ordered from the root
// predecessor to target itself. The walk follows the designated blocker
// reference and stops after maxDepth hops, on a revisited item, or on a
// dangling reference. The result never exceeds maxDepth+1 items.
func (a *Analyzer) ChainFor(ctx context.Context, target *domain.WorkItem, maxDepth int) ([]*domain.WorkItem, error) {
	if target == nil {
		return nil, domain.ErrWorkItemNotFound
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	ctx, span := telemetry.StartSpan(ctx, "dependency.ChainFor", telemetry.SpanAttributes{
		TenantID:   target.TenantID,
		WorkItemID: target.ID,
		Operation:  "chain",
	})
	defer span.End()

	chain := []*domain.WorkItem{target}
	visited := map[string]struct{}{target.ID: {}}
	current := target

	for depth := 0; ; depth++ {
		next := current.Blocker()
		if next == "" {
			break
		}
		if depth >= maxDepth {
			a.logger.Warn("dependency chain truncated at depth cap",
				zap.String("work_item_id", target.ID),
				zap.Int("max_depth", maxDepth))
			break
		}
		if _, seen := visited[next]; seen {
			a.logger.Warn("dependency cycle detected",
				zap.String("work_item_id", target.ID),
				zap.String("revisited_id", next))
			break
		}

		pred, err := a.lookup.WorkItemByID(ctx, next)
		if err != nil {
			if errors.Is(err, domain.ErrWorkItemNotFound) || errors.Is(err, domain.ErrOutOfScope) {
				a.logger.Warn("dangling predecessor reference",
					zap.String("work_item_id", current.ID),
					zap.String("predecessor_id", next))
				break
			}
			span.SetError(err)
			return nil, fmt.Errorf("failed to load predecessor %s: %w", next, err)
		}

		visited[next] = struct{}{}
		chain = append([]*domain.WorkItem{pred}, chain...)
		current = pred
	}

	return chain, nil
}

// ScoreItem accumulates the weighted bottleneck signals for one item
func ScoreItem(item *domain.WorkItem, now time.Time) (int, []string) {
	score := 0
	reasons := []string{}

	if !item.IsCompleted() {
		score += WeightNotCompleted
		reasons = append(reasons, ReasonNotCompleted)
	}
	if item.IsHighRisk() {
		score += WeightHighRisk
		reasons = append(reasons, ReasonHighRisk)
	}
	if item.Progress < 50 {
		score += WeightLowProgress
		reasons = append(reasons, ReasonLowProgress)
	}
	if item.IsOverdue(now) {
		score += WeightOverdue
		reasons = append(reasons, ReasonOverdue)
	}
	if item.Blocked {
		score += WeightBlocked
		reasons = append(reasons, ReasonBlocked)
	}
	if item.IsUnassigned() {
		score += WeightUnassigned
		reasons = append(reasons, ReasonUnassigned)
	}

	return score, reasons
}

// ScoreChain scores every item of the chain in order
func (a *Analyzer) ScoreChain(chain []*domain.WorkItem) []Score {
	now := a.now()
	scores := make([]Score, 0, len(chain))
	for i, item := range chain {
		if item == nil {
			continue
		}
		score, reasons := ScoreItem(item, now)
		scores = append(scores, Score{Item: item, Position: i, Score: score, Reasons: reasons})
	}
	return scores
}

// BottleneckOf returns the highest-scoring item of the chain. Ties go to the
// item closest to the root. It returns false for an empty chain.
func (a *Analyzer) BottleneckOf(chain []*domain.WorkItem) (Score, bool) {
	var best Score
	found := false
	for _, s := range a.ScoreChain(chain) {
		if !found || s.Score > best.Score {
			best = s
			found = true
		}
	}
	return best, found
}
