// Package retrieval holds the category retrievers. Each retriever reads a
// scoped slice of the entity store and renders it into a bounded ContextBlock.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/taskpilot/internal/dependency"
	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/cloo-solutions/taskpilot/internal/fuzzy"
	"github.com/cloo-solutions/taskpilot/internal/intent"
)

// PerGroupCap bounds the entries rendered under one section header
const PerGroupCap = 10

// Store is the read contract of the entity store. Implementations must not
// return entities outside the IDs passed in filters.
type Store interface {
	TenantByID(ctx context.Context, id string) (*domain.Tenant, error)
	TenantsForWorkspaces(ctx context.Context, workspaceIDs []string) ([]*domain.Tenant, error)
	TenantsForUser(ctx context.Context, userID string) ([]*domain.Tenant, error)
	Workspaces(ctx context.Context, ids []string) ([]*domain.Workspace, error)
	WorkItems(ctx context.Context, filter domain.WorkItemFilter) ([]*domain.WorkItem, error)
	WorkItemByID(ctx context.Context, id string) (*domain.WorkItem, error)
	Meetings(ctx context.Context, filter domain.MeetingFilter) ([]*domain.Meeting, error)
	DocPages(ctx context.Context, filter domain.DocPageFilter) ([]*domain.DocPage, error)
}

// ScopeLoader resolves what a user may see
type ScopeLoader interface {
	LoadScope(ctx context.Context, userID string) (*domain.Scope, error)
}

// DocSearcher finds documentation pages semantically related to a query
type DocSearcher interface {
	SearchDocs(ctx context.Context, tenantIDs []string, query string, limit int) ([]*domain.DocPage, error)
}

// BodyLoader fetches documentation bodies kept outside the database
type BodyLoader interface {
	LoadBody(ctx context.Context, key string) (string, error)
}

// Request is the input shared by every retriever
type Request struct {
	// Prompt is the normalized prompt as produced by intent.Normalize
	Prompt string
	// Raw is the prompt as the user typed it
	Raw   string
	Scope *domain.Scope
	Now   time.Time
}

// Retriever produces the context block for one category. A nil block means
// nothing relevant was found.
type Retriever interface {
	Retrieve(ctx context.Context, req Request) (*domain.ContextBlock, error)
}

// Func adapts a function to the Retriever interface
type Func func(ctx context.Context, req Request) (*domain.ContextBlock, error)

// Retrieve calls f
func (f Func) Retrieve(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	return f(ctx, req)
}

// Config tunes retriever behavior
type Config struct {
	MaxChainDepth         int
	FuzzyThreshold        float64
	MeetingFuzzyThreshold float64
}

// DefaultConfig returns the default retriever configuration.
func DefaultConfig() Config {
	return Config{
		MaxChainDepth:         dependency.DefaultMaxDepth,
		FuzzyThreshold:        fuzzy.DefaultThreshold,
		MeetingFuzzyThreshold: fuzzy.MeetingThreshold,
	}
}

// Deps are the collaborators retrievers read from. Docs and Bodies are optional.
type Deps struct {
	Store  Store
	Docs   DocSearcher
	Bodies BodyLoader
	Logger *zap.Logger
	Config Config
}

// Set builds every retriever over shared dependencies
type Set struct {
	store  Store
	docs   DocSearcher
	bodies BodyLoader
	logger *zap.Logger
	cfg    Config
}

// NewSet creates the retriever set
func NewSet(deps Deps) *Set {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config
	if cfg.MaxChainDepth <= 0 {
		cfg.MaxChainDepth = dependency.DefaultMaxDepth
	}
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = fuzzy.DefaultThreshold
	}
	if cfg.MeetingFuzzyThreshold <= 0 {
		cfg.MeetingFuzzyThreshold = fuzzy.MeetingThreshold
	}
	return &Set{
		store:  deps.Store,
		docs:   deps.Docs,
		bodies: deps.Bodies,
		logger: logger,
		cfg:    cfg,
	}
}

// Registry maps each category label to its retriever
func (s *Set) Registry() map[intent.Label]Retriever {
	return map[intent.Label]Retriever{
		intent.Tenant:           Func(s.Tenants),
		intent.TemporalMeeting:  Func(s.LatestMeeting),
		intent.Meeting:          Func(s.MeetingSearch),
		intent.OwnItems:         Func(s.OwnItems),
		intent.Incomplete:       Func(s.Incomplete),
		intent.Comparison:       Func(s.Comparison),
		intent.Distribution:     Func(s.Distribution),
		intent.Progress:         Func(s.Progress),
		intent.Overdue:          Func(s.Overdue),
		intent.Mitigation:       Func(s.Mitigation),
		intent.Critical:         Func(s.Critical),
		intent.Aggregate:        Func(s.Aggregate),
		intent.GeneralRisk:      Func(s.GeneralRisk),
		intent.Stakeholder:      Func(s.Stakeholders),
		intent.Resource:         Func(s.Resources),
		intent.Process:          Func(s.Process),
		intent.Dependency:       Func(s.Dependencies),
		intent.GeneralWorkspace: Func(s.WorkspaceOverview),
		intent.Template:         Func(s.Templates),
		intent.Documentation:    Func(s.Documentation),
		intent.External:         Func(s.External),
	}
}

// openItems loads the incomplete work items visible to the request
func (s *Set) openItems(ctx context.Context, req Request) ([]*domain.WorkItem, error) {
	return s.items(ctx, req, domain.WorkItemFilter{})
}

// allItems loads every visible work item including completed ones
func (s *Set) allItems(ctx context.Context, req Request) ([]*domain.WorkItem, error) {
	return s.items(ctx, req, domain.WorkItemFilter{IncludeCompleted: true})
}

func (s *Set) items(ctx context.Context, req Request, filter domain.WorkItemFilter) ([]*domain.WorkItem, error) {
	if req.Scope.IsEmpty() || len(req.Scope.WorkspaceIDs) == 0 {
		return nil, nil
	}
	filter.WorkspaceIDs = req.Scope.WorkspaceIDs
	items, err := s.store.WorkItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load work items: %w", err)
	}
	if !filter.IncludeCompleted {
		open := items[:0:0]
		for _, item := range items {
			if !item.IsCompleted() {
				open = append(open, item)
			}
		}
		items = open
	}
	return items, nil
}

// ScopedLookup resolves work items by ID and rejects those outside scope
type ScopedLookup struct {
	Store Store
	Scope *domain.Scope
}

// WorkItemByID implements dependency.WorkItemLookup
func (l ScopedLookup) WorkItemByID(ctx context.Context, id string) (*domain.WorkItem, error) {
	item, err := l.Store.WorkItemByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Scope.IsEmpty() || !contains(l.Scope.WorkspaceIDs, item.WorkspaceID) {
		return nil, domain.ErrOutOfScope
	}
	return item, nil
}

// analyzer builds a dependency analyzer bound to the request's scope and clock
func (s *Set) analyzer(req Request) *dependency.Analyzer {
	now := req.Now
	return dependency.NewAnalyzer(
		ScopedLookup{Store: s.store, Scope: req.Scope},
		dependency.WithLogger(s.logger),
		dependency.WithClock(func() time.Time { return now }),
	)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
