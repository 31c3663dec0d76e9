package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/taskpilot/internal/dependency"
	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/cloo-solutions/taskpilot/internal/intent"
	"github.com/cloo-solutions/taskpilot/internal/retrieval"
	"github.com/cloo-solutions/taskpilot/internal/telemetry"
)

// MaxHistory is the number of earlier turns forwarded to the gateway
const MaxHistory = 10

// SystemInstructions frame the assembled context for the generator
const SystemInstructions = `You are a project assistant for a task management workspace.
Answer using the workspace context below. Quote names, dates and numbers exactly as given.
If the context says no data is available, say so plainly instead of guessing.
Label anything that comes from general knowledge rather than the workspace.`

// Gateway produces the assistant's reply from the framed context
type Gateway interface {
	Generate(ctx context.Context, system string, history []domain.ChatMessage, prompt string) (string, error)
}

// Answer is a generated reply with the context it was grounded on
type Answer struct {
	Text    string
	Context *Result
}

// ChainReport is a dependency chain with its bottleneck
type ChainReport struct {
	Chain      []*domain.WorkItem
	Scores     []dependency.Score
	Bottleneck *dependency.Score
}

// ServiceDeps are the collaborators of Service. Gateway may be nil.
type ServiceDeps struct {
	Assembler     *Assembler
	Gateway       Gateway
	Store         retrieval.Store
	Scopes        retrieval.ScopeLoader
	Logger        *zap.Logger
	MaxChainDepth int
}

// Service resolves the caller's scope and exposes assembly, generation and
// dependency analysis
type Service struct {
	assembler     *Assembler
	gateway       Gateway
	store         retrieval.Store
	scopes        retrieval.ScopeLoader
	logger        *zap.Logger
	maxChainDepth int
}

// NewService creates a new Service
func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	depth := deps.MaxChainDepth
	if depth <= 0 {
		depth = dependency.DefaultMaxDepth
	}
	return &Service{
		assembler:     deps.Assembler,
		gateway:       deps.Gateway,
		store:         deps.Store,
		scopes:        deps.Scopes,
		logger:        logger,
		maxChainDepth: depth,
	}
}

// HasGateway reports whether Ask can generate replies
func (s *Service) HasGateway() bool {
	return s.gateway != nil
}

// Scope resolves the visibility of a user. An unknown user yields an empty
// scope so assembly can still answer with the no-data block.
func (s *Service) Scope(ctx context.Context, userID string) (*domain.Scope, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	scope, err := s.scopes.LoadScope(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			s.logger.Info("unknown user, continuing without scope", zap.String("user_id", userID))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load scope: %w", err)
	}
	return scope, nil
}

// Context assembles the context for a prompt without generating a reply
func (s *Service) Context(ctx context.Context, userID, prompt string) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.ErrEmptyPrompt
	}
	scope, err := s.Scope(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.assembler.AssembleDetailed(ctx, prompt, scope)
}

// Ask assembles context and asks the gateway for a reply
func (s *Service) Ask(ctx context.Context, userID, prompt string, history []domain.ChatMessage) (*Answer, error) {
	if s.gateway == nil {
		return nil, domain.ErrGatewayDisabled
	}

	ctx, span := telemetry.StartSpan(ctx, "assistant.Ask", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "ask",
	})
	defer span.End()

	result, err := s.Context(ctx, userID, prompt)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	system := SystemInstructions + "\n\n" + result.Text
	text, err := s.gateway.Generate(ctx, system, TrimHistory(history), prompt)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	s.logger.Info("answered prompt",
		zap.String("user_id", userID),
		zap.Strings("intents", labelsToStrings(result.Intents)),
		zap.Int("context_size", result.Used),
		zap.String("unit", result.Unit))

	return &Answer{Text: text, Context: result}, nil
}

// Chain builds the predecessor chain of a visible work item and scores it
func (s *Service) Chain(ctx context.Context, userID, itemID string, maxDepth int) (*ChainReport, error) {
	scope, err := s.Scope(ctx, userID)
	if err != nil {
		return nil, err
	}
	if scope.IsEmpty() {
		return nil, domain.ErrNoScope
	}
	if maxDepth <= 0 {
		maxDepth = s.maxChainDepth
	}

	lookup := retrieval.ScopedLookup{Store: s.store, Scope: scope}
	target, err := lookup.WorkItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	analyzer := dependency.NewAnalyzer(lookup, dependency.WithLogger(s.logger))
	chain, err := analyzer.ChainFor(ctx, target, maxDepth)
	if err != nil {
		return nil, err
	}

	report := &ChainReport{Chain: chain, Scores: analyzer.ScoreChain(chain)}
	if bottleneck, ok := analyzer.BottleneckOf(chain); ok {
		report.Bottleneck = &bottleneck
	}
	return report, nil
}

// TrimHistory keeps the last MaxHistory turns
func TrimHistory(history []domain.ChatMessage) []domain.ChatMessage {
	if len(history) <= MaxHistory {
		return history
	}
	return history[len(history)-MaxHistory:]
}

func isNotFound(err error) bool {
	var domainErr *domain.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == domain.ErrCodeNotFound
}

func labelsToStrings(labels []intent.Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}
