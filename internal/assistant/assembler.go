// Package assistant assembles bounded prompt context from the category
// retrievers and hands it to the generation gateway.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/cloo-solutions/taskpilot/internal/intent"
	"github.com/cloo-solutions/taskpilot/internal/retrieval"
	"github.com/cloo-solutions/taskpilot/internal/telemetry"
)

const (
	// DefaultBudget is the context size ceiling in sizer units
	DefaultBudget = 16000
	// maxParallelRetrievers bounds concurrent store reads per request
	maxParallelRetrievers = 8
	blockSeparator        = "\n"
)

// NoDataBlock is appended when nothing else could be assembled
func NoDataBlock() *domain.ContextBlock {
	block := domain.NewContextBlock("no-data", "NO ACCESSIBLE DATA")
	block.AddLine("No accessible workspace data was found for this request.")
	block.AddLine("Tell the user that no matching data is available instead of guessing.")
	return block
}

// UnavailableBlock tells the generator which categories could not be loaded
func UnavailableBlock(labels []intent.Label) *domain.ContextBlock {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, string(l))
	}
	block := domain.NewContextBlock("unavailable", "UNAVAILABLE DATA")
	block.AddLine(fmt.Sprintf("Data for %s could not be loaded.", strings.Join(names, ", ")))
	block.AddLine("Tell the user this data is unavailable and do not infer it.")
	return block
}

// BlockSummary describes one appended block
type BlockSummary struct {
	Category       string `json:"category"`
	Title          string `json:"title"`
	Size           int    `json:"size"`
	Rank           int    `json:"rank"`
	Entries        int    `json:"entries"`
	DedupedEntries int    `json:"deduped_entries,omitempty"`
}

// Result is the outcome of one assembly
type Result struct {
	Text    string
	Intents []intent.Label
	Blocks  []BlockSummary
	// Dropped lists categories cut by the size budget
	Dropped []intent.Label
	// Skipped lists categories omitted because earlier blocks covered them
	Skipped []intent.Label
	// Failed lists categories whose retriever errored or panicked
	Failed []intent.Label
	Used   int
	Unit   string
}

// Assembler runs the classifiers and the retrievers and joins their blocks in
// priority order under a size budget.
type Assembler struct {
	retrievers map[intent.Label]retrieval.Retriever
	rules      []Rule
	sizer      Sizer
	budget     int
	parallel   bool
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures an Assembler
type Option func(*Assembler)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithSizer sets how blocks are measured
func WithSizer(sizer Sizer) Option {
	return func(a *Assembler) {
		if sizer != nil {
			a.sizer = sizer
		}
	}
}

// WithBudget sets the size ceiling. Zero or less disables the ceiling.
func WithBudget(budget int) Option {
	return func(a *Assembler) {
		a.budget = budget
	}
}

// WithRules replaces the priority table
func WithRules(rules []Rule) Option {
	return func(a *Assembler) {
		a.rules = rules
	}
}

// WithParallel toggles concurrent retrieval
func WithParallel(parallel bool) Option {
	return func(a *Assembler) {
		a.parallel = parallel
	}
}

// WithClock sets the time source handed to retrievers
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAssembler creates an Assembler over a retriever registry
func NewAssembler(retrievers map[intent.Label]retrieval.Retriever, opts ...Option) *Assembler {
	a := &Assembler{
		retrievers: retrievers,
		rules:      DefaultRules,
		sizer:      CharSizer{},
		budget:     DefaultBudget,
		parallel:   true,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble returns the bounded context text for a prompt. It never returns an
// empty string; the only error is context cancellation.
func (a *Assembler) Assemble(ctx context.Context, prompt string, scope *domain.Scope) (string, error) {
	result, err := a.AssembleDetailed(ctx, prompt, scope)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

type outcome struct {
	block *domain.ContextBlock
	err   error
}

// AssembleDetailed is Assemble with the bookkeeping of what was kept and why
func (a *Assembler) AssembleDetailed(ctx context.Context, prompt string, scope *domain.Scope) (*Result, error) {
	attrs := telemetry.SpanAttributes{Operation: "assemble"}
	if scope != nil {
		attrs.UserID = scope.UserID
		attrs.TenantID = scope.PrimaryTenantID
	}
	ctx, span := telemetry.StartSpan(ctx, "assistant.Assemble", attrs)
	defer span.End()

	result := &Result{Unit: a.sizer.Unit()}
	if scope.IsEmpty() {
		a.logger.Info("assembling without scope")
		a.finish(result, []*domain.ContextBlock{NoDataBlock()})
		return result, nil
	}

	fired := intent.Fired(intent.Classify(prompt))
	result.Intents = fired.Labels()
	span.SetData("intents", result.Intents)

	req := retrieval.Request{
		Prompt: intent.Normalize(prompt),
		Raw:    prompt,
		Scope:  scope,
		Now:    a.now(),
	}

	outcomes, err := a.retrieveAll(ctx, req, fired)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	state := newAssembly(a.budget)
	for rank, rule := range a.rules {
		var out outcome
		switch {
		case rule.Fallback:
			if len(state.blocks) > 0 {
				continue
			}
			out = a.retrieve(ctx, rule.Label, req)
		case fired.Has(rule.Label):
			out = outcomes[rule.Label]
		default:
			continue
		}
		a.consider(state, result, rank, rule, out)
	}

	if err := ctx.Err(); err != nil {
		span.SetError(err)
		return nil, err
	}
	if len(state.blocks) == 0 {
		a.appendNotice(state, result, NoDataBlock())
	}
	if len(result.Failed) > 0 && !a.appendNotice(state, result, UnavailableBlock(result.Failed)) {
		a.logger.Debug("unavailable data notice dropped by budget",
			zap.Int("failed", len(result.Failed)))
	}
	a.finish(result, state.blocks)
	span.SetData("used", result.Used)
	return result, nil
}

// assembly tracks the blocks accepted so far
type assembly struct {
	blocks      []*domain.ContextBlock
	contributed map[intent.Label]struct{}
	covered     map[string]map[string]struct{}
	used        int
	budget      int
	overflowed  bool
}

func newAssembly(budget int) *assembly {
	return &assembly{
		contributed: make(map[intent.Label]struct{}),
		covered:     make(map[string]map[string]struct{}),
		budget:      budget,
	}
}

func (s *assembly) anyContributed(labels []intent.Label) bool {
	for _, l := range labels {
		if _, ok := s.contributed[l]; ok {
			return true
		}
	}
	return false
}

// consider applies supersession, dedup and budget to one retriever outcome
func (a *Assembler) consider(state *assembly, result *Result, rank int, rule Rule, out outcome) {
	if out.err != nil {
		result.Failed = append(result.Failed, rule.Label)
		return
	}
	block := out.block
	if block.IsEmpty() {
		return
	}

	if state.anyContributed(rule.SkipIf) {
		result.Skipped = append(result.Skipped, rule.Label)
		return
	}
	if state.anyContributed(rule.TrimEntriesIf) {
		trimmed := *block
		trimmed.Entries = nil
		block = &trimmed
		if block.IsEmpty() {
			result.Skipped = append(result.Skipped, rule.Label)
			return
		}
	}

	deduped := 0
	if rule.Group != "" && len(block.Entries) > 0 {
		hadEntries := len(block.Entries)
		block, deduped = block.WithoutEntities(state.covered[rule.Group])
		if deduped == hadEntries {
			a.logger.Debug("block fully covered by earlier blocks",
				zap.String("category", string(rule.Label)),
				zap.String("group", rule.Group))
			result.Skipped = append(result.Skipped, rule.Label)
			return
		}
	}

	text := block.Render()
	size := a.sizer.Size(text)
	if len(state.blocks) > 0 {
		size += a.sizer.Size(blockSeparator)
	}

	if state.overflowed && !rule.AlwaysAttempt {
		result.Dropped = append(result.Dropped, rule.Label)
		return
	}
	if state.budget > 0 && state.used+size > state.budget {
		a.logger.Debug("block dropped by budget",
			zap.String("category", string(rule.Label)),
			zap.Int("size", size),
			zap.Int("used", state.used),
			zap.Int("budget", state.budget))
		result.Dropped = append(result.Dropped, rule.Label)
		if !rule.AlwaysAttempt {
			state.overflowed = true
		}
		return
	}

	block.Rank = rank
	state.blocks = append(state.blocks, block)
	state.used += size
	state.contributed[rule.Label] = struct{}{}
	if rule.Group != "" {
		covered := state.covered[rule.Group]
		if covered == nil {
			covered = make(map[string]struct{})
			state.covered[rule.Group] = covered
		}
		for _, id := range block.EntityIDs() {
			covered[id] = struct{}{}
		}
	}
	result.Blocks = append(result.Blocks, BlockSummary{
		Category:       string(rule.Label),
		Title:          block.Title,
		Size:           size,
		Rank:           rank,
		Entries:        len(block.Entries),
		DedupedEntries: deduped,
	})
}

// appendNotice appends a block written by the assembler itself, ranked after
// every rule. It is always appended to an empty assembly and otherwise only
// when it fits the budget.
func (a *Assembler) appendNotice(state *assembly, result *Result, block *domain.ContextBlock) bool {
	size := a.sizer.Size(block.Render())
	if len(state.blocks) > 0 {
		size += a.sizer.Size(blockSeparator)
		if state.budget > 0 && state.used+size > state.budget {
			return false
		}
	}
	block.Rank = len(a.rules)
	state.blocks = append(state.blocks, block)
	state.used += size
	result.Blocks = append(result.Blocks, BlockSummary{
		Category: block.Category,
		Title:    block.Title,
		Size:     size,
		Rank:     block.Rank,
		Entries:  len(block.Entries),
	})
	return true
}

func (a *Assembler) finish(result *Result, blocks []*domain.ContextBlock) {
	rendered := make([]string, 0, len(blocks))
	for _, b := range blocks {
		rendered = append(rendered, b.Render())
	}
	result.Text = strings.Join(rendered, blockSeparator)
	result.Used = a.sizer.Size(result.Text)
	if len(result.Blocks) == 0 {
		for _, b := range blocks {
			result.Blocks = append(result.Blocks, BlockSummary{
				Category: b.Category,
				Title:    b.Title,
				Size:     a.sizer.Size(b.Render()),
				Rank:     b.Rank,
				Entries:  len(b.Entries),
			})
		}
	}
}

// retrieveAll runs the retriever of every fired, non-fallback rule
func (a *Assembler) retrieveAll(ctx context.Context, req retrieval.Request, fired intent.Set) (map[intent.Label]outcome, error) {
	labels := make([]intent.Label, 0, len(a.rules))
	for _, rule := range a.rules {
		if !rule.Fallback && fired.Has(rule.Label) {
			labels = append(labels, rule.Label)
		}
	}

	results := make([]outcome, len(labels))
	if a.parallel && len(labels) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxParallelRetrievers)
		for i, label := range labels {
			g.Go(func() error {
				results[i] = a.retrieve(gctx, label, req)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, label := range labels {
			results[i] = a.retrieve(ctx, label, req)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[intent.Label]outcome, len(labels))
	for i, label := range labels {
		out[label] = results[i]
	}
	return out, nil
}

// retrieve runs one retriever, containing its errors and panics
func (a *Assembler) retrieve(ctx context.Context, label intent.Label, req retrieval.Request) (out outcome) {
	r, ok := a.retrievers[label]
	if !ok {
		return outcome{}
	}

	ctx, span := telemetry.StartSpan(ctx, "retrieval."+string(label), telemetry.SpanAttributes{
		UserID:    req.Scope.UserID,
		Category:  string(label),
		Operation: "retrieve",
	})
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("retriever panicked: %v", p)
			a.logger.Warn("retriever panicked",
				zap.String("category", string(label)),
				zap.Any("panic", p))
			span.SetError(err)
			out = outcome{err: err}
		}
	}()

	block, err := r.Retrieve(ctx, req)
	if err != nil {
		a.logger.Warn("retriever failed",
			zap.String("category", string(label)),
			zap.String("user_id", req.Scope.UserID),
			zap.Error(err))
		span.SetError(err)
		return outcome{err: err}
	}
	return outcome{block: block}
}
