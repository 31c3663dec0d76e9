package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/cloo-solutions/taskpilot/internal/fuzzy"
)

const (
	maxRenderedPages   = 3
	maxListedTemplates = 10
	pageExcerptLimit   = 1500
	docScanLimit       = 200
)

// docStopwords are prompt words that say nothing about which page is wanted
var docStopwords = map[string]struct{}{
	"what": {}, "where": {}, "which": {}, "when": {}, "does": {}, "have": {}, "with": {},
	"about": {}, "there": {}, "their": {}, "this": {}, "that": {}, "from": {}, "into": {},
	"show": {}, "find": {}, "tell": {}, "please": {}, "could": {}, "would": {}, "should": {},
	"documentation": {}, "docs": {}, "wiki": {}, "page": {}, "pages": {}, "guide": {},
	"template": {}, "templates": {}, "article": {}, "handbook": {}, "policy": {}, "procedure": {},
	"know": {}, "need": {}, "say": {}, "says": {}, "anything": {}, "some": {}, "them": {},
}

// Templates lists published pages categorised or tagged as templates
func (s *Set) Templates(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	pages, err := s.publishedPages(ctx, req)
	if err != nil {
		return nil, err
	}

	templates := make([]*domain.DocPage, 0)
	for _, p := range pages {
		if isTemplate(p) {
			templates = append(templates, p)
		}
	}
	if len(templates) == 0 {
		return nil, nil
	}

	ranked := rankPages(templates, promptKeywords(req.Prompt))
	block := domain.NewContextBlock("template", "TEMPLATES")
	block.AddLine(fmt.Sprintf("%s available:", plural(len(templates), "template is", "templates are")))
	for i, p := range ranked {
		if i == maxListedTemplates {
			block.AddFooter(fmt.Sprintf("... and %d more templates", len(ranked)-maxListedTemplates))
			break
		}
		if i == 0 {
			block.AddEntry(p.ID, "", s.renderPage(ctx, p))
			continue
		}
		block.AddEntry(p.ID, "", "- "+p.Title)
	}
	return block, nil
}

// Documentation finds pages related to the prompt. Title and tag keyword
// matches come first, then semantic search when configured, then fuzzy title
// suggestions.
func (s *Set) Documentation(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	pages, err := s.publishedPages(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 && s.docs == nil {
		return nil, nil
	}

	block := domain.NewContextBlock("documentation", "DOCUMENTATION")
	keywords := promptKeywords(req.Prompt)

	matched := make([]*domain.DocPage, 0)
	for _, p := range rankPages(pages, keywords) {
		if pageScore(p, keywords) == 0 {
			break
		}
		matched = append(matched, p)
	}

	if len(matched) == 0 && s.docs != nil && !req.Scope.IsEmpty() {
		found, err := s.docs.SearchDocs(ctx, req.Scope.TenantIDs, req.Raw, maxRenderedPages)
		if err != nil {
			s.logger.Warn("semantic documentation search failed", zap.Error(err))
		}
		matched = append(matched, found...)
	}

	if len(matched) > 0 {
		for i, p := range matched {
			if i == maxRenderedPages {
				break
			}
			block.AddEntry(p.ID, "", s.renderPage(ctx, p))
		}
		return block, nil
	}

	subject := docSubject(req.Prompt, keywords)
	if subject == "" {
		return nil, nil
	}
	similar := fuzzy.FindSimilar(subject, pages, func(p *domain.DocPage) string { return p.Title }, s.cfg.FuzzyThreshold)
	if len(similar) == 0 {
		return nil, nil
	}
	block.AddLine(fmt.Sprintf("No documentation page matches %q. Did you mean:", subject))
	for _, m := range similar {
		block.AddEntry(m.Candidate.ID, "", fmt.Sprintf("- %s (%s match)", m.Candidate.Title, m.Percent()))
	}
	return block, nil
}

func (s *Set) publishedPages(ctx context.Context, req Request) ([]*domain.DocPage, error) {
	if req.Scope.IsEmpty() || len(req.Scope.TenantIDs) == 0 {
		return nil, nil
	}
	pages, err := s.store.DocPages(ctx, domain.DocPageFilter{
		TenantIDs:     req.Scope.TenantIDs,
		PublishedOnly: true,
		Limit:         docScanLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load documentation pages: %w", err)
	}
	return pages, nil
}

// renderPage renders a page title with a bounded body excerpt. Bodies kept in
// object storage are fetched when a loader is configured.
func (s *Set) renderPage(ctx context.Context, p *domain.DocPage) string {
	body := p.Body
	if body == "" && p.BodyObjectKey != "" && s.bodies != nil {
		loaded, err := s.bodies.LoadBody(ctx, p.BodyObjectKey)
		if err != nil {
			s.logger.Warn("failed to load page body",
				zap.String("page_id", p.ID),
				zap.String("object_key", p.BodyObjectKey),
				zap.Error(err))
		}
		body = loaded
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Page: %s\n", p.Title)
	if p.Category != "" {
		fmt.Fprintf(&sb, "Category: %s\n", p.Category)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(&sb, "Tags: %s\n", strings.Join(p.Tags, ", "))
	}
	if body = strings.TrimSpace(body); body != "" {
		sb.WriteString(excerpt(body, pageExcerptLimit))
		sb.WriteString("\n")
	}
	return sb.String()
}

func isTemplate(p *domain.DocPage) bool {
	if strings.EqualFold(p.Category, "template") || strings.EqualFold(p.Category, "templates") {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), "template") {
			return true
		}
	}
	return false
}

// promptKeywords extracts the content words of a normalized prompt
func promptKeywords(prompt string) []string {
	words := strings.FieldsFunc(prompt, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	out := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) < 4 {
			continue
		}
		if _, stop := docStopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// pageScore weighs title hits double tag hits
func pageScore(p *domain.DocPage, keywords []string) int {
	title := strings.ToLower(p.Title)
	tags := strings.ToLower(strings.Join(p.Tags, " "))
	score := 0
	for _, kw := range keywords {
		if strings.Contains(title, kw) {
			score += 2
		}
		if strings.Contains(tags, kw) {
			score++
		}
	}
	return score
}

// rankPages orders pages by keyword score, then most recently updated
func rankPages(pages []*domain.DocPage, keywords []string) []*domain.DocPage {
	ranked := make([]*domain.DocPage, len(pages))
	copy(ranked, pages)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := pageScore(ranked[i], keywords), pageScore(ranked[j], keywords)
		if si != sj {
			return si > sj
		}
		return ranked[i].UpdatedAt.After(ranked[j].UpdatedAt)
	})
	return ranked
}

// docSubject picks the phrase the user is looking for
func docSubject(prompt string, keywords []string) string {
	for _, marker := range []string{" about ", " on ", " for "} {
		if idx := strings.LastIndex(prompt, marker); idx >= 0 {
			subject := strings.Trim(strings.TrimSpace(prompt[idx+len(marker):]), "?!.,;:\"")
			subject = strings.TrimPrefix(subject, "the ")
			if subject != "" {
				return subject
			}
		}
	}
	return strings.Join(keywords, " ")
}
