package domain

import "strings"

// BlockEntry is one entity rendered inside a ContextBlock. Entries are the unit of
// deduplication: the assembler drops entries whose (EntityID, group) pair was already emitted.
type BlockEntry struct {
	EntityID string
	Section  string
	Text     string
}

// ContextBlock is the bounded text produced by one retriever invocation
type ContextBlock struct {
	Category string
	Title    string
	Lines    []string
	Entries  []BlockEntry
	Footer   []string
	Rank     int
}

// NewContextBlock creates an empty block for a category
func NewContextBlock(category, title string) *ContextBlock {
	return &ContextBlock{Category: category, Title: title}
}

// AddLine appends a summary line rendered before the entries
func (b *ContextBlock) AddLine(line string) {
	b.Lines = append(b.Lines, line)
}

// AddEntry appends an entity entry under a section header
func (b *ContextBlock) AddEntry(entityID, section, text string) {
	b.Entries = append(b.Entries, BlockEntry{EntityID: entityID, Section: section, Text: text})
}

// AddFooter appends a line rendered after the entries
func (b *ContextBlock) AddFooter(line string) {
	b.Footer = append(b.Footer, line)
}

// IsEmpty reports whether the block carries no content
func (b *ContextBlock) IsEmpty() bool {
	return b == nil || (len(b.Lines) == 0 && len(b.Entries) == 0 && len(b.Footer) == 0)
}

// EntityIDs returns the IDs of all entries that reference an entity
func (b *ContextBlock) EntityIDs() []string {
	ids := make([]string, 0, len(b.Entries))
	for _, e := range b.Entries {
		if e.EntityID != "" {
			ids = append(ids, e.EntityID)
		}
	}
	return ids
}

// Render produces the text form of the block. Consecutive entries sharing a
// section are grouped under one header.
func (b *ContextBlock) Render() string {
	if b.IsEmpty() {
		return ""
	}

	var sb strings.Builder
	if b.Title != "" {
		sb.WriteString("=== ")
		sb.WriteString(b.Title)
		sb.WriteString(" ===\n")
	}
	for _, line := range b.Lines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	section := ""
	for i, e := range b.Entries {
		if e.Section != "" && (i == 0 || e.Section != section) {
			sb.WriteString("\n")
			sb.WriteString(e.Section)
			sb.WriteString(":\n")
		}
		section = e.Section
		sb.WriteString(e.Text)
		if !strings.HasSuffix(e.Text, "\n") {
			sb.WriteString("\n")
		}
	}

	if len(b.Footer) > 0 {
		if len(b.Entries) > 0 {
			sb.WriteString("\n")
		}
		for _, line := range b.Footer {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// WithoutEntities returns a copy of the block minus entries whose entity is in covered.
// The second return value is the number of entries removed.
func (b *ContextBlock) WithoutEntities(covered map[string]struct{}) (*ContextBlock, int) {
	out := *b
	out.Entries = make([]BlockEntry, 0, len(b.Entries))
	removed := 0
	for _, e := range b.Entries {
		if e.EntityID != "" {
			if _, seen := covered[e.EntityID]; seen {
				removed++
				continue
			}
		}
		out.Entries = append(out.Entries, e)
	}
	return &out, removed
}
