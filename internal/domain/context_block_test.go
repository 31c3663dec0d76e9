package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextBlock_Render(t *testing.T) {
	b := NewContextBlock("critical", "CRITICAL TASKS")
	b.AddLine("2 critical items")
	b.AddEntry("t1", "CRITICAL", "- Deploy gateway")
	b.AddEntry("t2", "CRITICAL", "- Rotate keys")
	b.AddEntry("t3", "HIGH", "- Update docs")
	b.AddFooter("and 4 more")

	expected := "=== CRITICAL TASKS ===\n" +
		"2 critical items\n" +
		"\nCRITICAL:\n" +
		"- Deploy gateway\n" +
		"- Rotate keys\n" +
		"\nHIGH:\n" +
		"- Update docs\n" +
		"\nand 4 more\n"
	assert.Equal(t, expected, b.Render())
	assert.Equal(t, []string{"t1", "t2", "t3"}, b.EntityIDs())
}

func TestContextBlock_EmptyRendersNothing(t *testing.T) {
	var nilBlock *ContextBlock
	assert.True(t, nilBlock.IsEmpty())
	assert.Equal(t, "", nilBlock.Render())
	assert.True(t, NewContextBlock("x", "X").IsEmpty())
}

func TestContextBlock_WithoutEntities(t *testing.T) {
	b := NewContextBlock("risk", "RISKS")
	b.AddEntry("t1", "HIGH", "- one")
	b.AddEntry("t2", "HIGH", "- two")
	b.AddEntry("", "", "- note")

	filtered, removed := b.WithoutEntities(map[string]struct{}{"t1": {}})

	assert.Equal(t, 1, removed)
	assert.Len(t, filtered.Entries, 2)
	assert.Len(t, b.Entries, 3, "original block must not be mutated")
	assert.NotContains(t, filtered.Render(), "- one")
}
