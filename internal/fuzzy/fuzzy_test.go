package fuzzy

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type meeting struct {
	ID    string
	Title string
}

func meetingTitle(m meeting) string { return m.Title }

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("Sprint Review", "sprint review"))
	assert.Equal(t, 0.0, Ratio("", "anything"))
	assert.Equal(t, 1.0, Ratio("", ""))

	score := Ratio("Sprint Planning-Novemb", "Sprint Planning - November Sprint")
	assert.Greater(t, score, 0.75)
	assert.LessOrEqual(t, score, 1.0)

	assert.Less(t, Ratio("Sprint Planning-Novemb", "Daily Standup"), 0.5)
}

func TestFindSimilar_MeetingTitleFallback(t *testing.T) {
	candidates := []meeting{
		{ID: "m1", Title: "Daily Standup"},
		{ID: "m2", Title: "Sprint Planning - November Sprint"},
		{ID: "m3", Title: "Quarterly Budget Review"},
	}

	matches := FindSimilar("Sprint Planning-Novemb", candidates, meetingTitle, 0.5)

	require.Len(t, matches, 1)
	assert.Equal(t, "m2", matches[0].Candidate.ID)
	assert.GreaterOrEqual(t, matches[0].Score, 0.5)
	assert.Contains(t, Suggestions(matches)[0], "Sprint Planning - November Sprint")
}

func TestFindSimilar_SortedAboveThresholdAndCapped(t *testing.T) {
	var candidates []meeting
	for i := 0; i < 12; i++ {
		candidates = append(candidates, meeting{ID: fmt.Sprintf("m%d", i), Title: fmt.Sprintf("Design Review %d", i)})
	}
	candidates = append(candidates, meeting{ID: "exact", Title: "Design Review"})

	matches := FindSimilar("design review", candidates, meetingTitle, 0.6)

	require.Len(t, matches, MaxResults)
	assert.Equal(t, "exact", matches[0].Candidate.ID)
	for i, m := range matches {
		assert.GreaterOrEqual(t, m.Score, 0.6)
		if i > 0 {
			assert.GreaterOrEqual(t, matches[i-1].Score, m.Score)
		}
	}
}

func TestFindSimilar_Deterministic(t *testing.T) {
	candidates := []meeting{
		{ID: "a", Title: "Retro"},
		{ID: "b", Title: "Retro"},
		{ID: "c", Title: "Retrospective"},
		{ID: "d", Title: "Roadmap"},
	}

	first := FindSimilar("retro", candidates, meetingTitle, 0.5)
	for i := 0; i < 5; i++ {
		again := FindSimilar("retro", candidates, meetingTitle, 0.5)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("results changed between calls (-first +again):\n%s", diff)
		}
	}
	require.GreaterOrEqual(t, len(first), 2)
	assert.Equal(t, "a", first[0].Candidate.ID, "ties keep input order")
	assert.Equal(t, "b", first[1].Candidate.ID)
}

func TestFindSimilar_EmptyInputs(t *testing.T) {
	assert.Nil(t, FindSimilar("", []meeting{{Title: "x"}}, meetingTitle, 0.5))
	assert.Nil(t, FindSimilar("x", []meeting{}, meetingTitle, 0.5))
	assert.Nil(t, FindSimilar("x", []meeting{{Title: "x"}}, nil, 0.5))
}

func TestBestAndPercent(t *testing.T) {
	m, ok := Best("roadmap", []string{"Roadmap", "Budget"}, func(s string) string { return s }, DefaultThreshold)
	require.True(t, ok)
	assert.Equal(t, "Roadmap", m.Candidate)
	assert.Equal(t, "100%", m.Percent())

	_, ok = Best("zzz", []string{"Roadmap"}, func(s string) string { return s }, DefaultThreshold)
	assert.False(t, ok)
}
