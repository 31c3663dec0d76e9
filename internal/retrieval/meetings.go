package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/cloo-solutions/taskpilot/internal/fuzzy"
)

const (
	notesExcerptLimit  = 600
	recentMeetingCount = 5
	meetingScanLimit   = 100
	maxFullMeetings    = 3
)

var (
	quotedTitle  = regexp.MustCompile(`["“]([^"”]{3,})["”]`)
	namedMeeting = regexp.MustCompile(`(?:meeting|standup|stand-up|retro|retrospective|sync)\s+(?:about|on|called|titled|named|regarding|for)\s+(.+)`)
	theMeeting   = regexp.MustCompile(`\b(?:the|our)\s+(.+?)\s+(?:meeting|standup|stand-up|retro|retrospective|sync)\b`)
)

// meetingTitleStopwords are phrases that name no particular meeting
var meetingTitleStopwords = map[string]struct{}{
	"last": {}, "latest": {}, "recent": {}, "most recent": {}, "previous": {},
	"next": {}, "weekly": {}, "daily": {}, "team": {}, "same": {}, "first": {},
}

// LatestMeeting renders the single most recent meeting in full
func (s *Set) LatestMeeting(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	if req.Scope.IsEmpty() {
		return nil, nil
	}
	meetings, err := s.store.Meetings(ctx, domain.MeetingFilter{
		TenantIDs:    req.Scope.TenantIDs,
		WorkspaceIDs: req.Scope.WorkspaceIDs,
		Limit:        1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load latest meeting: %w", err)
	}

	block := domain.NewContextBlock("temporal-meeting", "MOST RECENT MEETING")
	latest := mostRecent(meetings)
	if latest == nil {
		block.AddLine("No meeting records were found in your workspaces.")
		return block, nil
	}
	block.AddEntry(latest.ID, "", renderMeeting(latest))
	return block, nil
}

// MeetingSearch finds meetings named in the prompt. Substring matches win;
// otherwise fuzzy suggestions are offered. Without a title the most recent
// meetings are summarized.
func (s *Set) MeetingSearch(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	if req.Scope.IsEmpty() {
		return nil, nil
	}
	block := domain.NewContextBlock("meeting", "MEETINGS")

	title := extractMeetingTitle(req.Prompt)
	if title == "" {
		recent, err := s.store.Meetings(ctx, domain.MeetingFilter{
			TenantIDs:    req.Scope.TenantIDs,
			WorkspaceIDs: req.Scope.WorkspaceIDs,
			Limit:        recentMeetingCount,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load recent meetings: %w", err)
		}
		if len(recent) == 0 {
			block.AddLine("No meeting records were found in your workspaces.")
			return block, nil
		}
		block.AddLine(fmt.Sprintf("The %d most recent meetings:", len(recent)))
		for _, m := range recent {
			block.AddEntry(m.ID, "", meetingSummary(m))
		}
		return block, nil
	}

	matches, err := s.store.Meetings(ctx, domain.MeetingFilter{
		TenantIDs:     req.Scope.TenantIDs,
		WorkspaceIDs:  req.Scope.WorkspaceIDs,
		TitleContains: title,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search meetings: %w", err)
	}
	if len(matches) > 0 {
		block.AddLine(fmt.Sprintf("Meetings matching %q:", title))
		for i, m := range matches {
			if i < maxFullMeetings {
				block.AddEntry(m.ID, "", renderMeeting(m))
				continue
			}
			block.AddEntry(m.ID, "", meetingSummary(m))
		}
		return block, nil
	}

	all, err := s.store.Meetings(ctx, domain.MeetingFilter{
		TenantIDs:    req.Scope.TenantIDs,
		WorkspaceIDs: req.Scope.WorkspaceIDs,
		Limit:        meetingScanLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load meetings: %w", err)
	}

	similar := fuzzy.FindSimilar(title, all, func(m *domain.Meeting) string { return m.Title }, s.cfg.MeetingFuzzyThreshold)
	if len(similar) == 0 {
		block.AddLine(fmt.Sprintf("No meeting titled %q was found.", title))
		return block, nil
	}
	block.AddLine(fmt.Sprintf("No meeting titled %q was found. Did you mean:", title))
	for _, match := range similar {
		block.AddEntry(match.Candidate.ID, "", fmt.Sprintf("- %s on %s (%s match)",
			match.Candidate.Title, match.Candidate.HeldAt.Format(dateLayout), match.Percent()))
	}
	return block, nil
}

// extractMeetingTitle pulls a meeting title out of a normalized prompt
func extractMeetingTitle(prompt string) string {
	candidates := make([]string, 0, 3)
	if m := quotedTitle.FindStringSubmatch(prompt); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := namedMeeting.FindStringSubmatch(prompt); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := theMeeting.FindStringSubmatch(prompt); m != nil {
		candidates = append(candidates, m[1])
	}
	for _, c := range candidates {
		c = strings.Trim(strings.TrimSpace(c), "?!.,;:\"")
		if c == "" {
			continue
		}
		if _, stop := meetingTitleStopwords[c]; stop {
			continue
		}
		return c
	}
	return ""
}

func mostRecent(meetings []*domain.Meeting) *domain.Meeting {
	var latest *domain.Meeting
	for _, m := range meetings {
		if latest == nil || m.HeldAt.After(latest.HeldAt) {
			latest = m
		}
	}
	return latest
}

func meetingSummary(m *domain.Meeting) string {
	line := fmt.Sprintf("- %s (%s)", m.Title, m.HeldAt.Format(dateLayout))
	if m.WorkspaceName != "" {
		line += " [" + m.WorkspaceName + "]"
	}
	if n := len(m.Decisions); n > 0 {
		line += ", " + plural(n, "decision", "decisions")
	}
	if n := len(m.ActionItems); n > 0 {
		line += ", " + plural(n, "action item", "action items")
	}
	return line
}

// renderMeeting renders the full record of one meeting
func renderMeeting(m *domain.Meeting) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Meeting: %s\n", m.Title)
	fmt.Fprintf(&sb, "Date: %s\n", m.HeldAt.Format("2006-01-02 15:04"))
	if m.WorkspaceName != "" {
		fmt.Fprintf(&sb, "Workspace: %s\n", m.WorkspaceName)
	}
	if len(m.Attendees) > 0 {
		fmt.Fprintf(&sb, "Attendees: %s\n", strings.Join(m.Attendees, ", "))
	}
	writeList(&sb, "Decisions", m.Decisions)
	writeList(&sb, "Action items", m.ActionItems)
	if notes := strings.TrimSpace(m.Notes); notes != "" {
		fmt.Fprintf(&sb, "Notes: %s\n", excerpt(notes, notesExcerptLimit))
	}
	return sb.String()
}

func writeList(sb *strings.Builder, title string, values []string) {
	if len(values) == 0 {
		return
	}
	sb.WriteString(title)
	sb.WriteString(":\n")
	for _, v := range values {
		sb.WriteString("  - ")
		sb.WriteString(v)
		sb.WriteString("\n")
	}
}
