package assistant

import "github.com/cloo-solutions/taskpilot/internal/intent"

// Dedup groups. Entries sharing a group and an entity ID are emitted once.
const (
	GroupRisk     = "risk"
	GroupTasks    = "tasks"
	GroupMeetings = "meetings"
	GroupDocs     = "docs"
)

// Rule is one row of the assembly priority table
type Rule struct {
	Label intent.Label
	// Group names the dedup group of the block's entries; empty disables entry dedup
	Group string
	// SkipIf drops the whole block when any listed label already contributed
	SkipIf []intent.Label
	// TrimEntriesIf keeps only the block's summary lines when any listed label already contributed
	TrimEntriesIf []intent.Label
	// AlwaysAttempt rows are still appended after the budget first overflows, if they fit
	AlwaysAttempt bool
	// Fallback rows run only when nothing earlier was appended; they need no classifier
	Fallback bool
}

// DefaultRules is the assembly priority table, highest priority first.
var DefaultRules = []Rule{
	{Label: intent.Tenant},
	{Label: intent.TemporalMeeting, Group: GroupMeetings},
	{Label: intent.Meeting, Group: GroupMeetings, SkipIf: []intent.Label{intent.TemporalMeeting}},
	{Label: intent.OwnItems, Group: GroupTasks},
	{Label: intent.Incomplete, Group: GroupTasks},
	{Label: intent.Comparison},
	{Label: intent.Distribution},
	{Label: intent.Progress},
	{Label: intent.Overdue, Group: GroupTasks},
	{Label: intent.Mitigation, Group: GroupRisk},
	{Label: intent.Critical, Group: GroupRisk},
	{Label: intent.Aggregate, Group: GroupRisk, TrimEntriesIf: []intent.Label{intent.Critical}},
	{Label: intent.GeneralRisk, Group: GroupRisk},
	{Label: intent.Stakeholder},
	{Label: intent.Resource},
	{Label: intent.Process},
	{Label: intent.Dependency},
	{Label: intent.GeneralWorkspace, Fallback: true},
	{Label: intent.Template, Group: GroupDocs},
	{Label: intent.Documentation, Group: GroupDocs, AlwaysAttempt: true},
	{Label: intent.External},
}
