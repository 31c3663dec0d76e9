// Package intent classifies assistant prompts into non-exclusive information
// categories using keyword containment.
package intent

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Label names one information category a prompt can request
type Label string

const (
	Tenant          Label = "tenant"
	OwnItems        Label = "own-items"
	Incomplete      Label = "incomplete"
	Comparison      Label = "comparison"
	Distribution    Label = "distribution"
	Progress        Label = "progress"
	Overdue         Label = "overdue"
	Mitigation      Label = "mitigation"
	Critical        Label = "critical"
	Aggregate       Label = "aggregate"
	GeneralRisk     Label = "general-risk"
	Stakeholder     Label = "stakeholder"
	Resource        Label = "resource"
	Process         Label = "process"
	Dependency      Label = "dependency"
	TemporalMeeting Label = "temporal-meeting"
	Meeting         Label = "meeting"
	Template        Label = "template"
	Documentation   Label = "documentation"
	External        Label = "external"

	// GeneralWorkspace is the fallback category; no classifier emits it.
	GeneralWorkspace Label = "general-workspace"
)

// Intent is the outcome of one classifier for one prompt
type Intent struct {
	Label   Label
	Matched bool
}

// Classifier answers whether a normalized prompt belongs to its category.
// Classifiers are pure and never fail.
type Classifier struct {
	Label Label
	Match func(prompt string) bool
}

var lower = cases.Lower(language.Und)

// Normalize lower-cases the prompt and collapses runs of whitespace. The result
// is padded with one space on each side so keywords can anchor on word edges.
func Normalize(prompt string) string {
	fields := strings.Fields(lower.String(prompt))
	if len(fields) == 0 {
		return ""
	}
	return " " + strings.Join(fields, " ") + " "
}

// containsAny reports whether prompt contains any keyword
func containsAny(prompt string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(prompt, kw) {
			return true
		}
	}
	return false
}

func keywords(words ...string) func(string) bool {
	return func(prompt string) bool {
		return containsAny(prompt, words...)
	}
}

var (
	tenantKeywords = []string{
		"organization", "organisation", "organizations", "company", "companies",
		"tenant", " org ", " orgs ", "workspace owner",
	}
	ownItemsKeywords = []string{
		"my task", "my tasks", "my work", "my items", "assigned to me", "i am assigned",
		"i'm assigned", "on my plate", "my assignments", "do i have", "should i work on",
	}
	incompleteKeywords = []string{
		"incomplete", "not done", "not finished", "unfinished", "pending", "remaining",
		"open task", "open item", "outstanding", "still to do", "left to do", "in progress",
		"not completed", "todo", "to do",
	}
	comparisonKeywords = []string{
		"compare", "comparison", " vs ", " vs. ", "versus", "difference between",
		"better than", "worse than", "which board", "which workspace",
	}
	distributionKeywords = []string{
		"distribution", "distributed", "breakdown", "break down", "by status", "by column",
		"per column", "by priority", "by assignee", "spread", "split",
	}
	progressKeywords = []string{
		"progress", "how far", "percent complete", "% complete", "completion", "completed",
		"status update", "on track", "how is", "how are",
	}
	overdueKeywords = []string{
		"overdue", " late ", " late?", " late.", "running late", "past due", "missed deadline", "missed the deadline",
		"behind schedule", "delayed", "past the deadline", "slipping",
	}
	mitigationKeywords = []string{
		"mitigation", "mitigate", "mitigating", "risk response", "contingency",
		"reduce risk", "reduce the risk", "risk plan", "countermeasure",
	}
	criticalKeywords = []string{
		"critical", "urgent", "blocker", "blocking", "high risk", "high-risk", "asap",
		"showstopper", "top priority", "most important", "emergency",
	}
	aggregateKeywords = []string{
		"how many", "total", "count", "overall", "summary", "summarize", "summarise",
		"across all", "statistics", "stats", "aggregate",
	}
	generalRiskKeywords = []string{
		"risk", "risky", "threat", "exposure", "likelihood", "impact", "vulnerab",
	}
	stakeholderKeywords = []string{
		"stakeholder", "who is involved", "who's involved", "members", "team member",
		"participants", "who works", "who is working", "owner", "owners", "sponsor",
	}
	resourceKeywords = []string{
		"resource", "workload", "capacity", "bandwidth", "overloaded", "overworked",
		"allocation", "utilization", "utilisation", "availability", "who is busy", "busiest",
	}
	processKeywords = []string{
		"process", " lean ", "lean?", "waste", "bottleneck", "flow", "cycle time", "lead time",
		"throughput", "wip", "work in progress", "kanban", "efficiency", "improve",
		"stuck", "stalled",
	}
	dependencyKeywords = []string{
		"dependency", "dependencies", "depends on", "depend on", "predecessor",
		"blocked by", "blocking", "prerequisite", "chain", "upstream", "waiting on",
	}
	meetingKeywords = []string{
		"meeting", "meetings", "standup", "stand-up", "retro", "retrospective",
		"sync", "call with", "minutes", "discussed", "decided", "decision",
	}
	temporalKeywords = []string{
		"last", "latest", "most recent", "recent", "yesterday", "today", "this week",
		"previous", "earlier", "just had",
	}
	templateKeywords = []string{
		"template", "templates", "boilerplate", "starter", "blueprint",
	}
	documentationKeywords = []string{
		"documentation", "docs", "wiki", "guide", "handbook", "how do i", "how to",
		"policy", "procedure", "knowledge base", "article", "page about",
	}
	externalKeywords = []string{
		"best practice", "best practices", "industry", "in general", "generally",
		"research", "trend", "trends", "what is a", "what is an", "explain", "definition",
		"methodology", "framework",
	}
)

// IsTemporal reports whether the prompt uses time-relative phrasing
// ("last", "most recent", "yesterday", "this week").
func IsTemporal(prompt string) bool {
	return containsAny(prompt, temporalKeywords...)
}

// isMeeting reports whether the prompt refers to meetings
func isMeeting(prompt string) bool {
	return containsAny(prompt, meetingKeywords...)
}

var classifiers = []Classifier{
	{Label: Tenant, Match: keywords(tenantKeywords...)},
	{Label: OwnItems, Match: keywords(ownItemsKeywords...)},
	{Label: Incomplete, Match: keywords(incompleteKeywords...)},
	{Label: Comparison, Match: keywords(comparisonKeywords...)},
	{Label: Distribution, Match: keywords(distributionKeywords...)},
	{Label: Progress, Match: keywords(progressKeywords...)},
	{Label: Overdue, Match: keywords(overdueKeywords...)},
	{Label: Mitigation, Match: keywords(mitigationKeywords...)},
	{Label: Critical, Match: keywords(criticalKeywords...)},
	{Label: Aggregate, Match: keywords(aggregateKeywords...)},
	{Label: GeneralRisk, Match: keywords(generalRiskKeywords...)},
	{Label: Stakeholder, Match: keywords(stakeholderKeywords...)},
	{Label: Resource, Match: keywords(resourceKeywords...)},
	{Label: Process, Match: keywords(processKeywords...)},
	{Label: Dependency, Match: keywords(dependencyKeywords...)},
	{Label: TemporalMeeting, Match: func(p string) bool { return isMeeting(p) && IsTemporal(p) }},
	{Label: Meeting, Match: isMeeting},
	{Label: Template, Match: keywords(templateKeywords...)},
	{Label: Documentation, Match: keywords(documentationKeywords...)},
	{Label: External, Match: keywords(externalKeywords...)},
}

// Classifiers returns the classifier table in declaration order
func Classifiers() []Classifier {
	out := make([]Classifier, len(classifiers))
	copy(out, classifiers)
	return out
}

// Classify runs every classifier against the prompt. The prompt is normalized
// first, so raw user text may be passed.
func Classify(prompt string) []Intent {
	normalized := Normalize(prompt)
	out := make([]Intent, 0, len(classifiers))
	for _, c := range classifiers {
		out = append(out, Intent{Label: c.Label, Matched: normalized != "" && c.Match(normalized)})
	}
	return out
}

// Set is the collection of labels that fired for a prompt
type Set map[Label]struct{}

// Fired returns the set of matched labels
func Fired(intents []Intent) Set {
	set := make(Set)
	for _, in := range intents {
		if in.Matched {
			set[in.Label] = struct{}{}
		}
	}
	return set
}

// Has reports whether the label fired
func (s Set) Has(label Label) bool {
	_, ok := s[label]
	return ok
}

// Labels returns the fired labels in classifier table order
func (s Set) Labels() []Label {
	out := make([]Label, 0, len(s))
	for _, c := range classifiers {
		if s.Has(c.Label) {
			out = append(out, c.Label)
		}
	}
	return out
}
