package memstore

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cloo-solutions/taskpilot/internal/domain"
)

// Fixture is the YAML document accepted by Load
type Fixture struct {
	Users      []UserFixture      `yaml:"users"`
	Tenants    []TenantFixture    `yaml:"tenants"`
	Workspaces []WorkspaceFixture `yaml:"workspaces"`
	WorkItems  []WorkItemFixture  `yaml:"work_items"`
	Meetings   []MeetingFixture   `yaml:"meetings"`
	Pages      []PageFixture      `yaml:"pages"`
}

type UserFixture struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	PrimaryTenant string `yaml:"primary_tenant"`
}

type TenantFixture struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	CreatedBy string    `yaml:"created_by"`
	Members   []string  `yaml:"members"`
	CreatedAt time.Time `yaml:"created_at"`
}

type WorkspaceFixture struct {
	ID      string   `yaml:"id"`
	Tenant  string   `yaml:"tenant"`
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

type WorkItemFixture struct {
	ID             string     `yaml:"id"`
	Workspace      string     `yaml:"workspace"`
	Title          string     `yaml:"title"`
	Description    string     `yaml:"description"`
	Column         string     `yaml:"column"`
	Assignee       string     `yaml:"assignee"`
	Priority       string     `yaml:"priority"`
	Progress       int        `yaml:"progress"`
	Due            *time.Time `yaml:"due"`
	RiskLevel      string     `yaml:"risk_level"`
	RiskLikelihood *int       `yaml:"risk_likelihood"`
	RiskImpact     *int       `yaml:"risk_impact"`
	RiskScore      *int       `yaml:"risk_score"`
	AIRiskScore    *int       `yaml:"ai_risk_score"`
	Labels         []string   `yaml:"labels"`
	Mitigations    []string   `yaml:"mitigations"`
	Stakeholders   []string   `yaml:"stakeholders"`
	Blocked        bool       `yaml:"blocked"`
	BlockedReason  string     `yaml:"blocked_reason"`
	Predecessors   []string   `yaml:"predecessors"`
	Parent         string     `yaml:"parent"`
	CompletedAt    *time.Time `yaml:"completed_at"`
	CreatedAt      time.Time  `yaml:"created_at"`
	UpdatedAt      time.Time  `yaml:"updated_at"`
}

type MeetingFixture struct {
	ID          string    `yaml:"id"`
	Tenant      string    `yaml:"tenant"`
	Workspace   string    `yaml:"workspace"`
	Title       string    `yaml:"title"`
	HeldAt      time.Time `yaml:"held_at"`
	Attendees   []string  `yaml:"attendees"`
	ActionItems []string  `yaml:"action_items"`
	Decisions   []string  `yaml:"decisions"`
	Notes       string    `yaml:"notes"`
}

type PageFixture struct {
	ID        string    `yaml:"id"`
	Tenant    string    `yaml:"tenant"`
	Title     string    `yaml:"title"`
	Category  string    `yaml:"category"`
	Tags      []string  `yaml:"tags"`
	Published bool      `yaml:"published"`
	Body      string    `yaml:"body"`
	BodyKey   string    `yaml:"body_key"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// Load reads a YAML fixture file into a new Store
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML fixture into a new Store. Work items are validated.
func Parse(data []byte) (*Store, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return FromFixture(f)
}

// FromFixture builds a Store from a decoded fixture
func FromFixture(f Fixture) (*Store, error) {
	s := New()
	for _, u := range f.Users {
		s.AddUser(domain.User{ID: u.ID, Name: u.Name, PrimaryTenantID: u.PrimaryTenant})
	}
	for _, t := range f.Tenants {
		tenant := domain.NewTenant(t.ID, t.Name, t.CreatedAt)
		tenant.CreatedByID = t.CreatedBy
		if err := domain.ValidateTenant(tenant); err != nil {
			return nil, fmt.Errorf("tenant %q: %w", t.ID, err)
		}
		s.AddTenant(*tenant, t.Members...)
	}
	for _, w := range f.Workspaces {
		ws := domain.NewWorkspace(w.ID, w.Tenant, w.Name, time.Time{})
		if err := domain.ValidateWorkspace(ws); err != nil {
			return nil, fmt.Errorf("workspace %q: %w", w.ID, err)
		}
		s.AddWorkspace(*ws, w.Members...)
	}
	for _, w := range f.WorkItems {
		item := domain.WorkItem{
			ID:             w.ID,
			Title:          w.Title,
			Description:    w.Description,
			WorkspaceID:    w.Workspace,
			Column:         w.Column,
			AssigneeID:     w.Assignee,
			Priority:       domain.Priority(w.Priority),
			Progress:       w.Progress,
			DueDate:        w.Due,
			RiskLevel:      domain.RiskLevel(w.RiskLevel),
			RiskLikelihood: w.RiskLikelihood,
			RiskImpact:     w.RiskImpact,
			RiskScore:      w.RiskScore,
			AIRiskScore:    w.AIRiskScore,
			Labels:         w.Labels,
			Mitigations:    w.Mitigations,
			Stakeholders:   w.Stakeholders,
			Blocked:        w.Blocked,
			BlockedReason:  w.BlockedReason,
			PredecessorIDs: w.Predecessors,
			ParentID:       w.Parent,
			CompletedAt:    w.CompletedAt,
			CreatedAt:      w.CreatedAt,
			UpdatedAt:      w.UpdatedAt,
		}
		if err := domain.ValidateWorkItem(&item); err != nil {
			return nil, fmt.Errorf("work item %q: %w", w.ID, err)
		}
		s.AddWorkItem(item)
	}
	for _, m := range f.Meetings {
		s.AddMeeting(domain.Meeting{
			ID:          m.ID,
			TenantID:    m.Tenant,
			WorkspaceID: m.Workspace,
			Title:       m.Title,
			HeldAt:      m.HeldAt,
			Attendees:   m.Attendees,
			ActionItems: m.ActionItems,
			Decisions:   m.Decisions,
			Notes:       m.Notes,
		})
	}
	for _, p := range f.Pages {
		s.AddPage(domain.DocPage{
			ID:            p.ID,
			TenantID:      p.Tenant,
			Title:         p.Title,
			Category:      p.Category,
			Tags:          p.Tags,
			Published:     p.Published,
			Body:          p.Body,
			BodyObjectKey: p.BodyKey,
			UpdatedAt:     p.UpdatedAt,
		})
	}
	return s, nil
}
