package retrieval

import (
	"testing"
	"time"

	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/cloo-solutions/taskpilot/internal/intent"
	"github.com/cloo-solutions/taskpilot/internal/memstore"
)

var testNow = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func daysAgo(n int) time.Time { return testNow.AddDate(0, 0, -n) }

// newStore builds two tenants, each with one workspace, and a user who belongs to both
func newStore(t *testing.T) *memstore.Store {
	t.Helper()
	s := memstore.New()
	s.AddUser(domain.User{ID: "u1", Name: "Dana"})
	s.AddUser(domain.User{ID: "u2", Name: "Eli"})
	s.AddTenant(domain.Tenant{ID: "t1", Name: "Acme", CreatedByID: "u1"}, "u1", "u2")
	s.AddTenant(domain.Tenant{ID: "t2", Name: "Globex", CreatedByID: "u2"}, "u1")
	s.AddWorkspace(domain.Workspace{ID: "w1", TenantID: "t1", Name: "Platform"}, "u1", "u2")
	s.AddWorkspace(domain.Workspace{ID: "w2", TenantID: "t2", Name: "Research"}, "u1")
	return s
}

func scopeFor(t *testing.T, s *memstore.Store, userID string) *domain.Scope {
	t.Helper()
	scope, err := s.LoadScope(t.Context(), userID)
	if err != nil {
		t.Fatalf("load scope: %v", err)
	}
	return scope
}

func newSet(s *memstore.Store) *Set {
	return NewSet(Deps{Store: s})
}

func request(prompt string, scope *domain.Scope) Request {
	return Request{Prompt: intent.Normalize(prompt), Raw: prompt, Scope: scope, Now: testNow}
}
