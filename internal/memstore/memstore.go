// Package memstore is an in-memory entity store used by tests and by the CLI
// when running against a YAML fixture instead of PostgreSQL.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cloo-solutions/taskpilot/internal/domain"
)

// Store holds entities in memory. It is safe for concurrent use.
type Store struct {
	mu             sync.RWMutex
	users          map[string]*domain.User
	tenants        map[string]*domain.Tenant
	tenantMembers  map[string][]string
	workspaces     map[string]*domain.Workspace
	workspaceUsers map[string][]string
	items          map[string]*domain.WorkItem
	meetings       map[string]*domain.Meeting
	pages          map[string]*domain.DocPage
	failures       map[string]error
}

// New creates an empty Store
func New() *Store {
	return &Store{
		users:          make(map[string]*domain.User),
		tenants:        make(map[string]*domain.Tenant),
		tenantMembers:  make(map[string][]string),
		workspaces:     make(map[string]*domain.Workspace),
		workspaceUsers: make(map[string][]string),
		items:          make(map[string]*domain.WorkItem),
		meetings:       make(map[string]*domain.Meeting),
		pages:          make(map[string]*domain.DocPage),
		failures:       make(map[string]error),
	}
}

// AddUser stores a user
func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

// AddTenant stores a tenant and its member user IDs
func (s *Store) AddTenant(t domain.Tenant, memberIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = &t
	s.tenantMembers[t.ID] = append([]string(nil), memberIDs...)
}

// AddWorkspace stores a workspace and the user IDs given direct access to it
func (s *Store) AddWorkspace(w domain.Workspace, memberIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces[w.ID] = &w
	s.workspaceUsers[w.ID] = append([]string(nil), memberIDs...)
}

// AddWorkItem stores a work item
func (s *Store) AddWorkItem(item domain.WorkItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = &item
}

// AddMeeting stores a meeting
func (s *Store) AddMeeting(m domain.Meeting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = &m
}

// AddPage stores a documentation page
func (s *Store) AddPage(p domain.DocPage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[p.ID] = &p
}

// SetFailure makes the named method return err until cleared with a nil err
func (s *Store) SetFailure(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

func (s *Store) failure(method string) error {
	return s.failures[method]
}

// LoadScope resolves the tenants and workspaces visible to a user
func (s *Store) LoadScope(_ context.Context, userID string) (*domain.Scope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("LoadScope"); err != nil {
		return nil, err
	}

	user, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	tenantSet := make(map[string]struct{})
	if user.PrimaryTenantID != "" {
		if _, ok := s.tenants[user.PrimaryTenantID]; ok {
			tenantSet[user.PrimaryTenantID] = struct{}{}
		}
	}
	for id := range s.userTenants(userID) {
		tenantSet[id] = struct{}{}
	}

	workspaceSet := make(map[string]struct{})
	for id, ws := range s.workspaces {
		if _, member := tenantSet[ws.TenantID]; member || containsString(s.workspaceUsers[id], userID) {
			workspaceSet[id] = struct{}{}
		}
	}
	for id := range workspaceSet {
		tenantSet[s.workspaces[id].TenantID] = struct{}{}
	}

	return &domain.Scope{
		UserID:          user.ID,
		UserName:        user.Name,
		PrimaryTenantID: user.PrimaryTenantID,
		TenantIDs:       sortedKeys(tenantSet),
		WorkspaceIDs:    sortedKeys(workspaceSet),
	}, nil
}

// userTenants returns tenants the user created or is a member of
func (s *Store) userTenants(userID string) map[string]struct{} {
	out := make(map[string]struct{})
	for id, t := range s.tenants {
		if t.CreatedByID == userID || containsString(s.tenantMembers[id], userID) {
			out[id] = struct{}{}
		}
	}
	return out
}

// TenantByID returns one tenant with its counts
func (s *Store) TenantByID(_ context.Context, id string) (*domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("TenantByID"); err != nil {
		return nil, err
	}
	if _, ok := s.tenants[id]; !ok {
		return nil, domain.ErrTenantNotFound
	}
	return s.tenantWithCounts(id), nil
}

// TenantsForWorkspaces returns the distinct tenants owning the given workspaces
func (s *Store) TenantsForWorkspaces(_ context.Context, workspaceIDs []string) ([]*domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("TenantsForWorkspaces"); err != nil {
		return nil, err
	}
	ids := make(map[string]struct{})
	for _, wsID := range workspaceIDs {
		if ws, ok := s.workspaces[wsID]; ok {
			if _, ok := s.tenants[ws.TenantID]; ok {
				ids[ws.TenantID] = struct{}{}
			}
		}
	}
	return s.tenantList(ids), nil
}

// TenantsForUser returns the tenants the user created or is a member of
func (s *Store) TenantsForUser(_ context.Context, userID string) ([]*domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("TenantsForUser"); err != nil {
		return nil, err
	}
	return s.tenantList(s.userTenants(userID)), nil
}

func (s *Store) tenantList(ids map[string]struct{}) []*domain.Tenant {
	out := make([]*domain.Tenant, 0, len(ids))
	for id := range ids {
		out = append(out, s.tenantWithCounts(id))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) tenantWithCounts(id string) *domain.Tenant {
	t := *s.tenants[id]
	t.MemberCount = len(s.tenantMembers[id])
	t.WorkspaceCount = 0
	for _, ws := range s.workspaces {
		if ws.TenantID == id {
			t.WorkspaceCount++
		}
	}
	return &t
}

// Workspaces returns the requested workspaces ordered by name
func (s *Store) Workspaces(_ context.Context, ids []string) ([]*domain.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("Workspaces"); err != nil {
		return nil, err
	}
	out := make([]*domain.Workspace, 0, len(ids))
	for _, id := range ids {
		ws, ok := s.workspaces[id]
		if !ok {
			continue
		}
		copied := *ws
		if len(copied.MemberNames) == 0 {
			copied.MemberNames = s.memberNames(id)
		}
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) memberNames(workspaceID string) []string {
	names := make([]string, 0)
	for _, userID := range s.workspaceUsers[workspaceID] {
		if u, ok := s.users[userID]; ok && u.Name != "" {
			names = append(names, u.Name)
		}
	}
	sort.Strings(names)
	return names
}

// WorkItems returns items in the filter's workspaces, most recently updated first
func (s *Store) WorkItems(_ context.Context, filter domain.WorkItemFilter) ([]*domain.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("WorkItems"); err != nil {
		return nil, err
	}

	out := make([]*domain.WorkItem, 0)
	for _, item := range s.items {
		if !containsString(filter.WorkspaceIDs, item.WorkspaceID) {
			continue
		}
		if filter.AssigneeID != "" && item.AssigneeID != filter.AssigneeID {
			continue
		}
		if !filter.IncludeCompleted && item.IsCompleted() {
			continue
		}
		if filter.UpdatedSince != nil && item.UpdatedAt.Before(*filter.UpdatedSince) {
			continue
		}
		out = append(out, s.hydrate(item))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// WorkItemByID returns one item regardless of scope
func (s *Store) WorkItemByID(_ context.Context, id string) (*domain.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("WorkItemByID"); err != nil {
		return nil, err
	}
	item, ok := s.items[id]
	if !ok {
		return nil, domain.ErrWorkItemNotFound
	}
	return s.hydrate(item), nil
}

// hydrate copies an item and fills names derived from related entities
func (s *Store) hydrate(item *domain.WorkItem) *domain.WorkItem {
	copied := *item
	if ws, ok := s.workspaces[copied.WorkspaceID]; ok {
		if copied.WorkspaceName == "" {
			copied.WorkspaceName = ws.Name
		}
		if copied.TenantID == "" {
			copied.TenantID = ws.TenantID
		}
	}
	if copied.AssigneeName == "" && copied.AssigneeID != "" {
		if u, ok := s.users[copied.AssigneeID]; ok {
			copied.AssigneeName = u.Name
		}
	}
	return &copied
}

// Meetings returns visible meetings, most recent first
func (s *Store) Meetings(_ context.Context, filter domain.MeetingFilter) ([]*domain.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("Meetings"); err != nil {
		return nil, err
	}

	title := strings.ToLower(strings.TrimSpace(filter.TitleContains))
	out := make([]*domain.Meeting, 0)
	for _, m := range s.meetings {
		visible := containsString(filter.WorkspaceIDs, m.WorkspaceID) ||
			(m.WorkspaceID == "" && containsString(filter.TenantIDs, m.TenantID))
		if !visible {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(m.Title), title) {
			continue
		}
		copied := *m
		if ws, ok := s.workspaces[copied.WorkspaceID]; ok && copied.WorkspaceName == "" {
			copied.WorkspaceName = ws.Name
		}
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].HeldAt.Equal(out[j].HeldAt) {
			return out[i].HeldAt.After(out[j].HeldAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// DocPages returns documentation pages of the filter's tenants, most recently updated first
func (s *Store) DocPages(_ context.Context, filter domain.DocPageFilter) ([]*domain.DocPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("DocPages"); err != nil {
		return nil, err
	}

	out := make([]*domain.DocPage, 0)
	for _, p := range s.pages {
		if !containsString(filter.TenantIDs, p.TenantID) {
			continue
		}
		if filter.PublishedOnly && !p.Published {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(filter.Category, p.Category) {
			continue
		}
		copied := *p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Membership links a user to a tenant or workspace
type Membership struct {
	ParentID string
	UserID   string
}

// Snapshot is a point-in-time copy of every stored entity
type Snapshot struct {
	Users            []domain.User
	Tenants          []domain.Tenant
	TenantMembers    []Membership
	Workspaces       []domain.Workspace
	WorkspaceMembers []Membership
	WorkItems        []domain.WorkItem
	Meetings         []domain.Meeting
	Pages            []domain.DocPage
}

// Snapshot copies all entities ordered by ID
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{}
	for _, id := range sortedMapKeys(s.users) {
		snap.Users = append(snap.Users, *s.users[id])
	}
	for _, id := range sortedMapKeys(s.tenants) {
		snap.Tenants = append(snap.Tenants, *s.tenants[id])
		for _, userID := range s.tenantMembers[id] {
			snap.TenantMembers = append(snap.TenantMembers, Membership{ParentID: id, UserID: userID})
		}
	}
	for _, id := range sortedMapKeys(s.workspaces) {
		snap.Workspaces = append(snap.Workspaces, *s.workspaces[id])
		for _, userID := range s.workspaceUsers[id] {
			snap.WorkspaceMembers = append(snap.WorkspaceMembers, Membership{ParentID: id, UserID: userID})
		}
	}
	for _, id := range sortedMapKeys(s.items) {
		snap.WorkItems = append(snap.WorkItems, *s.hydrate(s.items[id]))
	}
	for _, id := range sortedMapKeys(s.meetings) {
		snap.Meetings = append(snap.Meetings, *s.meetings[id])
	}
	for _, id := range sortedMapKeys(s.pages) {
		snap.Pages = append(snap.Pages, *s.pages[id])
	}
	return snap
}

func sortedMapKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
