package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/taskpilot/internal/domain"
)

func loadFixture(t *testing.T) *Store {
	t.Helper()
	s, err := Load("testdata/workspace.yaml")
	require.NoError(t, err)
	return s
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("users: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse fixture")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	require.Error(t, err)
}

func TestParse_RejectsInvalidWorkItem(t *testing.T) {
	_, err := Parse([]byte(`
work_items:
  - id: wi-1
    title: Bad
    progress: 140
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidProgress)
}

func TestLoadScope(t *testing.T) {
	s := loadFixture(t)
	ctx := context.Background()

	scope, err := s.LoadScope(ctx, "u-alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice Moreau", scope.UserName)
	assert.Equal(t, []string{"t-acme", "t-globex"}, scope.TenantIDs)
	assert.Equal(t, []string{"w-mobile", "w-platform", "w-research"}, scope.WorkspaceIDs)

	_, err = s.LoadScope(ctx, "u-nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestTenants(t *testing.T) {
	s := loadFixture(t)
	ctx := context.Background()

	acme, err := s.TenantByID(ctx, "t-acme")
	require.NoError(t, err)
	assert.Equal(t, 3, acme.MemberCount)
	assert.Equal(t, 2, acme.WorkspaceCount)

	_, err = s.TenantByID(ctx, "t-missing")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)

	byWorkspace, err := s.TenantsForWorkspaces(ctx, []string{"w-platform", "w-mobile"})
	require.NoError(t, err)
	require.Len(t, byWorkspace, 1)
	assert.Equal(t, "Acme Corp", byWorkspace[0].Name)

	byUser, err := s.TenantsForUser(ctx, "u-carol")
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, "Acme Corp", byUser[0].Name)
	assert.Equal(t, "Globex", byUser[1].Name)
}

func TestWorkItems_Filtering(t *testing.T) {
	s := loadFixture(t)
	ctx := context.Background()

	open, err := s.WorkItems(ctx, domain.WorkItemFilter{WorkspaceIDs: []string{"w-platform"}})
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "wi-api", open[0].ID, "most recently updated first")
	assert.Equal(t, "Platform", open[0].WorkspaceName)
	assert.Equal(t, "t-acme", open[0].TenantID)

	all, err := s.WorkItems(ctx, domain.WorkItemFilter{WorkspaceIDs: []string{"w-platform"}, IncludeCompleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := s.WorkItems(ctx, domain.WorkItemFilter{
		WorkspaceIDs: []string{"w-platform", "w-mobile", "w-research"},
		AssigneeID:   "u-carol",
	})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "Carol Diaz", mine[0].AssigneeName)

	none, err := s.WorkItems(ctx, domain.WorkItemFilter{})
	require.NoError(t, err)
	assert.Empty(t, none, "no workspaces means no items")
}

func TestWorkItemByID(t *testing.T) {
	s := loadFixture(t)

	item, err := s.WorkItemByID(context.Background(), "wi-schema")
	require.NoError(t, err)
	assert.Equal(t, []string{"Pair with the data team", "Stage the migration behind a flag"}, item.Mitigations)
	require.NotNil(t, item.AIRiskScore)
	assert.Equal(t, 91, *item.AIRiskScore)

	item.Title = "mutated"
	again, err := s.WorkItemByID(context.Background(), "wi-schema")
	require.NoError(t, err)
	assert.Equal(t, "Design billing schema", again.Title)

	_, err = s.WorkItemByID(context.Background(), "wi-missing")
	assert.ErrorIs(t, err, domain.ErrWorkItemNotFound)
}

func TestMeetings(t *testing.T) {
	s := loadFixture(t)
	ctx := context.Background()

	meetings, err := s.Meetings(ctx, domain.MeetingFilter{WorkspaceIDs: []string{"w-platform"}})
	require.NoError(t, err)
	require.Len(t, meetings, 2)
	assert.Equal(t, "m-retro", meetings[0].ID)

	latest, err := s.Meetings(ctx, domain.MeetingFilter{WorkspaceIDs: []string{"w-platform"}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "m-retro", latest[0].ID)

	planning, err := s.Meetings(ctx, domain.MeetingFilter{WorkspaceIDs: []string{"w-platform"}, TitleContains: "PLANNING"})
	require.NoError(t, err)
	require.Len(t, planning, 1)
	assert.Equal(t, "m-plan", planning[0].ID)

	hidden, err := s.Meetings(ctx, domain.MeetingFilter{WorkspaceIDs: []string{"w-mobile"}})
	require.NoError(t, err)
	assert.Empty(t, hidden)
}

func TestDocPages(t *testing.T) {
	s := loadFixture(t)

	published, err := s.DocPages(context.Background(), domain.DocPageFilter{TenantIDs: []string{"t-acme"}, PublishedOnly: true})
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Equal(t, "p-onboarding", published[0].ID)

	templates, err := s.DocPages(context.Background(), domain.DocPageFilter{TenantIDs: []string{"t-acme"}, Category: "Template"})
	require.NoError(t, err)
	require.Len(t, templates, 1)
}

func TestSetFailure(t *testing.T) {
	s := loadFixture(t)
	boom := errors.New("connection reset")

	s.SetFailure("WorkItems", boom)
	_, err := s.WorkItems(context.Background(), domain.WorkItemFilter{WorkspaceIDs: []string{"w-platform"}})
	assert.ErrorIs(t, err, boom)

	s.SetFailure("WorkItems", nil)
	_, err = s.WorkItems(context.Background(), domain.WorkItemFilter{WorkspaceIDs: []string{"w-platform"}})
	assert.NoError(t, err)
}

func TestSnapshot(t *testing.T) {
	s := loadFixture(t)

	snap := s.Snapshot()

	require.Len(t, snap.Users, 3)
	assert.Equal(t, "u-alice", snap.Users[0].ID)
	require.Len(t, snap.Tenants, 2)
	assert.Len(t, snap.TenantMembers, 5)
	require.Len(t, snap.Workspaces, 3)
	assert.Len(t, snap.WorkspaceMembers, 5)
	assert.Len(t, snap.WorkItems, 5)
	assert.Len(t, snap.Meetings, 2)
	assert.Len(t, snap.Pages, 3)

	for _, item := range snap.WorkItems {
		assert.NotEmpty(t, item.TenantID, "snapshot items carry their tenant")
	}
}
