//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/cloo-solutions/taskpilot/internal/memstore"
	"github.com/cloo-solutions/taskpilot/internal/testutil"
)

const fixturePath = "../memstore/testdata/workspace.yaml"

// seeded starts Postgres, applies migrations and imports the shared fixture.
func seeded(t *testing.T) (*pgxpool.Pool, *memstore.Store) {
	t.Helper()
	ctx := context.Background()

	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pc.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)

	mem, err := memstore.Load(fixturePath)
	require.NoError(t, err)

	counts, err := NewTxRunner(pool).Import(ctx, mem.Snapshot())
	require.NoError(t, err)
	require.Equal(t, 5, counts.WorkItems)

	return pool, mem
}

var parityOpts = cmp.Options{
	cmpopts.EquateEmpty(),
	cmpopts.EquateApproxTime(time.Millisecond),
	cmpopts.IgnoreFields(domain.Tenant{}, "CreatedAt"),
	cmpopts.IgnoreFields(domain.Workspace{}, "CreatedAt"),
	cmpopts.IgnoreFields(domain.WorkItem{}, "CreatedAt"),
}

func TestStore_MatchesMemstore(t *testing.T) {
	pool, mem := seeded(t)
	ctx := context.Background()
	pg := NewStore(pool)

	for _, userID := range []string{"u-alice", "u-bob", "u-carol"} {
		want, err := mem.LoadScope(ctx, userID)
		require.NoError(t, err)
		got, err := pg.LoadScope(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(want, got, parityOpts), "scope for %s", userID)

		wantItems, err := mem.WorkItems(ctx, domain.WorkItemFilter{WorkspaceIDs: want.WorkspaceIDs})
		require.NoError(t, err)
		gotItems, err := pg.WorkItems(ctx, domain.WorkItemFilter{WorkspaceIDs: want.WorkspaceIDs})
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(wantItems, gotItems, parityOpts), "open items for %s", userID)

		wantAll, err := mem.WorkItems(ctx, domain.WorkItemFilter{WorkspaceIDs: want.WorkspaceIDs, IncludeCompleted: true, AssigneeID: userID})
		require.NoError(t, err)
		gotAll, err := pg.WorkItems(ctx, domain.WorkItemFilter{WorkspaceIDs: want.WorkspaceIDs, IncludeCompleted: true, AssigneeID: userID})
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(wantAll, gotAll, parityOpts), "assigned items for %s", userID)

		wantWs, err := mem.Workspaces(ctx, want.WorkspaceIDs)
		require.NoError(t, err)
		gotWs, err := pg.Workspaces(ctx, want.WorkspaceIDs)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(wantWs, gotWs, parityOpts), "workspaces for %s", userID)

		wantTenants, err := mem.TenantsForUser(ctx, userID)
		require.NoError(t, err)
		gotTenants, err := pg.TenantsForUser(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(wantTenants, gotTenants, parityOpts), "tenants for %s", userID)

		filter := domain.MeetingFilter{TenantIDs: want.TenantIDs, WorkspaceIDs: want.WorkspaceIDs}
		wantMeetings, err := mem.Meetings(ctx, filter)
		require.NoError(t, err)
		gotMeetings, err := pg.Meetings(ctx, filter)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(wantMeetings, gotMeetings, parityOpts), "meetings for %s", userID)

		pageFilter := domain.DocPageFilter{TenantIDs: want.TenantIDs, PublishedOnly: true}
		wantPages, err := mem.DocPages(ctx, pageFilter)
		require.NoError(t, err)
		gotPages, err := pg.DocPages(ctx, pageFilter)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(wantPages, gotPages, parityOpts), "pages for %s", userID)
	}
}

func TestStore_NotFound(t *testing.T) {
	pool, _ := seeded(t)
	ctx := context.Background()
	pg := NewStore(pool)

	_, err := pg.LoadScope(ctx, "u-nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = pg.TenantByID(ctx, "t-missing")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)

	_, err = pg.WorkItemByID(ctx, "wi-missing")
	assert.ErrorIs(t, err, domain.ErrWorkItemNotFound)

	_, err = pg.DocPageByID(ctx, "p-missing")
	assert.ErrorIs(t, err, domain.ErrPageNotFound)
}

func TestStore_TenantCounts(t *testing.T) {
	pool, _ := seeded(t)
	ctx := context.Background()

	acme, err := NewStore(pool).TenantByID(ctx, "t-acme")
	require.NoError(t, err)
	assert.Equal(t, 3, acme.MemberCount)
	assert.Equal(t, 2, acme.WorkspaceCount)
}

func TestStore_MeetingTitleFilter(t *testing.T) {
	pool, mem := seeded(t)
	ctx := context.Background()

	scope, err := mem.LoadScope(ctx, "u-alice")
	require.NoError(t, err)

	meetings, err := NewStore(pool).Meetings(ctx, domain.MeetingFilter{
		TenantIDs:     scope.TenantIDs,
		WorkspaceIDs:  scope.WorkspaceIDs,
		TitleContains: "PLANNING",
		Limit:         1,
	})
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Contains(t, meetings[0].Title, "Planning")
}

func TestStore_SearchDocsByEmbedding(t *testing.T) {
	pool, _ := seeded(t)
	ctx := context.Background()
	pg := NewStore(pool)

	near := make([]float32, 1536)
	near[0] = 1
	far := make([]float32, 1536)
	far[1] = 1

	require.NoError(t, pg.SetPageEmbedding(ctx, "p-onboarding", near))
	require.NoError(t, pg.SetPageEmbedding(ctx, "p-postmortem", far))
	// Unpublished pages never surface.
	require.NoError(t, pg.SetPageEmbedding(ctx, "p-draft", near))

	pages, err := pg.SearchDocsByEmbedding(ctx, near, []string{"t-acme", "t-globex"}, 5)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "p-onboarding", pages[0].ID)
	assert.Equal(t, "p-postmortem", pages[1].ID)

	none, err := pg.SearchDocsByEmbedding(ctx, near, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	assert.ErrorIs(t, pg.SetPageEmbedding(ctx, "p-missing", near), domain.ErrPageNotFound)
}

func TestEmbeddingJobRepository_Lifecycle(t *testing.T) {
	pool, _ := seeded(t)
	ctx := context.Background()
	jobs := NewEmbeddingJobRepository(pool)

	created, err := jobs.EnqueueMissing(ctx, uuid.NewString)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	again, err := jobs.EnqueueMissing(ctx, uuid.NewString)
	require.NoError(t, err)
	assert.Zero(t, again, "pages with open jobs are not re-enqueued")

	claimed, err := jobs.GetPendingJobs(ctx)
	require.NoError(t, err)
	require.Len(t, claimed, 3)
	for _, job := range claimed {
		assert.Equal(t, domain.EmbeddingJobStatusProcessing, job.Status)
	}

	job := claimed[0]
	require.NoError(t, jobs.IncrementRetries(ctx, job.ID))
	require.NoError(t, jobs.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, "rate limited"))

	stored, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingJobStatusFailed, stored.Status)
	assert.Equal(t, int32(1), stored.Retries)
	assert.Equal(t, "rate limited", stored.Error)
	assert.NotNil(t, stored.ProcessedAt)

	assert.ErrorIs(t, jobs.IncrementRetries(ctx, "missing"), ErrEmbeddingJobNotFound)
	_, err = jobs.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrEmbeddingJobNotFound)
}

func TestTxRunner_ImportIsIdempotent(t *testing.T) {
	pool, mem := seeded(t)
	ctx := context.Background()

	counts, err := NewTxRunner(pool).Import(ctx, mem.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Users)

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM work_items`).Scan(&n))
	assert.Equal(t, 5, n)
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM tenant_members`).Scan(&n))
	assert.Equal(t, 5, n)
}

func TestTxRunner_RollsBackOnError(t *testing.T) {
	pool, _ := seeded(t)
	ctx := context.Background()

	snap := &memstore.Snapshot{
		Users:     []domain.User{{ID: "u-dan", Name: "Dan"}},
		WorkItems: []domain.WorkItem{{ID: "wi-orphan", Title: "Orphan", TenantID: "t-none", WorkspaceID: "w-none"}},
	}
	_, err := NewTxRunner(pool).Import(ctx, snap)
	require.Error(t, err)

	_, err = NewStore(pool).LoadScope(ctx, "u-dan")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
