package repository

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads tenants, workspaces, work items, meetings and documentation
// pages from PostgreSQL.
type Store struct {
	db dbtx
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

func NewStoreWithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

// LoadScope resolves the tenants and workspaces visible to a user: the
// primary tenant, tenants they created or belong to, every workspace of
// those tenants and workspaces they were added to directly.
func (s *Store) LoadScope(ctx context.Context, userID string) (*domain.Scope, error) {
	var scope domain.Scope
	var primary pgtype.Text
	err := s.db.QueryRow(ctx,
		`SELECT id, name, primary_tenant_id FROM users WHERE id = $1`,
		userID,
	).Scan(&scope.UserID, &scope.UserName, &primary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if primary.Valid {
		scope.PrimaryTenantID = primary.String
	}

	rows, err := s.db.Query(ctx,
		`WITH member_tenants AS (
			 SELECT id FROM tenants
			 WHERE id = $2 OR created_by_id = $1
			    OR id IN (SELECT tenant_id FROM tenant_members WHERE user_id = $1)
		 )
		 SELECT w.id, w.tenant_id
		 FROM workspaces w
		 WHERE w.tenant_id IN (SELECT id FROM member_tenants)
		    OR w.id IN (SELECT workspace_id FROM workspace_members WHERE user_id = $1)
		 UNION ALL
		 SELECT '', id FROM member_tenants`,
		userID, scope.PrimaryTenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenantSet := make(map[string]struct{})
	workspaceSet := make(map[string]struct{})
	for rows.Next() {
		var workspaceID, tenantID string
		if err := rows.Scan(&workspaceID, &tenantID); err != nil {
			return nil, err
		}
		tenantSet[tenantID] = struct{}{}
		if workspaceID != "" {
			workspaceSet[workspaceID] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	scope.TenantIDs = sortedSet(tenantSet)
	scope.WorkspaceIDs = sortedSet(workspaceSet)
	return &scope, nil
}

const tenantColumns = `
	t.id, t.name, COALESCE(t.created_by_id, ''), t.created_at,
	(SELECT COUNT(*) FROM tenant_members m WHERE m.tenant_id = t.id),
	(SELECT COUNT(*) FROM workspaces w WHERE w.tenant_id = t.id)`

func (s *Store) TenantByID(ctx context.Context, id string) (*domain.Tenant, error) {
	rows, err := s.db.Query(ctx, `SELECT `+tenantColumns+` FROM tenants t WHERE t.id = $1`, id)
	if err != nil {
		return nil, err
	}
	tenants, err := scanTenants(rows)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, domain.ErrTenantNotFound
	}
	return tenants[0], nil
}

// TenantsForWorkspaces returns the distinct tenants owning the given workspaces
func (s *Store) TenantsForWorkspaces(ctx context.Context, workspaceIDs []string) ([]*domain.Tenant, error) {
	if len(workspaceIDs) == 0 {
		return []*domain.Tenant{}, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants t
		 WHERE t.id IN (SELECT tenant_id FROM workspaces WHERE id = ANY($1))
		 ORDER BY t.name, t.id`,
		workspaceIDs,
	)
	if err != nil {
		return nil, err
	}
	return scanTenants(rows)
}

// TenantsForUser returns the tenants the user created or is a member of
func (s *Store) TenantsForUser(ctx context.Context, userID string) ([]*domain.Tenant, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants t
		 WHERE t.created_by_id = $1
		    OR t.id IN (SELECT tenant_id FROM tenant_members WHERE user_id = $1)
		 ORDER BY t.name, t.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return scanTenants(rows)
}

func scanTenants(rows pgx.Rows) ([]*domain.Tenant, error) {
	defer rows.Close()

	tenants := make([]*domain.Tenant, 0)
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedByID, &t.CreatedAt, &t.MemberCount, &t.WorkspaceCount); err != nil {
			return nil, err
		}
		tenants = append(tenants, &t)
	}
	return tenants, rows.Err()
}

// Workspaces returns the requested workspaces ordered by name
func (s *Store) Workspaces(ctx context.Context, ids []string) ([]*domain.Workspace, error) {
	if len(ids) == 0 {
		return []*domain.Workspace{}, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT w.id, w.tenant_id, w.name, w.created_at,
		        ARRAY(SELECT u.name FROM workspace_members wm JOIN users u ON u.id = wm.user_id
		              WHERE wm.workspace_id = w.id ORDER BY u.name)
		 FROM workspaces w
		 WHERE w.id = ANY($1)
		 ORDER BY w.name, w.id`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workspaces := make([]*domain.Workspace, 0)
	for rows.Next() {
		var w domain.Workspace
		if err := rows.Scan(&w.ID, &w.TenantID, &w.Name, &w.CreatedAt, &w.MemberNames); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, &w)
	}
	return workspaces, rows.Err()
}

const workItemColumns = `
	i.id, i.title, i.description, i.tenant_id, i.workspace_id, w.name, i.column_name,
	COALESCE(i.assignee_id, ''), COALESCE(u.name, ''), i.priority, i.progress, i.due_date,
	i.risk_level, i.risk_likelihood, i.risk_impact, i.risk_score, i.ai_risk_score,
	i.labels, i.mitigations, i.stakeholders, i.blocked, i.blocked_reason,
	i.predecessor_ids, i.parent_id, i.completed_at, i.created_at, i.updated_at`

const workItemFrom = `
	FROM work_items i
	JOIN workspaces w ON w.id = i.workspace_id
	LEFT JOIN users u ON u.id = i.assignee_id`

// WorkItems returns items in the filter's workspaces, most recently updated first
func (s *Store) WorkItems(ctx context.Context, filter domain.WorkItemFilter) ([]*domain.WorkItem, error) {
	if len(filter.WorkspaceIDs) == 0 {
		return []*domain.WorkItem{}, nil
	}

	query := `SELECT ` + workItemColumns + workItemFrom + ` WHERE i.workspace_id = ANY($1)`
	args := []any{filter.WorkspaceIDs}

	if filter.AssigneeID != "" {
		args = append(args, filter.AssigneeID)
		query += ` AND i.assignee_id = $` + strconv.Itoa(len(args))
	}
	if !filter.IncludeCompleted {
		args = append(args, domain.CompletedColumns())
		query += ` AND i.completed_at IS NULL AND i.progress < 100
		           AND LOWER(BTRIM(i.column_name)) <> ALL($` + strconv.Itoa(len(args)) + `)`
	}
	if filter.UpdatedSince != nil {
		args = append(args, *filter.UpdatedSince)
		query += ` AND i.updated_at >= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY i.updated_at DESC, i.id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanWorkItems(rows)
}

// WorkItemByID returns one item regardless of scope
func (s *Store) WorkItemByID(ctx context.Context, id string) (*domain.WorkItem, error) {
	rows, err := s.db.Query(ctx, `SELECT `+workItemColumns+workItemFrom+` WHERE i.id = $1`, id)
	if err != nil {
		return nil, err
	}
	items, err := scanWorkItems(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrWorkItemNotFound
	}
	return items[0], nil
}

func scanWorkItems(rows pgx.Rows) ([]*domain.WorkItem, error) {
	defer rows.Close()

	items := make([]*domain.WorkItem, 0)
	for rows.Next() {
		var item domain.WorkItem
		var priority, risk string
		if err := rows.Scan(
			&item.ID, &item.Title, &item.Description, &item.TenantID, &item.WorkspaceID, &item.WorkspaceName, &item.Column,
			&item.AssigneeID, &item.AssigneeName, &priority, &item.Progress, &item.DueDate,
			&risk, &item.RiskLikelihood, &item.RiskImpact, &item.RiskScore, &item.AIRiskScore,
			&item.Labels, &item.Mitigations, &item.Stakeholders, &item.Blocked, &item.BlockedReason,
			&item.PredecessorIDs, &item.ParentID, &item.CompletedAt, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.Priority = domain.Priority(priority)
		item.RiskLevel = domain.RiskLevel(risk)
		items = append(items, &item)
	}
	return items, rows.Err()
}

// Meetings returns visible meetings, most recent first. Tenant-wide meetings
// (no workspace) are visible to the tenant's members.
func (s *Store) Meetings(ctx context.Context, filter domain.MeetingFilter) ([]*domain.Meeting, error) {
	query := `
		SELECT m.id, m.tenant_id, COALESCE(m.workspace_id, ''), COALESCE(w.name, ''), m.title, m.held_at,
		       m.attendees, m.action_items, m.decisions, m.notes
		FROM meetings m
		LEFT JOIN workspaces w ON w.id = m.workspace_id
		WHERE (m.workspace_id = ANY($1) OR (m.workspace_id IS NULL AND m.tenant_id = ANY($2)))`
	args := []any{nonNil(filter.WorkspaceIDs), nonNil(filter.TenantIDs)}

	if filter.TitleContains != "" {
		args = append(args, filter.TitleContains)
		query += ` AND m.title ILIKE '%' || $` + strconv.Itoa(len(args)) + ` || '%'`
	}
	query += ` ORDER BY m.held_at DESC, m.id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meetings := make([]*domain.Meeting, 0)
	for rows.Next() {
		var m domain.Meeting
		if err := rows.Scan(&m.ID, &m.TenantID, &m.WorkspaceID, &m.WorkspaceName, &m.Title, &m.HeldAt,
			&m.Attendees, &m.ActionItems, &m.Decisions, &m.Notes); err != nil {
			return nil, err
		}
		meetings = append(meetings, &m)
	}
	return meetings, rows.Err()
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
