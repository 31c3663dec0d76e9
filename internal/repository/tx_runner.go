package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/taskpilot/internal/memstore"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner runs repository work inside a single transaction.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// TxRepositories exposes repositories bound to one transaction
type TxRepositories interface {
	Store() *Store
	EmbeddingJobs() *EmbeddingJobRepository
	Exec(ctx context.Context, sql string, args ...any) error
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := &txRepos{tx: tx}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type txRepos struct {
	tx pgx.Tx
}

func (r *txRepos) Store() *Store {
	return NewStoreWithTx(r.tx)
}

func (r *txRepos) EmbeddingJobs() *EmbeddingJobRepository {
	return NewEmbeddingJobRepositoryWithTx(r.tx)
}

func (r *txRepos) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := r.tx.Exec(ctx, sql, args...)
	return err
}

// ImportCounts reports how many rows of each kind an import wrote
type ImportCounts struct {
	Users      int `json:"users"`
	Tenants    int `json:"tenants"`
	Workspaces int `json:"workspaces"`
	WorkItems  int `json:"work_items"`
	Meetings   int `json:"meetings"`
	Pages      int `json:"pages"`
}

// Import upserts a snapshot in one transaction. Existing rows with the same
// IDs are overwritten; membership lists are replaced.
func (r *TxRunner) Import(ctx context.Context, snap *memstore.Snapshot) (*ImportCounts, error) {
	counts := &ImportCounts{}
	err := r.WithTx(ctx, func(repos TxRepositories) error {
		for _, u := range snap.Users {
			if err := repos.Exec(ctx,
				`INSERT INTO users (id, name) VALUES ($1, $2)
				 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
				u.ID, u.Name,
			); err != nil {
				return fmt.Errorf("user %s: %w", u.ID, err)
			}
			counts.Users++
		}

		for _, t := range snap.Tenants {
			if err := repos.Exec(ctx,
				`INSERT INTO tenants (id, name, created_by_id, created_at)
				 VALUES ($1, $2, NULLIF($3, ''), $4)
				 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, created_by_id = EXCLUDED.created_by_id`,
				t.ID, t.Name, t.CreatedByID, orNow(t.CreatedAt),
			); err != nil {
				return fmt.Errorf("tenant %s: %w", t.ID, err)
			}
			if err := repos.Exec(ctx, `DELETE FROM tenant_members WHERE tenant_id = $1`, t.ID); err != nil {
				return err
			}
			counts.Tenants++
		}
		for _, m := range snap.TenantMembers {
			if err := repos.Exec(ctx,
				`INSERT INTO tenant_members (tenant_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				m.ParentID, m.UserID,
			); err != nil {
				return fmt.Errorf("tenant member %s/%s: %w", m.ParentID, m.UserID, err)
			}
		}

		// Primary tenants reference tenants, so they are set after both exist.
		for _, u := range snap.Users {
			if u.PrimaryTenantID == "" {
				continue
			}
			if err := repos.Exec(ctx,
				`UPDATE users SET primary_tenant_id = $1 WHERE id = $2`,
				u.PrimaryTenantID, u.ID,
			); err != nil {
				return fmt.Errorf("user %s: %w", u.ID, err)
			}
		}

		for _, w := range snap.Workspaces {
			if err := repos.Exec(ctx,
				`INSERT INTO workspaces (id, tenant_id, name) VALUES ($1, $2, $3)
				 ON CONFLICT (id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id, name = EXCLUDED.name`,
				w.ID, w.TenantID, w.Name,
			); err != nil {
				return fmt.Errorf("workspace %s: %w", w.ID, err)
			}
			if err := repos.Exec(ctx, `DELETE FROM workspace_members WHERE workspace_id = $1`, w.ID); err != nil {
				return err
			}
			counts.Workspaces++
		}
		for _, m := range snap.WorkspaceMembers {
			if err := repos.Exec(ctx,
				`INSERT INTO workspace_members (workspace_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				m.ParentID, m.UserID,
			); err != nil {
				return fmt.Errorf("workspace member %s/%s: %w", m.ParentID, m.UserID, err)
			}
		}

		for _, i := range snap.WorkItems {
			if err := repos.Exec(ctx,
				`INSERT INTO work_items (
				     id, tenant_id, workspace_id, title, description, column_name, assignee_id, priority, progress, due_date,
				     risk_level, risk_likelihood, risk_impact, risk_score, ai_risk_score,
				     labels, mitigations, stakeholders, blocked, blocked_reason, predecessor_ids, parent_id,
				     completed_at, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12, $13, $14, $15,
				         $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
				 ON CONFLICT (id) DO UPDATE SET
				     tenant_id = EXCLUDED.tenant_id, workspace_id = EXCLUDED.workspace_id, title = EXCLUDED.title,
				     description = EXCLUDED.description, column_name = EXCLUDED.column_name,
				     assignee_id = EXCLUDED.assignee_id, priority = EXCLUDED.priority, progress = EXCLUDED.progress,
				     due_date = EXCLUDED.due_date, risk_level = EXCLUDED.risk_level,
				     risk_likelihood = EXCLUDED.risk_likelihood, risk_impact = EXCLUDED.risk_impact,
				     risk_score = EXCLUDED.risk_score, ai_risk_score = EXCLUDED.ai_risk_score,
				     labels = EXCLUDED.labels, mitigations = EXCLUDED.mitigations, stakeholders = EXCLUDED.stakeholders,
				     blocked = EXCLUDED.blocked, blocked_reason = EXCLUDED.blocked_reason,
				     predecessor_ids = EXCLUDED.predecessor_ids, parent_id = EXCLUDED.parent_id,
				     completed_at = EXCLUDED.completed_at, updated_at = EXCLUDED.updated_at`,
				i.ID, i.TenantID, i.WorkspaceID, i.Title, i.Description, i.Column, i.AssigneeID, string(i.Priority), i.Progress, i.DueDate,
				string(i.RiskLevel), i.RiskLikelihood, i.RiskImpact, i.RiskScore, i.AIRiskScore,
				nonNil(i.Labels), nonNil(i.Mitigations), nonNil(i.Stakeholders), i.Blocked, i.BlockedReason,
				nonNil(i.PredecessorIDs), i.ParentID, i.CompletedAt, orNow(i.CreatedAt), orNow(i.UpdatedAt),
			); err != nil {
				return fmt.Errorf("work item %s: %w", i.ID, err)
			}
			counts.WorkItems++
		}

		for _, m := range snap.Meetings {
			if err := repos.Exec(ctx,
				`INSERT INTO meetings (id, tenant_id, workspace_id, title, held_at, attendees, action_items, decisions, notes)
				 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
				 ON CONFLICT (id) DO UPDATE SET
				     tenant_id = EXCLUDED.tenant_id, workspace_id = EXCLUDED.workspace_id, title = EXCLUDED.title,
				     held_at = EXCLUDED.held_at, attendees = EXCLUDED.attendees, action_items = EXCLUDED.action_items,
				     decisions = EXCLUDED.decisions, notes = EXCLUDED.notes`,
				m.ID, m.TenantID, m.WorkspaceID, m.Title, m.HeldAt,
				nonNil(m.Attendees), nonNil(m.ActionItems), nonNil(m.Decisions), m.Notes,
			); err != nil {
				return fmt.Errorf("meeting %s: %w", m.ID, err)
			}
			counts.Meetings++
		}

		for _, p := range snap.Pages {
			// Changing the content invalidates the stored embedding.
			if err := repos.Exec(ctx,
				`INSERT INTO doc_pages (id, tenant_id, title, category, tags, published, body, body_object_key, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				 ON CONFLICT (id) DO UPDATE SET
				     tenant_id = EXCLUDED.tenant_id, title = EXCLUDED.title, category = EXCLUDED.category,
				     tags = EXCLUDED.tags, published = EXCLUDED.published, body = EXCLUDED.body,
				     body_object_key = EXCLUDED.body_object_key, updated_at = EXCLUDED.updated_at,
				     embedding = CASE
				         WHEN doc_pages.title = EXCLUDED.title AND doc_pages.body = EXCLUDED.body
				          AND doc_pages.body_object_key = EXCLUDED.body_object_key THEN doc_pages.embedding
				         ELSE NULL
				     END`,
				p.ID, p.TenantID, p.Title, p.Category, nonNil(p.Tags), p.Published, p.Body, p.BodyObjectKey, orNow(p.UpdatedAt),
			); err != nil {
				return fmt.Errorf("page %s: %w", p.ID, err)
			}
			counts.Pages++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
