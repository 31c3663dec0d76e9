package repository

import (
	"context"
	"strconv"

	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const docPageColumns = `id, tenant_id, title, category, tags, published, body, body_object_key, updated_at`

// DocPages returns documentation pages of the filter's tenants, most recently updated first
func (s *Store) DocPages(ctx context.Context, filter domain.DocPageFilter) ([]*domain.DocPage, error) {
	if len(filter.TenantIDs) == 0 {
		return []*domain.DocPage{}, nil
	}

	query := `SELECT ` + docPageColumns + ` FROM doc_pages WHERE tenant_id = ANY($1)`
	args := []any{filter.TenantIDs}
	if filter.PublishedOnly {
		query += ` AND published`
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += ` AND LOWER(category) = LOWER($` + strconv.Itoa(len(args)) + `)`
	}
	query += ` ORDER BY updated_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanDocPages(rows)
}

// DocPageByID returns one page
func (s *Store) DocPageByID(ctx context.Context, id string) (*domain.DocPage, error) {
	rows, err := s.db.Query(ctx, `SELECT `+docPageColumns+` FROM doc_pages WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	pages, err := scanDocPages(rows)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, domain.ErrPageNotFound
	}
	return pages[0], nil
}

// SearchDocsByEmbedding returns published pages nearest to embedding by cosine distance
func (s *Store) SearchDocsByEmbedding(ctx context.Context, embedding []float32, tenantIDs []string, limit int) ([]*domain.DocPage, error) {
	if len(tenantIDs) == 0 {
		return []*domain.DocPage{}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+docPageColumns+`
		 FROM doc_pages
		 WHERE tenant_id = ANY($2) AND published AND embedding IS NOT NULL
		 ORDER BY embedding <=> $1, id
		 LIMIT $3`,
		pgvector.NewVector(embedding), tenantIDs, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanDocPages(rows)
}

// SetPageEmbedding stores the embedding for a page
func (s *Store) SetPageEmbedding(ctx context.Context, pageID string, embedding []float32) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE doc_pages SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), pageID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPageNotFound
	}
	return nil
}

func scanDocPages(rows pgx.Rows) ([]*domain.DocPage, error) {
	defer rows.Close()

	pages := make([]*domain.DocPage, 0)
	for rows.Next() {
		var p domain.DocPage
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Title, &p.Category, &p.Tags, &p.Published,
			&p.Body, &p.BodyObjectKey, &p.UpdatedAt); err != nil {
			return nil, err
		}
		pages = append(pages, &p)
	}
	return pages, rows.Err()
}
