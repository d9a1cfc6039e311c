package auditactions

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Source provides a fully materialized read of the action table.
type Source interface {
	FetchDefinitions(ctx context.Context) ([]Definition, error)
}

// Repository reads audit action definitions from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FetchDefinitions returns every action row, soft-deleted ones included.
func (r *Repository) FetchDefinitions(ctx context.Context) ([]Definition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT action_name_id, action_name, action_description, action_type,
		       created_by, created_date, modified_by, modified_date, is_deleted, deleted_by, deleted_date
		FROM user_audit_actions
		ORDER BY action_name_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var definitions []Definition
	for rows.Next() {
		var def Definition
		var name, description, kind *string
		var createdBy, modifiedBy, deletedBy *int64
		var createdAt, modifiedAt, deletedAt *time.Time
		var deleted *bool
		if err := rows.Scan(
			&def.ID, &name, &description, &kind,
			&createdBy, &createdAt, &modifiedBy, &modifiedAt, &deleted, &deletedBy, &deletedAt,
		); err != nil {
			return nil, err
		}
		if name != nil {
			def.Name = *name
		}
		if description != nil {
			def.Description = *description
		}
		rawKind := ""
		if kind != nil {
			rawKind = *kind
		}
		parsed, err := ParseKind(rawKind)
		if err != nil {
			return nil, err
		}
		def.Kind = parsed
		if createdBy != nil {
			def.CreatedBy = *createdBy
		}
		if createdAt != nil {
			def.CreatedAt = *createdAt
		}
		if modifiedBy != nil {
			def.ModifiedBy = *modifiedBy
		}
		if modifiedAt != nil {
			def.ModifiedAt = *modifiedAt
		}
		if deleted != nil {
			def.Deleted = *deleted
		}
		if deletedBy != nil {
			def.DeletedBy = *deletedBy
		}
		if deletedAt != nil {
			def.DeletedAt = *deletedAt
		}
		definitions = append(definitions, def)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return definitions, nil
}
