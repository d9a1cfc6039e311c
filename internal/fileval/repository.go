package fileval

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Source provides a fully materialized read of the rule table.
type Source interface {
	FetchRules(ctx context.Context) ([]Rule, error)
}

// Repository reads file validation rules from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FetchRules returns every rule row, soft-deleted ones included.
func (r *Repository) FetchRules(ctx context.Context) ([]Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rule_id, company_id, permission_group_id, extension, max_size_mb,
		       created_by, created_date, modified_by, modified_date, is_deleted, deleted_by, deleted_date
		FROM file_validation_rules
		ORDER BY rule_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		var createdBy, modifiedBy, deletedBy *int64
		var createdAt, modifiedAt, deletedAt *time.Time
		var deleted *bool
		if err := rows.Scan(
			&rule.ID, &rule.CompanyID, &rule.GroupID, &rule.Extension, &rule.MaxSizeMB,
			&createdBy, &createdAt, &modifiedBy, &modifiedAt, &deleted, &deletedBy, &deletedAt,
		); err != nil {
			return nil, err
		}
		if createdBy != nil {
			rule.CreatedBy = *createdBy
		}
		if createdAt != nil {
			rule.CreatedAt = *createdAt
		}
		if modifiedBy != nil {
			rule.ModifiedBy = *modifiedBy
		}
		if modifiedAt != nil {
			rule.ModifiedAt = *modifiedAt
		}
		if deleted != nil {
			rule.Deleted = *deleted
		}
		if deletedBy != nil {
			rule.DeletedBy = *deletedBy
		}
		if deletedAt != nil {
			rule.DeletedAt = *deletedAt
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}
