package authz

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procura-io/procura/internal/platform/db"
)

// Source provides fully materialized catalog tables. The snapshot builder is
// agnostic to where rows come from; this is the seam test fakes implement.
type Source interface {
	FetchCatalog(ctx context.Context) (CatalogRows, error)
}

// CatalogRows carries one complete read of the catalog tables, soft-deleted
// rows included. Filtering happens during snapshot construction.
type CatalogRows struct {
	Roles       []Role
	Groups      []PermissionGroup
	Permissions []Permission
	Assignments []Assignment
}

// Repository reads the catalog tables from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const auditColumns = `created_by, created_date, modified_by, modified_date, is_deleted, deleted_by, deleted_date`

func scanAuditFields(a *AuditFields, createdBy *int64, createdAt *time.Time, modifiedBy *int64, modifiedAt *time.Time, deleted *bool, deletedBy *int64, deletedAt *time.Time) {
	if createdBy != nil {
		a.CreatedBy = *createdBy
	}
	if createdAt != nil {
		a.CreatedAt = *createdAt
	}
	if modifiedBy != nil {
		a.ModifiedBy = *modifiedBy
	}
	if modifiedAt != nil {
		a.ModifiedAt = *modifiedAt
	}
	if deleted != nil {
		a.Deleted = *deleted
	}
	if deletedBy != nil {
		a.DeletedBy = *deletedBy
	}
	if deletedAt != nil {
		a.DeletedAt = *deletedAt
	}
}

// auditScanTargets returns scan destinations matching auditColumns.
type auditScan struct {
	createdBy  *int64
	createdAt  *time.Time
	modifiedBy *int64
	modifiedAt *time.Time
	deleted    *bool
	deletedBy  *int64
	deletedAt  *time.Time
}

func (a *auditScan) targets() []any {
	return []any{&a.createdBy, &a.createdAt, &a.modifiedBy, &a.modifiedAt, &a.deleted, &a.deletedBy, &a.deletedAt}
}

func (a *auditScan) apply(fields *AuditFields) {
	scanAuditFields(fields, a.createdBy, a.createdAt, a.modifiedBy, a.modifiedAt, a.deleted, a.deletedBy, a.deletedAt)
}

// FetchCatalog reads all four tables inside one repeatable-read transaction
// so a snapshot never mixes rows from before and after a concurrent write.
func (r *Repository) FetchCatalog(ctx context.Context) (CatalogRows, error) {
	var out CatalogRows
	err := db.WithReadTx(ctx, r.pool, func(tx pgx.Tx) error {
		return r.fetchCatalog(ctx, tx, &out)
	})
	if err != nil {
		return CatalogRows{}, err
	}
	return out, nil
}

func (r *Repository) fetchCatalog(ctx context.Context, tx pgx.Tx, out *CatalogRows) error {
	roles, err := fetchRows(ctx, tx,
		`SELECT role_id, name, description, `+auditColumns+` FROM roles ORDER BY role_id`,
		func(rows pgx.Rows) (Role, error) {
			var role Role
			var audit auditScan
			dest := append([]any{&role.ID, &role.Name, &role.Description}, audit.targets()...)
			if err := rows.Scan(dest...); err != nil {
				return Role{}, err
			}
			audit.apply(&role.AuditFields)
			return role, nil
		})
	if err != nil {
		return err
	}
	out.Roles = roles

	groups, err := fetchRows(ctx, tx,
		`SELECT permission_group_id, permission_group_name, display_name, icon, is_active, order_index, `+auditColumns+` FROM permission_groups ORDER BY permission_group_id`,
		func(rows pgx.Rows) (PermissionGroup, error) {
			var group PermissionGroup
			var audit auditScan
			dest := append([]any{&group.ID, &group.InternalName, &group.DisplayName, &group.Icon, &group.IsActive, &group.OrderIndex}, audit.targets()...)
			if err := rows.Scan(dest...); err != nil {
				return PermissionGroup{}, err
			}
			audit.apply(&group.AuditFields)
			return group, nil
		})
	if err != nil {
		return err
	}
	out.Groups = groups

	permissions, err := fetchRows(ctx, tx,
		`SELECT permission_id, permission_name, description, permission_group_id, `+auditColumns+` FROM permissions ORDER BY permission_id`,
		func(rows pgx.Rows) (Permission, error) {
			var perm Permission
			var audit auditScan
			dest := append([]any{&perm.ID, &perm.Name, &perm.Description, &perm.GroupID}, audit.targets()...)
			if err := rows.Scan(dest...); err != nil {
				return Permission{}, err
			}
			audit.apply(&perm.AuditFields)
			return perm, nil
		})
	if err != nil {
		return err
	}
	out.Permissions = permissions

	assignments, err := fetchRows(ctx, tx,
		`SELECT id, role_id, permission_group_id, permission_id, `+auditColumns+` FROM permissions_template ORDER BY id`,
		func(rows pgx.Rows) (Assignment, error) {
			var assignment Assignment
			var audit auditScan
			dest := append([]any{&assignment.ID, &assignment.RoleID, &assignment.GroupID, &assignment.PermissionID}, audit.targets()...)
			if err := rows.Scan(dest...); err != nil {
				return Assignment{}, err
			}
			audit.apply(&assignment.AuditFields)
			return assignment, nil
		})
	if err != nil {
		return err
	}
	out.Assignments = assignments

	return nil
}

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func fetchRows[T any](ctx context.Context, q querier, query string, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
