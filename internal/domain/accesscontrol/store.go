package accesscontrol

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
	GetUserRoles(ctx context.Context, userID int64) ([]Role, error)
	HasPermission(ctx context.Context, role RoleCode, perm PermissionCode) (bool, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) error {
	query := `
        INSERT INTO user_roles (user_id, role_id)
        VALUES ($1, $2)
        ON CONFLICT DO NOTHING
    `
	_, err := r.db.Exec(ctx, query, userID, roleID)
	return err
}

func (r *Repository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	query := `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`
	result, err := r.db.Exec(ctx, query, userID, roleID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("role not found for user_id=%d role_id=%d", userID, roleID)
	}
	return nil
}

func (r *Repository) GetUserRoles(ctx context.Context, userID int64) ([]Role, error) {
	query := `
        SELECT r.id, r.name, r.description, r.created_at, r.updated_at
        FROM roles r
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id = $1
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// HasPermission is the external permission-table lookup the evaluator
// consults for app-surface roles. The evaluator owns the timeout budget and
// the fail-open policy; this just runs the query.
func (r *Repository) HasPermission(ctx context.Context, role RoleCode, perm PermissionCode) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS (
            SELECT 1
            FROM role_permissions rp
            JOIN roles r ON rp.role_id = r.id
            JOIN permissions p ON rp.permission_id = p.id
            WHERE r.name = $1 AND p.code = $2
        )
    `
	err := r.db.QueryRow(ctx, query, string(role), string(perm)).Scan(&exists)
	return exists, err
}
