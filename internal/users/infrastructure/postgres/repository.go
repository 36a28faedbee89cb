package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	users "github.com/buzzn/myBuzzn-backend-sub000/internal/users/domain"
)

const (
	defaultUserTable  = "users"
	defaultGroupTable = "groups"
)

// Repository reads users and groups from Postgres.
type Repository struct {
	db         *sql.DB
	userTable  string
	groupTable string
}

// NewRepository creates a repository using the default table names.
func NewRepository(db *sql.DB, opts ...RepositoryOption) *Repository {
	repo := &Repository{db: db, userTable: defaultUserTable, groupTable: defaultGroupTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*Repository)

// WithTables overrides the default table names.
func WithTables(userTable, groupTable string) RepositoryOption {
	return func(repo *Repository) {
		if userTable != "" {
			repo.userTable = userTable
		}
		if groupTable != "" {
			repo.groupTable = groupTable
		}
	}
}

const userColumns = `
	id,
	name,
	COALESCE(meter_id, ''),
	COALESCE(group_id, ''),
	COALESCE(inhabitants, 0),
	COALESCE(baseline, 0)`

// Get loads a user by id.
func (r *Repository) Get(ctx context.Context, id string) (*users.User, error) {
	if id == "" {
		return nil, users.ErrEmptyID
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE id = $1
LIMIT 1`, userColumns, r.userTable)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List loads all users ordered by id.
func (r *Repository) List(ctx context.Context) ([]users.User, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM %s
ORDER BY id ASC`, userColumns, r.userTable)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []users.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListGroups loads all groups ordered by id.
func (r *Repository) ListGroups(ctx context.Context) ([]users.Group, error) {
	query := fmt.Sprintf(`
SELECT id, name, COALESCE(group_meter_id, '')
FROM %s
ORDER BY id ASC`, r.groupTable)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []users.Group
	for rows.Next() {
		var group users.Group
		if err := rows.Scan(&group.ID, &group.Name, &group.GroupMeterID); err != nil {
			return nil, err
		}
		result = append(result, group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*users.User, error) {
	var user users.User
	if err := scanner.Scan(
		&user.ID,
		&user.Name,
		&user.MeterID,
		&user.GroupID,
		&user.Inhabitants,
		&user.Baseline,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
