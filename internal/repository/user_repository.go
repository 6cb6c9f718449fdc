package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Role      *domain.Role
	Roles     []domain.Role // any of; empty means no restriction
	CompanyID *string
	Limit     int
	Offset    int
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByUID(ctx context.Context, uid string) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
}

type userRepository struct {
	db persistence.Querier
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db persistence.Querier) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `uid, login, password_hash, role, name, phone, location, company_id, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (uid, login, password_hash, role, name, phone, location, company_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		user.UID,
		user.Login,
		user.PasswordHash,
		user.Role,
		user.Name,
		user.Phone,
		user.Location,
		user.CompanyID,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	return mapWriteError(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET login=$1, password_hash=$2, role=$3, name=$4, phone=$5, location=$6, company_id=$7, updated_at=NOW()
        WHERE uid=$8`

	cmd, err := r.db.Exec(ctx, query,
		user.Login,
		user.PasswordHash,
		user.Role,
		user.Name,
		user.Phone,
		user.Location,
		user.CompanyID,
		user.UID,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE uid=$1`
	user, err := scanUser(r.db.QueryRow(ctx, query, uid))
	if err != nil {
		return nil, mapRowError(err)
	}
	return user, nil
}

func (r *userRepository) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE login=$1`
	user, err := scanUser(r.db.QueryRow(ctx, query, login))
	if err != nil {
		return nil, mapRowError(err)
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			roles[i] = string(role)
		}
		args = append(args, roles)
		clauses = append(clauses, fmt.Sprintf("role = ANY($%d)", len(args)))
	}
	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		clauses = append(clauses, fmt.Sprintf("company_id=$%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at ASC LIMIT %d OFFSET %d`,
		userColumns, strings.Join(clauses, " AND "), limit, offset)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.UID,
		&user.Login,
		&user.PasswordHash,
		&user.Role,
		&user.Name,
		&user.Phone,
		&user.Location,
		&user.CompanyID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
