package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

// CompanyRepository persists companies.
type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	Update(ctx context.Context, company *domain.Company) error
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Company, error)
}

type companyRepository struct {
	db persistence.Querier
}

// NewCompanyRepository returns a Postgres-backed implementation.
func NewCompanyRepository(db persistence.Querier) CompanyRepository {
	return &companyRepository{db: db}
}

const companyColumns = `id, name, address, phone, status, deactivated_by, deactivated_at, deactivation_reason, created_at, updated_at`

func (r *companyRepository) Create(ctx context.Context, company *domain.Company) error {
	const query = `
        INSERT INTO companies (id, name, address, phone, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		company.ID,
		company.Name,
		company.Address,
		company.Phone,
		company.Status,
	).Scan(&company.CreatedAt, &company.UpdatedAt)
	return mapWriteError(err)
}

func (r *companyRepository) Update(ctx context.Context, company *domain.Company) error {
	const query = `
        UPDATE companies SET name=$1, address=$2, phone=$3, status=$4, deactivated_by=$5,
            deactivated_at=$6, deactivation_reason=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.db.Exec(ctx, query,
		company.Name,
		company.Address,
		company.Phone,
		company.Status,
		company.DeactivatedBy,
		company.DeactivatedAt,
		company.DeactivationReason,
		company.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *companyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id=$1`
	company, err := scanCompany(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapRowError(err)
	}
	return company, nil
}

func (r *companyRepository) List(ctx context.Context, activeOnly bool) ([]domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies`
	args := []any{}
	if activeOnly {
		query += ` WHERE status=$1`
		args = append(args, domain.CompanyStatusActive)
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []domain.Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, *company)
	}
	return companies, rows.Err()
}

func scanCompany(row pgx.Row) (*domain.Company, error) {
	var company domain.Company
	if err := row.Scan(
		&company.ID,
		&company.Name,
		&company.Address,
		&company.Phone,
		&company.Status,
		&company.DeactivatedBy,
		&company.DeactivatedAt,
		&company.DeactivationReason,
		&company.CreatedAt,
		&company.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &company, nil
}
