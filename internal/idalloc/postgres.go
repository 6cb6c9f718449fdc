package idalloc

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/persistence"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const incrementCounterQuery = `
        INSERT INTO counters (name, count) VALUES ($1, 1)
        ON CONFLICT (name) DO UPDATE SET count = counters.count + 1
        RETURNING count`

type postgresAllocator struct {
	db persistence.Querier
}

// NewPostgresAllocator stores counters as rows of the counters table.
func NewPostgresAllocator(db persistence.Querier) Allocator {
	return &postgresAllocator{db: db}
}

func (a *postgresAllocator) Next(ctx context.Context, counter string) (int64, error) {
	if err := validateCounter(counter); err != nil {
		return 0, err
	}
	var value int64
	if err := a.db.QueryRow(ctx, incrementCounterQuery, counter).Scan(&value); err != nil {
		return 0, apperrors.NewAllocationError(counter, err)
	}
	return value, nil
}
