// Package idalloc issues monotonically increasing identifiers from named
// counters. Every backend performs the increment as one atomic operation
// so concurrent callers never receive the same value.
package idalloc

import (
	"context"
	"strings"

	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// Allocator hands out the next value of a named counter. The first call for
// an unknown counter returns 1.
type Allocator interface {
	Next(ctx context.Context, counter string) (int64, error)
}

func validateCounter(counter string) error {
	if strings.TrimSpace(counter) == "" {
		return apperrors.NewValidationError("counter name required", map[string]any{"counter": "required"})
	}
	return nil
}
