package http

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: quantity", domain.ErrInvalidInput), 400, "VALIDATION"},
		{domain.ErrUnauthorized, 401, "UNAUTHORIZED"},
		{domain.ErrProductNotFound, 404, "NOT_FOUND"},
		{fmt.Errorf("retiro: %w", domain.ErrInsufficientStock), 409, "INSUFFICIENT_STOCK"},
		{domain.ErrDuplicate, 409, "DUPLICATE"},
		{fmt.Errorf("reintentos agotados (3): %w", domain.ErrConflict), 409, "CONFLICT"},
		{fmt.Errorf("tx: %w", context.DeadlineExceeded), 504, "TIMEOUT"},
		{errors.New("disco lleno"), 500, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
