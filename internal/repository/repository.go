// Package repository owns the multi-step writes that keep sets, their aspects,
// tags and the sets_tags links consistent.
//
// Every mutation runs in a single storage transaction, so a failed step leaves
// nothing behind. Failures are returned to the caller as *StepError and logged
// for operators; the two channels are independent.
package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
	"github.com/bcnelson/fulcrum-data-manager/internal/metrics"
	"github.com/bcnelson/fulcrum-data-manager/internal/storage"
	"go.uber.org/zap"
)

// StepError reports which step of an operation failed.
type StepError struct {
	Op   string // e.g. "create set"
	Step string // e.g. "insert aspects"
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Step, e.Err)
}

// Unwrap returns the underlying storage error so errors.Is sees domain sentinels.
func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep returns the step recorded in err, or "" when err carries none.
func FailedStep(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}

// base holds what both repositories share.
type base struct {
	store   storage.Storage
	logger  *zap.Logger
	metrics *metrics.Metrics
	entity  string
}

func newBase(store storage.Storage, logger *zap.Logger, m *metrics.Metrics, entity string) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{
		store:   store,
		logger:  logger.With(zap.String("entity", entity)),
		metrics: m,
		entity:  entity,
	}
}

// inTx runs fn inside one transaction and commits when fn succeeds.
func (b *base) inTx(ctx context.Context, op string, fn func(tx storage.Transaction) error) error {
	tx, err := b.store.BeginTx(ctx)
	if err != nil {
		return &StepError{Op: op, Step: "begin transaction", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &StepError{Op: op, Step: "commit", Err: err}
	}
	return nil
}

// observe records metrics and logs the outcome of an operation.
func (b *base) observe(op string, start time.Time, err error, fields ...zap.Field) {
	elapsed := time.Since(start)
	b.metrics.ObserveOperation(b.entity, op, err, elapsed)

	fields = append(fields, zap.String("op", op), zap.Duration("elapsed", elapsed))
	switch {
	case err == nil:
		b.logger.Debug("operation completed", fields...)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidReference):
		b.logger.Warn("operation rejected", append(fields, zap.String("step", FailedStep(err)), zap.Error(err))...)
	default:
		b.logger.Error("operation failed", append(fields, zap.String("step", FailedStep(err)), zap.Error(err))...)
	}
}

// distinct drops repeated identifiers, keeping first-seen order.
func distinct(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
