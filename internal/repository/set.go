package repository

import (
	"context"
	"time"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
	"github.com/bcnelson/fulcrum-data-manager/internal/metrics"
	"github.com/bcnelson/fulcrum-data-manager/internal/storage"
	"go.uber.org/zap"
)

// SetRepository persists sets and their aspects.
type SetRepository struct {
	base
}

// NewSetRepository creates a new SetRepository. logger and m may be nil.
func NewSetRepository(store storage.Storage, logger *zap.Logger, m *metrics.Metrics) *SetRepository {
	return &SetRepository{base: newBase(store, logger, m, "set")}
}

// List returns every set with its aspects and tags.
func (r *SetRepository) List(ctx context.Context) (sets []*domain.Set, err error) {
	const op = "list sets"
	start := time.Now()
	defer func() { r.observe(op, start, err) }()

	sets, err = r.store.ListSets(ctx)
	if err != nil {
		return nil, &StepError{Op: op, Step: "read sets", Err: err}
	}
	return sets, nil
}

// Get reads a set row and then its aspects.
func (r *SetRepository) Get(ctx context.Context, id string) (set *domain.Set, err error) {
	const op = "get set"
	start := time.Now()
	defer func() { r.observe(op, start, err, zap.String("set_id", id)) }()

	return r.get(ctx, r.store, op, id)
}

func (r *SetRepository) get(ctx context.Context, db storage.Storage, op, id string) (*domain.Set, error) {
	set, err := db.GetSet(ctx, id)
	if err != nil {
		return nil, &StepError{Op: op, Step: "read set", Err: err}
	}
	set.Aspects, err = db.ListAspects(ctx, id)
	if err != nil {
		return nil, &StepError{Op: op, Step: "read aspects", Err: err}
	}
	return set, nil
}

// Create inserts the set row, then one aspect row per aspect carrying the new set's ID.
func (r *SetRepository) Create(ctx context.Context, form domain.SetForm) (created *domain.Set, err error) {
	const op = "create set"
	start := time.Now()
	defer func() {
		var id string
		if created != nil {
			id = created.ID
		}
		r.observe(op, start, err, zap.String("set_id", id), zap.String("name", form.Name))
	}()

	err = r.inTx(ctx, op, func(tx storage.Transaction) error {
		set := &domain.Set{Name: form.Name}
		if err := tx.CreateSet(ctx, set); err != nil {
			return &StepError{Op: op, Step: "insert set", Err: err}
		}
		if set.ID == "" {
			return &StepError{Op: op, Step: "insert set", Err: domain.ErrNotFound}
		}
		if err := tx.InsertAspects(ctx, set.ID, form.Aspects); err != nil {
			return &StepError{Op: op, Step: "insert aspects", Err: err}
		}
		var err error
		created, err = r.get(ctx, tx, op, set.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update renames the set and replaces its aspects wholesale.
func (r *SetRepository) Update(ctx context.Context, id string, form domain.SetForm) (updated *domain.Set, err error) {
	const op = "update set"
	start := time.Now()
	defer func() { r.observe(op, start, err, zap.String("set_id", id)) }()

	err = r.inTx(ctx, op, func(tx storage.Transaction) error {
		if err := tx.UpdateSet(ctx, &domain.Set{ID: id, Name: form.Name}); err != nil {
			return &StepError{Op: op, Step: "update set", Err: err}
		}
		if err := tx.DeleteAspectsForSet(ctx, id); err != nil {
			return &StepError{Op: op, Step: "delete aspects", Err: err}
		}
		if err := tx.InsertAspects(ctx, id, form.Aspects); err != nil {
			return &StepError{Op: op, Step: "insert aspects", Err: err}
		}
		var err error
		updated, err = r.get(ctx, tx, op, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the set's aspects and tag links before the set row itself.
func (r *SetRepository) Delete(ctx context.Context, id string) (err error) {
	const op = "delete set"
	start := time.Now()
	defer func() { r.observe(op, start, err, zap.String("set_id", id)) }()

	return r.inTx(ctx, op, func(tx storage.Transaction) error {
		if err := tx.DeleteAspectsForSet(ctx, id); err != nil {
			return &StepError{Op: op, Step: "delete aspects", Err: err}
		}
		if err := tx.DeleteSetTagsForSet(ctx, id); err != nil {
			return &StepError{Op: op, Step: "delete tag links", Err: err}
		}
		if err := tx.DeleteSet(ctx, id); err != nil {
			return &StepError{Op: op, Step: "delete set", Err: err}
		}
		return nil
	})
}
