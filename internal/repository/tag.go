package repository

import (
	"context"
	"time"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
	"github.com/bcnelson/fulcrum-data-manager/internal/metrics"
	"github.com/bcnelson/fulcrum-data-manager/internal/storage"
	"go.uber.org/zap"
)

// TagRepository persists tags and their links to sets.
type TagRepository struct {
	base
}

// NewTagRepository creates a new TagRepository. logger and m may be nil.
func NewTagRepository(store storage.Storage, logger *zap.Logger, m *metrics.Metrics) *TagRepository {
	return &TagRepository{base: newBase(store, logger, m, "tag")}
}

// List returns every tag with the sets linked to it.
func (r *TagRepository) List(ctx context.Context) (tags []*domain.Tag, err error) {
	const op = "list tags"
	start := time.Now()
	defer func() { r.observe(op, start, err) }()

	tags, err = r.store.ListTags(ctx)
	if err != nil {
		return nil, &StepError{Op: op, Step: "read tags", Err: err}
	}
	return tags, nil
}

// Get reads a tag row and then the sets linked to it.
func (r *TagRepository) Get(ctx context.Context, id string) (tag *domain.Tag, err error) {
	const op = "get tag"
	start := time.Now()
	defer func() { r.observe(op, start, err, zap.String("tag_id", id)) }()

	return r.get(ctx, r.store, op, id)
}

func (r *TagRepository) get(ctx context.Context, db storage.Storage, op, id string) (*domain.Tag, error) {
	tag, err := db.GetTag(ctx, id)
	if err != nil {
		return nil, &StepError{Op: op, Step: "read tag", Err: err}
	}
	tag.Sets, err = db.ListSetsForTag(ctx, id)
	if err != nil {
		return nil, &StepError{Op: op, Step: "read set links", Err: err}
	}
	return tag, nil
}

// Create inserts the tag row and, when sets are given, one link per distinct set.
func (r *TagRepository) Create(ctx context.Context, form domain.TagForm) (created *domain.Tag, err error) {
	const op = "create tag"
	start := time.Now()
	defer func() {
		var id string
		if created != nil {
			id = created.ID
		}
		r.observe(op, start, err, zap.String("tag_id", id), zap.String("name", form.Name),
			zap.Int("set_count", len(form.SetIDs)))
	}()

	err = r.inTx(ctx, op, func(tx storage.Transaction) error {
		tag := &domain.Tag{Name: form.Name}
		if err := tx.CreateTag(ctx, tag); err != nil {
			return &StepError{Op: op, Step: "insert tag", Err: err}
		}
		if tag.ID == "" {
			return &StepError{Op: op, Step: "insert tag", Err: domain.ErrNotFound}
		}
		if len(form.SetIDs) > 0 {
			if err := tx.InsertSetTags(ctx, tag.ID, distinct(form.SetIDs)); err != nil {
				return &StepError{Op: op, Step: "insert set links", Err: err}
			}
		}
		var err error
		created, err = r.get(ctx, tx, op, tag.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update renames the tag and replaces its set links. An empty set list clears
// every existing link.
func (r *TagRepository) Update(ctx context.Context, id string, form domain.TagForm) (updated *domain.Tag, err error) {
	const op = "update tag"
	start := time.Now()
	defer func() {
		r.observe(op, start, err, zap.String("tag_id", id), zap.Int("set_count", len(form.SetIDs)))
	}()

	err = r.inTx(ctx, op, func(tx storage.Transaction) error {
		if err := tx.UpdateTag(ctx, &domain.Tag{ID: id, Name: form.Name}); err != nil {
			return &StepError{Op: op, Step: "update tag", Err: err}
		}
		if err := tx.DeleteSetTagsForTag(ctx, id); err != nil {
			return &StepError{Op: op, Step: "delete set links", Err: err}
		}
		if len(form.SetIDs) > 0 {
			if err := tx.InsertSetTags(ctx, id, distinct(form.SetIDs)); err != nil {
				return &StepError{Op: op, Step: "insert set links", Err: err}
			}
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

// Delete removes the tag's set links before the tag row.
func (r *TagRepository) Delete(ctx context.Context, id string) (err error) {
	const op = "delete tag"
	start := time.Now()
	defer func() { r.observe(op, start, err, zap.String("tag_id", id)) }()

	return r.inTx(ctx, op, func(tx storage.Transaction) error {
		if err := tx.DeleteSetTagsForTag(ctx, id); err != nil {
			return &StepError{Op: op, Step: "delete set links", Err: err}
		}
		if err := tx.DeleteTag(ctx, id); err != nil {
			return &StepError{Op: op, Step: "delete tag", Err: err}
		}
		return nil
	})
}
