package sql_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
	sqlstore "github.com/bcnelson/fulcrum-data-manager/internal/storage/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a migrated SQLite database through the pure-Go driver.
func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.New("sqlite", filepath.Join(t.TempDir(), "fulcrum.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSchemaVersion(t *testing.T) {
	store := newTestStore(t)

	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestAspectsKeepOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	set := &domain.Set{Name: "Coffee"}
	require.NoError(t, store.CreateSet(ctx, set))
	require.NotEmpty(t, set.ID)

	aspects := []domain.Aspect{
		{Name: "Roast", Values: []string{"Light", "Medium", "Dark", "Espresso", "Decaf"}},
		{Name: "Origin", Values: []string{"Peru", "Kenya"}},
		{Name: "Grind", Values: []string{"Fine", "Coarse"}},
	}
	require.NoError(t, store.InsertAspects(ctx, set.ID, aspects))

	got, err := store.ListAspects(ctx, set.ID)
	require.NoError(t, err)
	assert.Equal(t, aspects, got)

	sets, err := store.ListSets(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, aspects, sets[0].Aspects)
	assert.Empty(t, sets[0].Tags)
}

func TestGetMissingRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetSet(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetTag(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.UpdateSet(ctx, &domain.Set{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.DeleteTag(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.InsertAspects(ctx, "no-such-set", []domain.Aspect{{Name: "Roast", Values: []string{"a", "b"}}})
	assert.ErrorIs(t, err, domain.ErrInvalidReference)

	set := &domain.Set{Name: "Coffee"}
	require.NoError(t, store.CreateSet(ctx, set))
	require.NoError(t, store.InsertAspects(ctx, set.ID, []domain.Aspect{{Name: "Roast", Values: []string{"a", "b"}}}))

	err = store.DeleteSet(ctx, set.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidReference, "aspects still reference the set")

	tag := &domain.Tag{Name: "Morning"}
	require.NoError(t, store.CreateTag(ctx, tag))

	err = store.InsertSetTags(ctx, tag.ID, []string{"no-such-set"})
	assert.ErrorIs(t, err, domain.ErrInvalidReference)

	require.NoError(t, store.InsertSetTags(ctx, tag.ID, []string{set.ID}))
	err = store.InsertSetTags(ctx, tag.ID, []string{set.ID})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	err = store.DeleteTag(ctx, tag.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidReference, "links still reference the tag")
}

func TestLinksAppearOnBothSides(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	breakfast := &domain.Set{Name: "Breakfast"}
	coffee := &domain.Set{Name: "Coffee"}
	require.NoError(t, store.CreateSet(ctx, coffee))
	require.NoError(t, store.CreateSet(ctx, breakfast))

	tag := &domain.Tag{Name: "Morning"}
	require.NoError(t, store.CreateTag(ctx, tag))
	require.NoError(t, store.InsertSetTags(ctx, tag.ID, []string{coffee.ID, breakfast.ID}))

	refs, err := store.ListSetsForTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.SetRef{
		{ID: breakfast.ID, Name: "Breakfast"},
		{ID: coffee.ID, Name: "Coffee"},
	}, refs)

	tags, err := store.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, refs, tags[0].Sets)

	sets, err := store.ListSets(ctx)
	require.NoError(t, err)
	for _, s := range sets {
		assert.Equal(t, []string{"Morning"}, s.TagNames(), "set %s", s.Name)
	}

	require.NoError(t, store.DeleteSetTagsForSet(ctx, coffee.ID))
	refs, err = store.ListSetsForTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.SetRef{{ID: breakfast.ID, Name: "Breakfast"}}, refs)
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	set := &domain.Set{Name: "Coffee"}
	require.NoError(t, tx.CreateSet(ctx, set))
	_, err = tx.GetSet(ctx, set.ID)
	require.NoError(t, err, "writes are visible inside the transaction")
	require.NoError(t, tx.Rollback())

	_, err = store.GetSet(ctx, set.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransactionCommit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	tag := &domain.Tag{Name: "Morning"}
	require.NoError(t, tx.CreateTag(ctx, tag))
	require.NoError(t, tx.Commit())

	got, err := store.GetTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "Morning", got.Name)
}
