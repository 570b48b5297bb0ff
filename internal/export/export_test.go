package export_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
	"github.com/bcnelson/fulcrum-data-manager/internal/export"
	"github.com/bcnelson/fulcrum-data-manager/internal/repository"
	"github.com/bcnelson/fulcrum-data-manager/internal/storage/memory"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	tags := []*domain.Tag{
		{ID: "t1", Name: "Morning", Sets: []domain.SetRef{{ID: "s1", Name: "Breakfast"}, {ID: "s2", Name: "Coffee"}}},
		{ID: "t2", Name: "Unused", Sets: []domain.SetRef{}},
	}

	want := export.Document{Tags: []export.TagEntry{
		{ID: "t1", Name: "Morning", RelatedSets: []string{"Breakfast", "Coffee"}},
		{ID: "t2", Name: "Unused", RelatedSets: []string{}},
	}}
	if diff := cmp.Diff(want, export.Build(tags)); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite(t *testing.T) {
	doc := export.Document{Tags: []export.TagEntry{
		{ID: "t1", Name: "Morning", RelatedSets: []string{"Coffee"}},
	}}

	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, doc))

	want := `{
  "Tags": [
    {
      "Id": "t1",
      "Name": "Morning",
      "RelatedSets": [
        "Coffee"
      ]
    }
  ]
}
`
	assert.Equal(t, want, buf.String())
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, export.Build(nil)))
	assert.JSONEq(t, `{"Tags":[]}`, buf.String())
}

func TestExporterUsesRepository(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sets := repository.NewSetRepository(store, nil, nil)
	tags := repository.NewTagRepository(store, nil, nil)

	coffee, err := sets.Create(ctx, domain.SetForm{Name: "Coffee"})
	require.NoError(t, err)
	_, err = tags.Create(ctx, domain.TagForm{Name: "Morning", SetIDs: []string{coffee.ID}})
	require.NoError(t, err)

	doc, err := export.New(tags).Export(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Tags, 1)
	assert.Equal(t, "Morning", doc.Tags[0].Name)
	assert.Equal(t, []string{"Coffee"}, doc.Tags[0].RelatedSets)
}

type failingLister struct{}

func (failingLister) List(context.Context) ([]*domain.Tag, error) {
	return nil, errors.New("database is locked")
}

func TestExporterPropagatesErrors(t *testing.T) {
	_, err := export.New(failingLister{}).Export(context.Background())
	assert.ErrorContains(t, err, "database is locked")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "tagsWithSets.json", export.FileName)
}
