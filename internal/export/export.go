// Package export renders tags with the names of their related sets as the
// downloadable tagsWithSets.json document.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
)

// FileName is the name offered for the downloaded document.
const FileName = "tagsWithSets.json"

// Document is the top-level export shape.
type Document struct {
	Tags []TagEntry `json:"Tags"`
}

// TagEntry is one tag with the names of the sets it is attached to.
type TagEntry struct {
	ID          string   `json:"Id"`
	Name        string   `json:"Name"`
	RelatedSets []string `json:"RelatedSets"`
}

// TagLister lists tags with their linked sets.
type TagLister interface {
	List(ctx context.Context) ([]*domain.Tag, error)
}

// Exporter builds export documents from the tag repository.
type Exporter struct {
	tags TagLister
}

// New creates a new Exporter.
func New(tags TagLister) *Exporter {
	return &Exporter{tags: tags}
}

// Export loads every tag and builds the document.
func (e *Exporter) Export(ctx context.Context) (Document, error) {
	tags, err := e.tags.List(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("loading tags: %w", err)
	}
	return Build(tags), nil
}

// Build converts tags to the export document, keeping their order.
func Build(tags []*domain.Tag) Document {
	doc := Document{Tags: make([]TagEntry, 0, len(tags))}
	for _, tag := range tags {
		doc.Tags = append(doc.Tags, TagEntry{
			ID:          tag.ID,
			Name:        tag.Name,
			RelatedSets: tag.SetNames(),
		})
	}
	return doc
}

// Write encodes doc to w indented by two spaces.
func Write(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
