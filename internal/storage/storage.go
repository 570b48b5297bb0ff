package storage

import (
	"context"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
)

// Storage defines the interface for the storage layer.
// Methods are single-table primitives; multi-step consistency belongs to the repositories.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Sets. CreateSet assigns the ID when empty. GetSet reads the row only.
	CreateSet(ctx context.Context, set *domain.Set) error
	GetSet(ctx context.Context, id string) (*domain.Set, error)
	ListSets(ctx context.Context) ([]*domain.Set, error)
	UpdateSet(ctx context.Context, set *domain.Set) error
	DeleteSet(ctx context.Context, id string) error

	// Aspects
	InsertAspects(ctx context.Context, setID string, aspects []domain.Aspect) error
	ListAspects(ctx context.Context, setID string) ([]domain.Aspect, error)
	DeleteAspectsForSet(ctx context.Context, setID string) error

	// Tags. CreateTag assigns the ID when empty. GetTag reads the row only.
	CreateTag(ctx context.Context, tag *domain.Tag) error
	GetTag(ctx context.Context, id string) (*domain.Tag, error)
	ListTags(ctx context.Context) ([]*domain.Tag, error)
	UpdateTag(ctx context.Context, tag *domain.Tag) error
	DeleteTag(ctx context.Context, id string) error

	// Set/tag links (sets_tags)
	InsertSetTags(ctx context.Context, tagID string, setIDs []string) error
	ListSetsForTag(ctx context.Context, tagID string) ([]domain.SetRef, error)
	DeleteSetTagsForTag(ctx context.Context, tagID string) error
	DeleteSetTagsForSet(ctx context.Context, setID string) error

	// Transaction support
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Storage
	Commit() error
	Rollback() error
}
