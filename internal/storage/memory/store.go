package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
	"github.com/bcnelson/fulcrum-data-manager/internal/storage"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of the storage interface for testing.
// Foreign keys are enforced the same way the SQL schema enforces them.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex // serialises transactions

	sets    map[string]*domain.Set     // key: id (row columns only)
	aspects map[string][]domain.Aspect // key: set id
	tags    map[string]*domain.Tag     // key: id (row columns only)
	links   map[string][]string        // key: tag id, value: set ids
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		sets:    make(map[string]*domain.Set),
		aspects: make(map[string][]domain.Aspect),
		tags:    make(map[string]*domain.Tag),
		links:   make(map[string][]string),
	}
}

func (s *Store) Close() error { return nil }

// BeginTx snapshots the store. Writes go to the snapshot and replace the
// store's contents on Commit. Only one transaction runs at a time.
func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	s.txMu.Lock()
	return &Tx{Store: s.clone(), parent: s}, nil
}

// Tx is a snapshot transaction for the in-memory store.
type Tx struct {
	*Store
	parent *Store
	done   bool
}

func (t *Tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.Store.mu.RLock()
	t.parent.mu.Lock()
	t.parent.sets = t.Store.sets
	t.parent.aspects = t.Store.aspects
	t.parent.tags = t.Store.tags
	t.parent.links = t.Store.links
	t.parent.mu.Unlock()
	t.Store.mu.RUnlock()
	t.parent.txMu.Unlock()
	return nil
}

func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.parent.txMu.Unlock()
	return nil
}

func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, domain.ErrInvalidInput
}

func (s *Store) clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := New()
	for id, set := range s.sets {
		row := *set
		c.sets[id] = &row
	}
	for id, aspects := range s.aspects {
		c.aspects[id] = copyAspects(aspects)
	}
	for id, tag := range s.tags {
		row := *tag
		c.tags[id] = &row
	}
	for id, setIDs := range s.links {
		c.links[id] = slices.Clone(setIDs)
	}
	return c
}

func copyAspects(aspects []domain.Aspect) []domain.Aspect {
	out := make([]domain.Aspect, len(aspects))
	for i, a := range aspects {
		values := slices.Clone(a.Values)
		if values == nil {
			values = []string{}
		}
		out[i] = domain.Aspect{Name: a.Name, Values: values}
	}
	return out
}

// setReferenced reports whether any aspect or link points at the set.
// Callers hold s.mu.
func (s *Store) setReferenced(setID string) bool {
	if len(s.aspects[setID]) > 0 {
		return true
	}
	for _, setIDs := range s.links {
		if slices.Contains(setIDs, setID) {
			return true
		}
	}
	return false
}

// ============================================
// Sets
// ============================================

func (s *Store) CreateSet(ctx context.Context, set *domain.Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set.ID == "" {
		set.ID = uuid.New().String()
	}
	if _, exists := s.sets[set.ID]; exists {
		return domain.ErrAlreadyExists
	}
	set.CreatedAt = time.Now().UTC()
	set.UpdatedAt = set.CreatedAt
	s.sets[set.ID] = &domain.Set{ID: set.ID, Name: set.Name, CreatedAt: set.CreatedAt, UpdatedAt: set.UpdatedAt}
	return nil
}

func (s *Store) GetSet(ctx context.Context, id string) (*domain.Set, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, exists := s.sets[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	row := *set
	return &row, nil
}

func (s *Store) ListSets(ctx context.Context) ([]*domain.Set, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sets := make([]*domain.Set, 0, len(s.sets))
	for _, row := range s.sets {
		set := *row
		set.Aspects = copyAspects(s.aspects[set.ID])
		set.Tags = []domain.TagRef{}
		for tagID, setIDs := range s.links {
			if slices.Contains(setIDs, set.ID) {
				set.Tags = append(set.Tags, domain.TagRef{ID: tagID, Name: s.tags[tagID].Name})
			}
		}
		sort.Slice(set.Tags, func(i, j int) bool {
			if set.Tags[i].Name != set.Tags[j].Name {
				return set.Tags[i].Name < set.Tags[j].Name
			}
			return set.Tags[i].ID < set.Tags[j].ID
		})
		sets = append(sets, &set)
	}
	sort.Slice(sets, func(i, j int) bool {
		if !sets[i].CreatedAt.Equal(sets[j].CreatedAt) {
			return sets[i].CreatedAt.Before(sets[j].CreatedAt)
		}
		return sets[i].Name < sets[j].Name
	})
	return sets, nil
}

func (s *Store) UpdateSet(ctx context.Context, set *domain.Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, exists := s.sets[set.ID]
	if !exists {
		return domain.ErrNotFound
	}
	set.UpdatedAt = time.Now().UTC()
	row.Name = set.Name
	row.UpdatedAt = set.UpdatedAt
	return nil
}

func (s *Store) DeleteSet(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sets[id]; !exists {
		return domain.ErrNotFound
	}
	if s.setReferenced(id) {
		return domain.ErrInvalidReference
	}
	delete(s.sets, id)
	return nil
}

// ============================================
// Aspects
// ============================================

func (s *Store) InsertAspects(ctx context.Context, setID string, aspects []domain.Aspect) error {
	if len(aspects) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sets[setID]; !exists {
		return domain.ErrInvalidReference
	}
	s.aspects[setID] = append(s.aspects[setID], copyAspects(aspects)...)
	return nil
}

func (s *Store) ListAspects(ctx context.Context, setID string) ([]domain.Aspect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAspects(s.aspects[setID]), nil
}

func (s *Store) DeleteAspectsForSet(ctx context.Context, setID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.aspects, setID)
	return nil
}

// ============================================
// Tags
// ============================================

func (s *Store) CreateTag(ctx context.Context, tag *domain.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	if _, exists := s.tags[tag.ID]; exists {
		return domain.ErrAlreadyExists
	}
	tag.CreatedAt = time.Now().UTC()
	tag.UpdatedAt = tag.CreatedAt
	s.tags[tag.ID] = &domain.Tag{ID: tag.ID, Name: tag.Name, CreatedAt: tag.CreatedAt, UpdatedAt: tag.UpdatedAt}
	return nil
}

func (s *Store) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tag, exists := s.tags[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	row := *tag
	return &row, nil
}

func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tags := make([]*domain.Tag, 0, len(s.tags))
	for _, row := range s.tags {
		tag := *row
		tag.Sets = s.setRefs(tag.ID)
		tags = append(tags, &tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if !tags[i].CreatedAt.Equal(tags[j].CreatedAt) {
			return tags[i].CreatedAt.Before(tags[j].CreatedAt)
		}
		return tags[i].Name < tags[j].Name
	})
	return tags, nil
}

func (s *Store) UpdateTag(ctx context.Context, tag *domain.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, exists := s.tags[tag.ID]
	if !exists {
		return domain.ErrNotFound
	}
	tag.UpdatedAt = time.Now().UTC()
	row.Name = tag.Name
	row.UpdatedAt = tag.UpdatedAt
	return nil
}

func (s *Store) DeleteTag(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tags[id]; !exists {
		return domain.ErrNotFound
	}
	if len(s.links[id]) > 0 {
		return domain.ErrInvalidReference
	}
	delete(s.tags, id)
	return nil
}

// ============================================
// Set/tag links
// ============================================

// setRefs returns the sets linked to a tag ordered by name. Callers hold s.mu.
func (s *Store) setRefs(tagID string) []domain.SetRef {
	refs := make([]domain.SetRef, 0, len(s.links[tagID]))
	for _, setID := range s.links[tagID] {
		refs = append(refs, domain.SetRef{ID: setID, Name: s.sets[setID].Name})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Name != refs[j].Name {
			return refs[i].Name < refs[j].Name
		}
		return refs[i].ID < refs[j].ID
	})
	return refs
}

func (s *Store) InsertSetTags(ctx context.Context, tagID string, setIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tags[tagID]; !exists && len(setIDs) > 0 {
		return domain.ErrInvalidReference
	}
	for _, setID := range setIDs {
		if _, exists := s.sets[setID]; !exists {
			return domain.ErrInvalidReference
		}
		if slices.Contains(s.links[tagID], setID) {
			return domain.ErrAlreadyExists
		}
		s.links[tagID] = append(s.links[tagID], setID)
	}
	return nil
}

func (s *Store) ListSetsForTag(ctx context.Context, tagID string) ([]domain.SetRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.setRefs(tagID), nil
}

func (s *Store) DeleteSetTagsForTag(ctx context.Context, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, tagID)
	return nil
}

func (s *Store) DeleteSetTagsForSet(ctx context.Context, setID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tagID, setIDs := range s.links {
		s.links[tagID] = slices.DeleteFunc(setIDs, func(id string) bool { return id == setID })
		if len(s.links[tagID]) == 0 {
			delete(s.links, tagID)
		}
	}
	return nil
}
