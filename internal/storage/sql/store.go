package sql

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
	"github.com/bcnelson/fulcrum-data-manager/internal/storage"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// isForeignKeyViolation checks if an error is a FOREIGN KEY constraint violation.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "FOREIGN KEY constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "violates foreign key constraint") {
		return true
	}
	return false
}

// wrapConstraintError converts constraint violations to domain errors.
func wrapConstraintError(err error) error {
	switch {
	case isUniqueViolation(err):
		return domain.ErrAlreadyExists
	case isForeignKeyViolation(err):
		return domain.ErrInvalidReference
	}
	return err
}

// IsSQLite reports whether the driver name is one of the SQLite drivers.
func IsSQLite(driver string) bool {
	return driver == "sqlite3" || driver == "sqlite"
}

// gooseDialect maps a database/sql driver name to a goose dialect.
func gooseDialect(driver string) string {
	if IsSQLite(driver) {
		return "sqlite3"
	}
	return driver
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New creates a new SQL store and applies pending migrations.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if IsSQLite(driver) {
		// foreign_keys is per connection; a single connection keeps it in force
		// and serialises writers the way SQLite wants anyway.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	// Run migrations
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(gooseDialect(driver)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the applied migration version.
func (s *Store) SchemaVersion() (int64, error) {
	return goose.GetDBVersion(s.db.DB)
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, driver: s.driver}, nil
}

// Tx wraps a database transaction.
type Tx struct {
	tx     *sqlx.Tx
	driver string
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Close is a no-op for transactions (they should be committed or rolled back).
func (t *Tx) Close() error {
	return nil
}

// BeginTx is not supported within a transaction.
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

// helper to get the correct database interface
type dbInterface interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execAffectingOne runs a statement that must touch at least one row.
func execAffectingOne(ctx context.Context, db dbInterface, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapConstraintError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC()
}

// ============================================
// Sets
// ============================================

func createSet(ctx context.Context, db dbInterface, set *domain.Set) error {
	if set.ID == "" {
		set.ID = uuid.New().String()
	}
	set.CreatedAt = now()
	set.UpdatedAt = set.CreatedAt
	_, err := db.ExecContext(ctx,
		`INSERT INTO sets (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		set.ID, set.Name, set.CreatedAt, set.UpdatedAt)
	return wrapConstraintError(err)
}

func (s *Store) CreateSet(ctx context.Context, set *domain.Set) error {
	return createSet(ctx, s.db, set)
}

func (t *Tx) CreateSet(ctx context.Context, set *domain.Set) error {
	return createSet(ctx, t.tx, set)
}

func getSet(ctx context.Context, db dbInterface, id string) (*domain.Set, error) {
	var set domain.Set
	err := db.GetContext(ctx, &set,
		`SELECT id, name, created_at, updated_at FROM sets WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *Store) GetSet(ctx context.Context, id string) (*domain.Set, error) {
	return getSet(ctx, s.db, id)
}

func (t *Tx) GetSet(ctx context.Context, id string) (*domain.Set, error) {
	return getSet(ctx, t.tx, id)
}

type aspectRow struct {
	SetID  string `db:"set_id"`
	Name   string `db:"name"`
	Values string `db:"aspect_values"`
}

func (r *aspectRow) toAspect() (domain.Aspect, error) {
	aspect := domain.Aspect{Name: r.Name}
	if err := json.Unmarshal([]byte(r.Values), &aspect.Values); err != nil {
		return domain.Aspect{}, fmt.Errorf("decoding values of aspect %q: %w", r.Name, err)
	}
	if aspect.Values == nil {
		aspect.Values = []string{}
	}
	return aspect, nil
}

// linkRow is one sets_tags row joined to the name of the other side.
type linkRow struct {
	OwnerID string `db:"owner_id"`
	ID      string `db:"id"`
	Name    string `db:"name"`
}

func listSets(ctx context.Context, db dbInterface) ([]*domain.Set, error) {
	sets := []*domain.Set{}
	err := db.SelectContext(ctx, &sets,
		`SELECT id, name, created_at, updated_at FROM sets ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Set, len(sets))
	for _, set := range sets {
		set.Aspects = []domain.Aspect{}
		set.Tags = []domain.TagRef{}
		byID[set.ID] = set
	}

	var aspects []aspectRow
	err = db.SelectContext(ctx, &aspects,
		`SELECT set_id, name, aspect_values FROM aspects ORDER BY set_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("listing aspects: %w", err)
	}
	for i := range aspects {
		set, ok := byID[aspects[i].SetID]
		if !ok {
			continue
		}
		aspect, err := aspects[i].toAspect()
		if err != nil {
			return nil, err
		}
		set.Aspects = append(set.Aspects, aspect)
	}

	var links []linkRow
	err = db.SelectContext(ctx, &links,
		`SELECT st.set_id AS owner_id, t.id, t.name
		 FROM sets_tags st JOIN tags t ON t.id = st.tag_id
		 ORDER BY t.name, t.id`)
	if err != nil {
		return nil, fmt.Errorf("listing set tags: %w", err)
	}
	for _, l := range links {
		if set, ok := byID[l.OwnerID]; ok {
			set.Tags = append(set.Tags, domain.TagRef{ID: l.ID, Name: l.Name})
		}
	}

	return sets, nil
}

func (s *Store) ListSets(ctx context.Context) ([]*domain.Set, error) {
	return listSets(ctx, s.db)
}

func (t *Tx) ListSets(ctx context.Context) ([]*domain.Set, error) {
	return listSets(ctx, t.tx)
}

func updateSet(ctx context.Context, db dbInterface, set *domain.Set) error {
	set.UpdatedAt = now()
	return execAffectingOne(ctx, db,
		`UPDATE sets SET name = $1, updated_at = $2 WHERE id = $3`,
		set.Name, set.UpdatedAt, set.ID)
}

func (s *Store) UpdateSet(ctx context.Context, set *domain.Set) error {
	return updateSet(ctx, s.db, set)
}

func (t *Tx) UpdateSet(ctx context.Context, set *domain.Set) error {
	return updateSet(ctx, t.tx, set)
}

func deleteSet(ctx context.Context, db dbInterface, id string) error {
	return execAffectingOne(ctx, db, `DELETE FROM sets WHERE id = $1`, id)
}

func (s *Store) DeleteSet(ctx context.Context, id string) error {
	return deleteSet(ctx, s.db, id)
}

func (t *Tx) DeleteSet(ctx context.Context, id string) error {
	return deleteSet(ctx, t.tx, id)
}

// ============================================
// Aspects
// ============================================

func insertAspects(ctx context.Context, db dbInterface, setID string, aspects []domain.Aspect) error {
	for i, aspect := range aspects {
		values := aspect.Values
		if values == nil {
			values = []string{}
		}
		valuesJSON, err := json.Marshal(values)
		if err != nil {
			return fmt.Errorf("encoding values of aspect %q: %w", aspect.Name, err)
		}
		_, err = db.ExecContext(ctx,
			`INSERT INTO aspects (id, set_id, name, aspect_values, seq) VALUES ($1, $2, $3, $4, $5)`,
			uuid.New().String(), setID, aspect.Name, string(valuesJSON), i)
		if err != nil {
			return wrapConstraintError(err)
		}
	}
	return nil
}

func (s *Store) InsertAspects(ctx context.Context, setID string, aspects []domain.Aspect) error {
	return insertAspects(ctx, s.db, setID, aspects)
}

func (t *Tx) InsertAspects(ctx context.Context, setID string, aspects []domain.Aspect) error {
	return insertAspects(ctx, t.tx, setID, aspects)
}

func listAspects(ctx context.Context, db dbInterface, setID string) ([]domain.Aspect, error) {
	var rows []aspectRow
	err := db.SelectContext(ctx, &rows,
		`SELECT set_id, name, aspect_values FROM aspects WHERE set_id = $1 ORDER BY seq`, setID)
	if err != nil {
		return nil, err
	}
	aspects := make([]domain.Aspect, 0, len(rows))
	for i := range rows {
		aspect, err := rows[i].toAspect()
		if err != nil {
			return nil, err
		}
		aspects = append(aspects, aspect)
	}
	return aspects, nil
}

func (s *Store) ListAspects(ctx context.Context, setID string) ([]domain.Aspect, error) {
	return listAspects(ctx, s.db, setID)
}

func (t *Tx) ListAspects(ctx context.Context, setID string) ([]domain.Aspect, error) {
	return listAspects(ctx, t.tx, setID)
}

func deleteAspectsForSet(ctx context.Context, db dbInterface, setID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM aspects WHERE set_id = $1`, setID)
	return err
}

func (s *Store) DeleteAspectsForSet(ctx context.Context, setID string) error {
	return deleteAspectsForSet(ctx, s.db, setID)
}

func (t *Tx) DeleteAspectsForSet(ctx context.Context, setID string) error {
	return deleteAspectsForSet(ctx, t.tx, setID)
}

// ============================================
// Tags
// ============================================

func createTag(ctx context.Context, db dbInterface, tag *domain.Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	tag.CreatedAt = now()
	tag.UpdatedAt = tag.CreatedAt
	_, err := db.ExecContext(ctx,
		`INSERT INTO tags (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		tag.ID, tag.Name, tag.CreatedAt, tag.UpdatedAt)
	return wrapConstraintError(err)
}

func (s *Store) CreateTag(ctx context.Context, tag *domain.Tag) error {
	return createTag(ctx, s.db, tag)
}

func (t *Tx) CreateTag(ctx context.Context, tag *domain.Tag) error {
	return createTag(ctx, t.tx, tag)
}

func getTag(ctx context.Context, db dbInterface, id string) (*domain.Tag, error) {
	var tag domain.Tag
	err := db.GetContext(ctx, &tag,
		`SELECT id, name, created_at, updated_at FROM tags WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *Store) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	return getTag(ctx, s.db, id)
}

func (t *Tx) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	return getTag(ctx, t.tx, id)
}

func listTags(ctx context.Context, db dbInterface) ([]*domain.Tag, error) {
	tags := []*domain.Tag{}
	err := db.SelectContext(ctx, &tags,
		`SELECT id, name, created_at, updated_at FROM tags ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Tag, len(tags))
	for _, tag := range tags {
		tag.Sets = []domain.SetRef{}
		byID[tag.ID] = tag
	}

	var links []linkRow
	err = db.SelectContext(ctx, &links,
		`SELECT st.tag_id AS owner_id, s.id, s.name
		 FROM sets_tags st JOIN sets s ON s.id = st.set_id
		 ORDER BY s.name, s.id`)
	if err != nil {
		return nil, fmt.Errorf("listing tag sets: %w", err)
	}
	for _, l := range links {
		if tag, ok := byID[l.OwnerID]; ok {
			tag.Sets = append(tag.Sets, domain.SetRef{ID: l.ID, Name: l.Name})
		}
	}

	return tags, nil
}

func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	return listTags(ctx, s.db)
}

func (t *Tx) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	return listTags(ctx, t.tx)
}

func updateTag(ctx context.Context, db dbInterface, tag *domain.Tag) error {
	tag.UpdatedAt = now()
	return execAffectingOne(ctx, db,
		`UPDATE tags SET name = $1, updated_at = $2 WHERE id = $3`,
		tag.Name, tag.UpdatedAt, tag.ID)
}

func (s *Store) UpdateTag(ctx context.Context, tag *domain.Tag) error {
	return updateTag(ctx, s.db, tag)
}

func (t *Tx) UpdateTag(ctx context.Context, tag *domain.Tag) error {
	return updateTag(ctx, t.tx, tag)
}

func deleteTag(ctx context.Context, db dbInterface, id string) error {
	return execAffectingOne(ctx, db, `DELETE FROM tags WHERE id = $1`, id)
}

func (s *Store) DeleteTag(ctx context.Context, id string) error {
	return deleteTag(ctx, s.db, id)
}

func (t *Tx) DeleteTag(ctx context.Context, id string) error {
	return deleteTag(ctx, t.tx, id)
}

// ============================================
// Set/tag links
// ============================================

func insertSetTags(ctx context.Context, db dbInterface, tagID string, setIDs []string) error {
	for _, setID := range setIDs {
		_, err := db.ExecContext(ctx,
			`INSERT INTO sets_tags (tag_id, set_id) VALUES ($1, $2)`, tagID, setID)
		if err != nil {
			return wrapConstraintError(err)
		}
	}
	return nil
}

func (s *Store) InsertSetTags(ctx context.Context, tagID string, setIDs []string) error {
	return insertSetTags(ctx, s.db, tagID, setIDs)
}

func (t *Tx) InsertSetTags(ctx context.Context, tagID string, setIDs []string) error {
	return insertSetTags(ctx, t.tx, tagID, setIDs)
}

func listSetsForTag(ctx context.Context, db dbInterface, tagID string) ([]domain.SetRef, error) {
	sets := []domain.SetRef{}
	err := db.SelectContext(ctx, &sets,
		`SELECT s.id, s.name FROM sets_tags st JOIN sets s ON s.id = st.set_id
		 WHERE st.tag_id = $1 ORDER BY s.name, s.id`, tagID)
	if err != nil {
		return nil, err
	}
	return sets, nil
}

func (s *Store) ListSetsForTag(ctx context.Context, tagID string) ([]domain.SetRef, error) {
	return listSetsForTag(ctx, s.db, tagID)
}

func (t *Tx) ListSetsForTag(ctx context.Context, tagID string) ([]domain.SetRef, error) {
	return listSetsForTag(ctx, t.tx, tagID)
}

func deleteSetTagsForTag(ctx context.Context, db dbInterface, tagID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM sets_tags WHERE tag_id = $1`, tagID)
	return err
}

func (s *Store) DeleteSetTagsForTag(ctx context.Context, tagID string) error {
	return deleteSetTagsForTag(ctx, s.db, tagID)
}

func (t *Tx) DeleteSetTagsForTag(ctx context.Context, tagID string) error {
	return deleteSetTagsForTag(ctx, t.tx, tagID)
}

func deleteSetTagsForSet(ctx context.Context, db dbInterface, setID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM sets_tags WHERE set_id = $1`, setID)
	return err
}

func (s *Store) DeleteSetTagsForSet(ctx context.Context, setID string) error {
	return deleteSetTagsForSet(ctx, s.db, setID)
}

func (t *Tx) DeleteSetTagsForSet(ctx context.Context, setID string) error {
	return deleteSetTagsForSet(ctx, t.tx, setID)
}
