package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrEmptyPath indicates an operation was given an empty canonical path.
	ErrEmptyPath = errors.New("canonical path is empty")

	// ErrUnknownField indicates an Update was given a field outside the
	// editable column whitelist.
	ErrUnknownField = errors.New("unknown resource field")
)

// =============================================================================
// Configuration
// =============================================================================

// StoreConfig configures the SQLite catalog store.
type StoreConfig struct {
	// Path is the database file location.
	Path string

	MaxOpen     int
	MaxIdle     int
	BusyTimeout time.Duration

	// Hot-cache sizing (ristretto L1 over canonical-path lookups).
	CacheNumCounters int64
	CacheMaxCost     int64
}

// DefaultStoreConfig returns a configuration with sensible defaults.
func DefaultStoreConfig(path string) StoreConfig {
	return StoreConfig{
		Path:             path,
		MaxOpen:          10,
		MaxIdle:          5,
		BusyTimeout:      30 * time.Second,
		CacheNumCounters: 1e5,
		CacheMaxCost:     1 << 24, // 16MB
	}
}

// =============================================================================
// Store
// =============================================================================

// Store is the embedded catalog store. All mutations are single statements;
// the UNIQUE constraint on file_path is the sole dedup mechanism for
// concurrent ingestion of the same resource.
type Store struct {
	db    *sql.DB
	cache *ristretto.Cache
}

// withDefaults fills zero-valued tuning fields so callers only need to set
// the path.
func (c StoreConfig) withDefaults() StoreConfig {
	defaults := DefaultStoreConfig(c.Path)
	if c.MaxOpen == 0 {
		c.MaxOpen = defaults.MaxOpen
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = defaults.MaxIdle
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaults.BusyTimeout
	}
	if c.CacheNumCounters == 0 {
		c.CacheNumCounters = defaults.CacheNumCounters
	}
	if c.CacheMaxCost == 0 {
		c.CacheMaxCost = defaults.CacheMaxCost
	}
	return c
}

// Open opens (creating if necessary) the catalog database and applies the
// schema.
func Open(config StoreConfig) (*Store, error) {
	if config.Path == "" {
		return nil, ErrEmptyPath
	}
	config = config.withDefaults()
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}

	// busy_timeout and foreign_keys are connection-scoped; the _pragma DSN
	// form applies them to every pooled connection.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		config.Path,
		int(config.BusyTimeout.Milliseconds()),
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpen)
	db.SetMaxIdleConns(config.MaxIdle)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.CacheNumCounters,
		MaxCost:     config.CacheMaxCost,
		BufferItems: 64,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}

	return &Store{db: db, cache: cache}, nil
}

// Close closes the database and releases the hot cache.
func (s *Store) Close() error {
	s.cache.Close()
	return s.db.Close()
}

// =============================================================================
// Upsert
// =============================================================================

// ConflictPolicy controls what a conditional upsert does when a row already
// exists for the canonical path.
type ConflictPolicy int

const (
	// PolicySkip leaves the existing row untouched. Used for auto-derived
	// titles so user edits are never clobbered.
	PolicySkip ConflictPolicy = iota

	// PolicyOverwriteTitle replaces the existing title (and updated_at).
	// Used when a user-meaningful alias is discovered.
	PolicyOverwriteTitle
)

// UpsertParams carries the values for a conditional insert. Cover, rating
// and meta are written on insert only; conflicts never touch them.
type UpsertParams struct {
	Type      string
	Title     string
	Path      string
	CoverPath string
	Rating    int
	Meta      string
}

// Upsert inserts a resource row for the canonical path, or applies the
// conflict policy when one exists. Returns (nil, nil) when the store made no
// effective change (row existed, PolicySkip); callers must not fire
// discovery notifications in that case.
func (s *Store) Upsert(params UpsertParams, policy ConflictPolicy) (*Resource, error) {
	if params.Path == "" {
		return nil, ErrEmptyPath
	}

	onConflict := "DO NOTHING"
	if policy == PolicyOverwriteTitle {
		onConflict = "DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at"
	}

	now := nowMillis()
	res, err := s.db.Exec(fmt.Sprintf(`
		INSERT INTO resources (id, type, title, file_path, cover_path, rating, note, meta, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?, ?)
		ON CONFLICT(file_path) %s`, onConflict),
		uuid.NewString(), params.Type, params.Title, params.Path,
		nullable(params.CoverPath), params.Rating, nullable(params.Meta), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("upsert rows affected: %w", err)
	}
	if affected == 0 {
		// Row existed and policy was skip: no change, no notification.
		return nil, nil
	}

	// On conflict the freshly generated id was not written; re-read by path.
	s.invalidatePath(params.Path)
	return s.GetByPath(params.Path)
}

// =============================================================================
// Reads
// =============================================================================

// GetByPath returns the resource tracking the canonical path, or ErrNotFound.
// This is the hot lookup on every discovery event, so hits are served from
// the ristretto cache.
func (s *Store) GetByPath(path string) (*Resource, error) {
	if cached, ok := s.cache.Get(path); ok {
		return cached.(*Resource), nil
	}

	r, err := s.scanOne(`SELECT `+resourceColumns+` FROM resources WHERE file_path = ?`, path)
	if err != nil {
		return nil, err
	}
	s.cache.Set(path, r, 1)
	return r, nil
}

// GetByID returns the resource with the given id, or ErrNotFound.
func (s *Store) GetByID(id string) (*Resource, error) {
	return s.scanOne(`SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)
}

// List returns all resources, newest first, optionally filtered by type.
func (s *Store) List(typeFilter string) ([]*Resource, error) {
	if typeFilter != "" {
		return s.scanMany(`SELECT `+resourceColumns+` FROM resources WHERE type = ? ORDER BY added_at DESC`, typeFilter)
	}
	return s.scanMany(`SELECT ` + resourceColumns + ` FROM resources ORDER BY added_at DESC`)
}

// =============================================================================
// Run statistics
// =============================================================================

// RecordOpen increments the open counter and stamps last_run_at. Owned by
// the session tracker's start path.
func (s *Store) RecordOpen(id string) (*Resource, error) {
	now := nowMillis()
	return s.mutateByID(id,
		`UPDATE resources SET open_count = open_count + 1, last_run_at = ?, updated_at = ? WHERE id = ?`,
		now, now, id)
}

// RecordStop folds a finished session's elapsed seconds into the cumulative
// run time.
func (s *Store) RecordStop(id string, elapsedSeconds int64) (*Resource, error) {
	return s.mutateByID(id,
		`UPDATE resources SET total_run_time = total_run_time + ?, updated_at = ? WHERE id = ?`,
		elapsedSeconds, nowMillis(), id)
}

// =============================================================================
// Updates and removal
// =============================================================================

// editableFields is the whitelist of columns Update may touch.
var editableFields = map[string]struct{}{
	"type": {}, "title": {}, "cover_path": {}, "rating": {},
	"note": {}, "meta": {}, "pinned": {},
}

// Update applies a partial user edit to a resource.
func (s *Store) Update(id string, fields map[string]any) (*Resource, error) {
	if len(fields) == 0 {
		return s.GetByID(id)
	}

	setClause := ""
	args := make([]any, 0, len(fields)+2)
	for field, value := range fields {
		if _, ok := editableFields[field]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		if setClause != "" {
			setClause += ", "
		}
		setClause += field + " = ?"
		args = append(args, value)
	}
	args = append(args, nowMillis(), id)

	return s.mutateByID(id,
		fmt.Sprintf(`UPDATE resources SET %s, updated_at = ? WHERE id = ?`, setClause),
		args...)
}

// Remove deletes a resource by id.
func (s *Store) Remove(id string) error {
	r, err := s.GetByID(id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(`DELETE FROM resources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	s.invalidatePath(r.Path)
	return nil
}

// RemoveByPath deletes the resource tracking a canonical path, if any.
func (s *Store) RemoveByPath(path string) error {
	if _, err := s.db.Exec(`DELETE FROM resources WHERE file_path = ?`, path); err != nil {
		return fmt.Errorf("remove by path: %w", err)
	}
	s.invalidatePath(path)
	return nil
}

// =============================================================================
// Ignore list
// =============================================================================

// IsIgnored reports whether the canonical path has been opted out of
// discovery.
func (s *Store) IsIgnored(path string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM ignored_paths WHERE path = ?`, path).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is ignored: %w", err)
	}
	return true, nil
}

// AddIgnoredPath opts a canonical path out of discovery and removes any
// existing resource tracking it.
func (s *Store) AddIgnoredPath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO ignored_paths (path) VALUES (?)`, path); err != nil {
		return fmt.Errorf("add ignored path: %w", err)
	}
	return s.RemoveByPath(path)
}

// RemoveIgnoredPath re-enables discovery for a canonical path.
func (s *Store) RemoveIgnoredPath(path string) error {
	if _, err := s.db.Exec(`DELETE FROM ignored_paths WHERE path = ?`, path); err != nil {
		return fmt.Errorf("remove ignored path: %w", err)
	}
	return nil
}

// ListIgnoredPaths returns all ignored canonical paths, sorted.
func (s *Store) ListIgnoredPaths() ([]string, error) {
	rows, err := s.db.Query(`SELECT path FROM ignored_paths ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list ignored paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// =============================================================================
// Search
// =============================================================================

// Search runs a prefix full-text query over titles and notes, optionally
// filtered by type. The query is quoted before being handed to FTS5 so
// operator characters in titles stay searchable.
func (s *Store) Search(query, typeFilter string) ([]*Resource, error) {
	match := fmt.Sprintf(`"%s"*`, escapeFTS(query))

	sqlQuery := `
		SELECT ` + prefixColumns("r") + ` FROM resources r
		JOIN resources_fts fts ON r.rowid = fts.rowid
		WHERE resources_fts MATCH ?`
	args := []any{match}
	if typeFilter != "" {
		sqlQuery += ` AND r.type = ?`
		args = append(args, typeFilter)
	}
	sqlQuery += ` ORDER BY rank LIMIT 100`

	return s.scanMany(sqlQuery, args...)
}

// escapeFTS doubles embedded quotes so user input cannot break out of the
// quoted FTS5 term.
func escapeFTS(query string) string {
	out := make([]byte, 0, len(query))
	for i := 0; i < len(query); i++ {
		if query[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, query[i])
	}
	return string(out)
}

// =============================================================================
// Internals
// =============================================================================

// resourceColumns fixes the column order scanResource expects.
const resourceColumns = `id, type, title, file_path, cover_path, rating, note, meta,
	pinned, open_count, total_run_time, last_run_at, added_at, updated_at`

func prefixColumns(alias string) string {
	out := ""
	for i, col := range []string{
		"id", "type", "title", "file_path", "cover_path", "rating", "note", "meta",
		"pinned", "open_count", "total_run_time", "last_run_at", "added_at", "updated_at",
	} {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + col
	}
	return out
}

func (s *Store) scanOne(query string, args ...any) (*Resource, error) {
	rows, err := s.scanMany(query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) scanMany(query string, args ...any) ([]*Resource, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []*Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range out {
		if err := s.attachTags(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanResource(rows *sql.Rows) (*Resource, error) {
	var (
		r         Resource
		cover     sql.NullString
		note      sql.NullString
		meta      sql.NullString
		lastRunAt sql.NullInt64
	)
	err := rows.Scan(
		&r.ID, &r.Type, &r.Title, &r.Path, &cover, &r.Rating, &note, &meta,
		&r.Pinned, &r.OpenCount, &r.TotalRunTime, &lastRunAt, &r.AddedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan resource: %w", err)
	}
	r.CoverPath = cover.String
	r.Note = note.String
	r.Meta = meta.String
	r.LastRunAt = lastRunAt.Int64
	return &r, nil
}

// mutateByID runs an UPDATE targeting one row, maps zero affected rows to
// ErrNotFound, and returns the fresh row after dropping its cached copy.
func (s *Store) mutateByID(id, query string, args ...any) (*Resource, error) {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	r, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.invalidatePath(r.Path)
	return r, nil
}

func (s *Store) invalidatePath(path string) {
	s.cache.Del(path)
	// Del is buffered; block until applied so reads after a write never see
	// the removed row.
	s.cache.Wait()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
