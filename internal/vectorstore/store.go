// Package vectorstore implements a named-collection vector index over a
// single SQLite database file.
//
// Embeddings are stored as little-endian float32 BLOBs; similarity search is
// a brute-force cosine scan over the collection, which is the right
// trade-off for a single-node knowledge base measured in thousands of
// chunks. The database is opened in WAL mode and the storage directory is
// guarded by a file lock so two processes never share one index.
package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/quarrydocs/quarry/internal/log"
)

// ErrCollectionNotFound is returned by read operations that reference a
// collection that has never been written to. It is distinct from a
// collection that exists but is empty.
var ErrCollectionNotFound = errors.New("collection not found")

// ErrLocked is returned when another process holds the storage lock.
var ErrLocked = errors.New("storage directory is locked by another process")

// metadataPageSize is the page size used when scanning all metadata for a
// collection. The scan always paginates to exhaustion, never truncating.
const metadataPageSize = 500

const schema = `
CREATE TABLE IF NOT EXISTS collections (
    name       TEXT PRIMARY KEY,
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE TABLE IF NOT EXISTS chunks (
    collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
    id         TEXT NOT NULL,
    content    TEXT NOT NULL,
    meta       TEXT NOT NULL,
    embedding  BLOB NOT NULL,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection);
`

// Document is the stored unit: chunk text, its embedding, and a raw JSON
// metadata payload. Metadata stays an opaque string here; the kb package
// owns its shape.
type Document struct {
	ID        string
	Content   string
	Metadata  string
	Embedding []float32
}

// Hit is a single nearest-neighbour result. Distance is cosine distance
// (1 - cosine similarity) against the query embedding.
type Hit struct {
	ID       string
	Content  string
	Metadata string
	Distance float64
}

// Store is a durable vector index. It reattaches to existing on-disk state
// when reopened with the same path.
//
// Store is safe for concurrent use by multiple goroutines; writes are
// serialized per upsert batch by SQLite's WAL locking.
type Store struct {
	db     *sql.DB
	lock   *flock.Flock
	path   string
	logger log.Logger
}

// Open opens (or creates) the vector index at path and acquires the
// single-process lock next to it. The parent directory is created when
// absent.
func Open(path string, logger log.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring storage lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("vector store opened", "path", path)

	return &Store{db: db, lock: lock, path: path, logger: logger}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close releases the database handle and the storage lock.
func (s *Store) Close() error {
	var errs []error
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	if err := s.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("releasing storage lock: %w", err))
	}
	return errors.Join(errs...)
}

// EnsureCollection creates the collection when absent. Creating an existing
// collection is a no-op.
func (s *Store) EnsureCollection(ctx context.Context, collection string) error {
	if collection == "" {
		return fmt.Errorf("collection name is required")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections(name) VALUES(?)`, collection); err != nil {
		return fmt.Errorf("creating collection %q: %w", collection, err)
	}
	return nil
}

// hasCollection reports whether the collection exists.
func (s *Store) hasCollection(ctx context.Context, collection string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM collections WHERE name = ?`, collection).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking collection %q: %w", collection, err)
	}
	return true, nil
}

// Upsert writes all documents into the collection in one transaction:
// either the whole batch commits or none of it does. Duplicate IDs replace
// the previous content, metadata, and embedding (last write wins). The
// collection is created on first write.
func (s *Store) Upsert(ctx context.Context, collection string, docs []Document) error {
	if collection == "" {
		return fmt.Errorf("collection name is required")
	}
	if len(docs) == 0 {
		return nil
	}

	for i, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("document %d has empty id", i)
		}
		if len(d.Embedding) == 0 {
			return fmt.Errorf("document %q has empty embedding", d.ID)
		}
		if len(d.Embedding) != len(docs[0].Embedding) {
			return fmt.Errorf("document %q embedding dimension %d differs from batch dimension %d",
				d.ID, len(d.Embedding), len(docs[0].Embedding))
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections(name) VALUES(?)`, collection); err != nil {
		return fmt.Errorf("creating collection %q: %w", collection, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO chunks(collection, id, content, meta, embedding)
        VALUES(?, ?, ?, ?, ?)
        ON CONFLICT(collection, id) DO UPDATE SET
            content   = excluded.content,
            meta      = excluded.meta,
            embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range docs {
		blob, err := EncodeEmbedding(d.Embedding)
		if err != nil {
			return fmt.Errorf("encoding embedding for %q: %w", d.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, d.ID, d.Content, d.Metadata, blob); err != nil {
			return fmt.Errorf("upserting %q: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}

	s.logger.Debug("upserted documents", "collection", collection, "count", len(docs))
	return nil
}

// Query returns up to k nearest neighbours of embedding within the
// collection, ordered by ascending cosine distance; ties keep insertion
// order. An optional filter restricts hits to chunks whose metadata JSON
// matches every key/value pair. Querying a collection that does not exist
// returns ErrCollectionNotFound.
func (s *Store) Query(ctx context.Context, collection string, embedding []float32, k int, filter map[string]string) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	exists, err := s.hasCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}

	query, args := buildScan(
		`SELECT id, content, meta, embedding FROM chunks WHERE collection = ?`,
		collection, filter)
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scanning collection %q: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	var hits []Hit
	for rows.Next() {
		var (
			hit  Hit
			blob []byte
		)
		if err := rows.Scan(&hit.ID, &hit.Content, &hit.Metadata, &blob); err != nil {
			return nil, fmt.Errorf("reading chunk row: %w", err)
		}
		vec, err := DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %q: %w", hit.ID, err)
		}
		hit.Distance, err = CosineDistance(embedding, vec)
		if err != nil {
			return nil, fmt.Errorf("comparing embedding for %q: %w", hit.ID, err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning collection %q: %w", collection, err)
	}

	// Stable sort keeps insertion order for equal distances.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// AllMetadata returns the raw metadata JSON of every chunk in the
// collection, paginating internally until exhausted. The order is insertion
// order. Missing collection returns ErrCollectionNotFound.
func (s *Store) AllMetadata(ctx context.Context, collection string, filter map[string]string) ([]string, error) {
	exists, err := s.hasCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}

	var metas []string
	offset := 0
	for {
		query, args := buildScan(
			`SELECT meta FROM chunks WHERE collection = ?`, collection, filter)
		query += ` ORDER BY rowid LIMIT ? OFFSET ?`
		args = append(args, metadataPageSize, offset)

		page, err := s.metadataPage(ctx, query, args)
		if err != nil {
			return nil, err
		}
		metas = append(metas, page...)
		if len(page) < metadataPageSize {
			return metas, nil
		}
		offset += len(page)
	}
}

func (s *Store) metadataPage(ctx context.Context, query string, args []any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scanning metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var page []string
	for rows.Next() {
		var meta string
		if err := rows.Scan(&meta); err != nil {
			return nil, fmt.Errorf("reading metadata row: %w", err)
		}
		page = append(page, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning metadata: %w", err)
	}
	return page, nil
}

// ListCollections returns all collection names in creation order.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM collections ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("reading collection row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return names, nil
}

// Count returns the number of chunks stored in the collection.
// Missing collection returns ErrCollectionNotFound.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	exists, err := s.hasCollection(ctx, collection)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE collection = ?`, collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting collection %q: %w", collection, err)
	}
	return n, nil
}

// DeleteCollection removes the collection and all of its chunks. Deleting a
// collection that does not exist is a no-op; the call exists for setup
// round-trips and test cleanup, not for the public operation surface.
func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("deleting chunks of %q: %w", collection, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM collections WHERE name = ?`, collection); err != nil {
		return fmt.Errorf("deleting collection %q: %w", collection, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// buildScan appends json_extract filter clauses to base. Filter paths and
// values are bound as parameters, never interpolated into SQL.
func buildScan(base, collection string, filter map[string]string) (string, []any) {
	args := []any{collection}
	if len(filter) == 0 {
		return base, args
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		base += ` AND json_extract(meta, ?) = ?`
		args = append(args, "$."+k, filter[k])
	}
	return base, args
}
