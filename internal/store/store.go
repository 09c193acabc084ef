package store

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// ErrCorrupted signals that the persisted index cannot be trusted: the
// stored embedding dimension is missing or does not match the query vector
// (typically an embedding-model change without a rebuild). The index must be
// rebuilt before further queries are trusted.
var ErrCorrupted = errors.New("index corrupted")

// Index provides persistence for embedded documentation chunks.
type Index interface {
	// Rebuild atomically replaces the entire collection with records.
	// A failed rebuild leaves the previous contents untouched.
	Rebuild(records []Record, info RunInfo) error
	// Search finds the k records closest to the query embedding, best first.
	Search(queryEmbedding []float32, k int) ([]SearchResult, error)
	// Count returns the number of indexed records.
	Count() (int, error)
	// Sources summarizes the collection per source document.
	Sources() ([]SourceSummary, error)
	// Meta returns a metadata value by key, or "" if not set.
	Meta(key string) (string, error)
	// Close closes the underlying database.
	Close() error
}

// SQLiteIndex implements Index backed by SQLite + sqlite-vec. One database
// file holds one collection.
type SQLiteIndex struct {
	db *sql.DB
}

// Path returns the database file for a collection under dataDir.
func Path(dataDir, collection string) string {
	return filepath.Join(dataDir, collection+".db")
}

// Open creates or opens a SQLite database at the given path and initializes
// the schema.
func Open(dbPath string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteIndex{db: db}, nil
}

// Rebuild replaces the entire collection in a single transaction: the vec0
// table is dropped and recreated at the observed dimension, chunk rows are
// wiped, and everything is inserted fresh. Either the commit lands and the
// new index is complete, or the transaction rolls back and the previous
// index survives — a reader never sees a mix of runs.
func (s *SQLiteIndex) Rebuild(records []Record, info RunInfo) error {
	dim := 0
	for _, r := range records {
		if len(r.Embedding) == 0 {
			return fmt.Errorf("record %s has no embedding", r.ID)
		}
		if dim == 0 {
			dim = len(r.Embedding)
		} else if len(r.Embedding) != dim {
			return fmt.Errorf("record %s has dimension %d, want %d", r.ID, len(r.Embedding), dim)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS vec_chunks"); err != nil {
		return fmt.Errorf("drop vector table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM meta"); err != nil {
		return fmt.Errorf("clear meta: %w", err)
	}

	if len(records) > 0 {
		create := fmt.Sprintf(
			"CREATE VIRTUAL TABLE vec_chunks USING vec0(chunk_seq INTEGER PRIMARY KEY, embedding float[%d] distance_metric=cosine)",
			dim,
		)
		if _, err := tx.Exec(create); err != nil {
			return fmt.Errorf("create vector table: %w", err)
		}

		chunkStmt, err := tx.Prepare(
			"INSERT INTO chunks (chunk_id, source_url, doc_index, chunk_index, content) VALUES (?, ?, ?, ?, ?)",
		)
		if err != nil {
			return err
		}
		defer chunkStmt.Close()

		vecStmt, err := tx.Prepare("INSERT INTO vec_chunks (chunk_seq, embedding) VALUES (?, ?)")
		if err != nil {
			return err
		}
		defer vecStmt.Close()

		for _, r := range records {
			res, err := chunkStmt.Exec(r.ID, r.SourceURL, r.DocIndex, r.ChunkIndex, r.Content)
			if err != nil {
				return fmt.Errorf("insert chunk %s: %w", r.ID, err)
			}
			seq, err := res.LastInsertId()
			if err != nil {
				return err
			}
			blob, err := sqlite_vec.SerializeFloat32(r.Embedding)
			if err != nil {
				return fmt.Errorf("serialize embedding for %s: %w", r.ID, err)
			}
			if _, err := vecStmt.Exec(seq, blob); err != nil {
				return fmt.Errorf("insert embedding for %s: %w", r.ID, err)
			}
		}
	}

	metaStmt, err := tx.Prepare("INSERT INTO meta (key, value) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer metaStmt.Close()

	pairs := [][2]string{
		{metaDimension, strconv.Itoa(dim)},
		{metaEmbeddingModel, info.EmbeddingModel},
		{metaRunID, info.RunID},
		{metaRecordCount, strconv.Itoa(len(records))},
	}
	for _, kv := range pairs {
		if _, err := metaStmt.Exec(kv[0], kv[1]); err != nil {
			return fmt.Errorf("write meta %s: %w", kv[0], err)
		}
	}

	return tx.Commit()
}

// Search returns the k records closest to the query embedding under cosine
// distance, best first, ties broken by insertion order. Asking for more than
// the collection holds returns everything. An empty index returns no results
// and no error.
func (s *SQLiteIndex) Search(queryEmbedding []float32, k int) ([]SearchResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be >= 1, got %d", k)
	}

	count, err := s.Count()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	dimStr, err := s.Meta(metaDimension)
	if err != nil {
		return nil, err
	}
	dim, err := strconv.Atoi(dimStr)
	if err != nil || dim <= 0 {
		return nil, fmt.Errorf("%w: stored dimension %q is invalid", ErrCorrupted, dimStr)
	}
	if len(queryEmbedding) != dim {
		return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d (rebuild required)",
			ErrCorrupted, len(queryEmbedding), dim)
	}

	blob, err := sqlite_vec.SerializeFloat32(queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}

	// vec0 KNN queries require k as a vtab constraint; a LIMIT on the outer
	// join is not pushed down and the plan is rejected.
	rows, err := s.db.Query(`
		SELECT c.chunk_id, c.source_url, c.doc_index, c.chunk_index, c.content, v.distance
		FROM vec_chunks v
		JOIN chunks c ON c.seq = v.chunk_seq
		WHERE v.embedding MATCH ? AND v.k = ?
		ORDER BY v.distance, c.seq
	`, blob, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		err := rows.Scan(
			&r.Record.ID, &r.Record.SourceURL, &r.Record.DocIndex,
			&r.Record.ChunkIndex, &r.Record.Content, &r.Distance,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Sources summarizes the collection per source document, in document order.
func (s *SQLiteIndex) Sources() ([]SourceSummary, error) {
	rows, err := s.db.Query(`
		SELECT source_url, doc_index, COUNT(*)
		FROM chunks
		GROUP BY doc_index, source_url
		ORDER BY doc_index
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []SourceSummary
	for rows.Next() {
		var src SourceSummary
		if err := rows.Scan(&src.URL, &src.DocIndex, &src.Chunks); err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// Count returns the number of records in the collection.
func (s *SQLiteIndex) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Meta returns a metadata value by key, or "" if not set.
func (s *SQLiteIndex) Meta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the underlying database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}
