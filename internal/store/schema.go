package store

import "database/sql"

// The vec0 virtual table is not part of the static schema: its dimension is
// only known once a rebuild delivers vectors, so Rebuild creates it inside
// the same transaction that fills it.
const ddl = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS chunks (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    chunk_id    TEXT NOT NULL UNIQUE,
    source_url  TEXT NOT NULL,
    doc_index   INTEGER NOT NULL,
    chunk_index INTEGER NOT NULL,
    content     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Meta keys written by Rebuild and checked by Search.
const (
	metaDimension      = "dimension"
	metaEmbeddingModel = "embedding_model"
	metaRunID          = "run_id"
	metaRecordCount    = "record_count"
)

// Init creates the schema tables if they don't exist.
func Init(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}
