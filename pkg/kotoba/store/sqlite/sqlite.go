// Package sqlite persists snapshots in a SQLite database via
// modernc.org/sqlite. Tables are normalized per payload section; the
// snapshot schema version lives in a meta table so format drift is
// detected at load time.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/kotoba/pkg/kotoba/internalerr"
	"github.com/cognicore/kotoba/pkg/kotoba/store"
)

type sqliteStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) a snapshot database with WAL mode
// enabled.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ngram_freq (
	key TEXT PRIMARY KEY,
	freq REAL NOT NULL,
	last_seen INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS continuations (
	prefix TEXT NOT NULL,
	token TEXT NOT NULL,
	PRIMARY KEY(prefix, token)
);

CREATE TABLE IF NOT EXISTS left_continuations (
	suffix TEXT NOT NULL,
	token TEXT NOT NULL,
	PRIMARY KEY(suffix, token)
);

CREATE TABLE IF NOT EXISTS doc_freq (
	token TEXT PRIMARY KEY,
	df INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS context_freq (
	label TEXT PRIMARY KEY,
	count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS vectors (
	term TEXT PRIMARY KEY,
	vec TEXT NOT NULL
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveSnapshot writes the snapshot inside one transaction, replacing the
// previous contents. A non-empty stored snapshot is never overwritten by
// an empty one.
func (s *sqliteStore) SaveSnapshot(ctx context.Context, snap store.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	if snap.Empty() {
		var existing int
		row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ngram_freq")
		if err := row.Scan(&existing); err != nil {
			return err
		}
		if existing > 0 {
			return internalerr.ErrEmptySnapshot
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"ngram_freq", "continuations", "left_continuations", "doc_freq", "context_freq", "vectors", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	lastSeen := make(map[string]uint64, len(snap.Payload.LastSeen))
	for _, pr := range snap.Payload.LastSeen {
		lastSeen[pr.Key] = pr.Seq
	}
	for _, pr := range snap.Payload.Frequencies {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO ngram_freq(key, freq, last_seen) VALUES(?, ?, ?)",
			pr.Key, pr.Freq, int64(lastSeen[pr.Key])); err != nil {
			return err
		}
	}
	for _, pr := range snap.Payload.Continuations {
		for _, tok := range pr.Tokens {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO continuations(prefix, token) VALUES(?, ?)", pr.Key, tok); err != nil {
				return err
			}
		}
	}
	for _, pr := range snap.Payload.LeftContinuations {
		for _, tok := range pr.Tokens {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO left_continuations(suffix, token) VALUES(?, ?)", pr.Key, tok); err != nil {
				return err
			}
		}
	}
	for _, pr := range snap.Payload.DocFreq {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO doc_freq(token, df) VALUES(?, ?)", pr.Key, pr.Count); err != nil {
			return err
		}
	}
	for _, pr := range snap.Payload.ContextFreq {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO context_freq(label, count) VALUES(?, ?)", pr.Key, pr.Count); err != nil {
			return err
		}
	}
	for _, pr := range snap.Payload.Vectors {
		vec, err := json.Marshal(pr.Values)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO vectors(term, vec) VALUES(?, ?)", pr.Key, string(vec)); err != nil {
			return err
		}
	}

	meta := map[string]string{
		"version":     strconv.Itoa(snap.Version),
		"total_docs":  strconv.FormatInt(snap.Payload.TotalDocs, 10),
		"batch_seq":   strconv.FormatUint(snap.Payload.BatchSeq, 10),
		"batch_id":    snap.Payload.BatchID,
		"saved_at":    snap.Payload.SavedAt.UTC().Format(time.RFC3339Nano),
		"vector_dims": strconv.Itoa(snap.Payload.VectorDims),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO meta(key, value) VALUES(?, ?)", k, v); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads the stored snapshot, if one exists.
func (s *sqliteStore) LoadSnapshot(ctx context.Context) (store.Snapshot, bool, error) {
	metaVals, err := s.readMeta(ctx)
	if err != nil {
		return store.Snapshot{}, false, err
	}
	if len(metaVals) == 0 {
		return store.Snapshot{}, false, nil
	}

	version, err := strconv.Atoi(metaVals["version"])
	if err != nil {
		return store.Snapshot{}, false, fmt.Errorf("%w: meta version %q", internalerr.ErrSnapshotShape, metaVals["version"])
	}

	snap := store.Snapshot{Version: version}
	snap.Payload.BatchID = metaVals["batch_id"]
	if ts, err := time.Parse(time.RFC3339Nano, metaVals["saved_at"]); err == nil {
		snap.Payload.SavedAt = ts
	}
	if td, err := strconv.ParseInt(metaVals["total_docs"], 10, 64); err == nil {
		snap.Payload.TotalDocs = td
	}
	if bs, err := strconv.ParseUint(metaVals["batch_seq"], 10, 64); err == nil {
		snap.Payload.BatchSeq = bs
	}

	rows, err := s.db.QueryContext(ctx, "SELECT key, freq, last_seen FROM ngram_freq ORDER BY key")
	if err != nil {
		return store.Snapshot{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var freq float64
		var seen int64
		if err := rows.Scan(&key, &freq, &seen); err != nil {
			return store.Snapshot{}, false, err
		}
		snap.Payload.Frequencies = append(snap.Payload.Frequencies, store.FreqPair{Key: key, Freq: freq})
		if seen > 0 {
			snap.Payload.LastSeen = append(snap.Payload.LastSeen, store.SeqPair{Key: key, Seq: uint64(seen)})
		}
	}
	if err := rows.Err(); err != nil {
		return store.Snapshot{}, false, err
	}

	snap.Payload.Continuations, err = s.readSets(ctx, "SELECT prefix, token FROM continuations ORDER BY prefix, token")
	if err != nil {
		return store.Snapshot{}, false, err
	}
	snap.Payload.LeftContinuations, err = s.readSets(ctx, "SELECT suffix, token FROM left_continuations ORDER BY suffix, token")
	if err != nil {
		return store.Snapshot{}, false, err
	}
	snap.Payload.DocFreq, err = s.readCounts(ctx, "SELECT token, df FROM doc_freq ORDER BY token")
	if err != nil {
		return store.Snapshot{}, false, err
	}
	snap.Payload.ContextFreq, err = s.readCounts(ctx, "SELECT label, count FROM context_freq ORDER BY label")
	if err != nil {
		return store.Snapshot{}, false, err
	}
	if vd, err := strconv.Atoi(metaVals["vector_dims"]); err == nil {
		snap.Payload.VectorDims = vd
	}
	snap.Payload.Vectors, err = s.readVectors(ctx)
	if err != nil {
		return store.Snapshot{}, false, err
	}

	if err := snap.Validate(); err != nil {
		return store.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *sqliteStore) readMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *sqliteStore) readSets(ctx context.Context, query string) ([]store.SetPair, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.SetPair
	for rows.Next() {
		var key, tok string
		if err := rows.Scan(&key, &tok); err != nil {
			return nil, err
		}
		if len(out) > 0 && out[len(out)-1].Key == key {
			out[len(out)-1].Tokens = append(out[len(out)-1].Tokens, tok)
		} else {
			out = append(out, store.SetPair{Key: key, Tokens: []string{tok}})
		}
	}
	return out, rows.Err()
}

func (s *sqliteStore) readVectors(ctx context.Context) ([]store.VectorPair, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT term, vec FROM vectors ORDER BY term")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.VectorPair
	for rows.Next() {
		var term, raw string
		if err := rows.Scan(&term, &raw); err != nil {
			return nil, err
		}
		var values []float64
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return nil, fmt.Errorf("%w: vector for %q: %v", internalerr.ErrSnapshotShape, term, err)
		}
		out = append(out, store.VectorPair{Key: term, Values: values})
	}
	return out, rows.Err()
}

func (s *sqliteStore) readCounts(ctx context.Context, query string) ([]store.CountPair, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.CountPair
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		out = append(out, store.CountPair{Key: key, Count: count})
	}
	return out, rows.Err()
}
