// Package cache provides SQLite-backed caching of generated output. The
// cache is stored in .bindgen/cache.db and keys each generation run by a
// fingerprint of the policy file and every header it read, so unchanged
// inputs skip parsing entirely.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// Cache manages the .bindgen/cache.db SQLite database.
type Cache struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the cache database in the given .bindgen directory.
// It initializes the schema if the database is new.
func Open(bindgenDir string) (*Cache, error) {
	dbPath := filepath.Join(bindgenDir, "cache.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	// WAL keeps a concurrent status query from blocking a running generate.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	cache := &Cache{db: db, dbPath: dbPath}

	if err := cache.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return cache, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Clear removes all cached runs and outputs.
func (c *Cache) Clear() error {
	_, err := c.db.Exec("DELETE FROM outputs; DELETE FROM inputs; DELETE FROM runs;")
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.dbPath
}

// Fingerprint hashes the policy file plus every input file a run read.
// Paths are sorted so the fingerprint is independent of traversal order.
func Fingerprint(policyPath string, inputs []string) (string, error) {
	paths := append([]string{policyPath}, inputs...)
	sort.Strings(paths)

	h := sha256.New()
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("fingerprint %s: %w", path, err)
		}
		fmt.Fprintf(h, "%s\x00", path)
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", fmt.Errorf("fingerprint %s: %w", path, err)
		}
		f.Close()
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Output is one cached generated file.
type Output struct {
	Name    string
	Content string
}

// Lookup returns the cached outputs for a fingerprint, or nil when the
// fingerprint is unknown.
func (c *Cache) Lookup(fingerprint string) ([]Output, error) {
	var runID int64
	err := c.db.QueryRow("SELECT id FROM runs WHERE fingerprint = ?", fingerprint).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup run: %w", err)
	}

	rows, err := c.db.Query(
		"SELECT file_name, content FROM outputs WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, fmt.Errorf("lookup outputs: %w", err)
	}
	defer rows.Close()

	var outputs []Output
	for rows.Next() {
		var out Output
		if err := rows.Scan(&out.Name, &out.Content); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		outputs = append(outputs, out)
	}
	return outputs, rows.Err()
}

// Latest returns the fingerprint and input file list of the most recent
// run, so the caller can re-fingerprint those files before deciding to
// parse. Returns empty values when the cache holds no runs.
func (c *Cache) Latest() (fingerprint string, inputs []string, err error) {
	var runID int64
	err = c.db.QueryRow(
		"SELECT id, fingerprint FROM runs ORDER BY id DESC LIMIT 1").Scan(&runID, &fingerprint)
	if err == sql.ErrNoRows {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("latest run: %w", err)
	}

	rows, err := c.db.Query(
		"SELECT path FROM inputs WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return "", nil, fmt.Errorf("latest inputs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return "", nil, fmt.Errorf("scan input: %w", err)
		}
		inputs = append(inputs, path)
	}
	return fingerprint, inputs, rows.Err()
}

// Store records the inputs and outputs of one run under its fingerprint,
// replacing any previous run with the same fingerprint.
func (c *Cache) Store(fingerprint string, inputs []string, outputs []Output) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin store: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM outputs WHERE run_id IN (SELECT id FROM runs WHERE fingerprint = ?)",
		fingerprint); err != nil {
		return fmt.Errorf("evict outputs: %w", err)
	}
	if _, err := tx.Exec(
		"DELETE FROM inputs WHERE run_id IN (SELECT id FROM runs WHERE fingerprint = ?)",
		fingerprint); err != nil {
		return fmt.Errorf("evict inputs: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM runs WHERE fingerprint = ?", fingerprint); err != nil {
		return fmt.Errorf("evict run: %w", err)
	}

	res, err := tx.Exec(
		"INSERT INTO runs (fingerprint, created_at) VALUES (?, ?)",
		fingerprint, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}

	for i, path := range inputs {
		if _, err := tx.Exec(
			"INSERT INTO inputs (run_id, position, path) VALUES (?, ?, ?)",
			runID, i, path); err != nil {
			return fmt.Errorf("insert input: %w", err)
		}
	}

	for i, out := range outputs {
		if _, err := tx.Exec(
			"INSERT INTO outputs (run_id, position, file_name, content) VALUES (?, ?, ?, ?)",
			runID, i, out.Name, out.Content); err != nil {
			return fmt.Errorf("insert output: %w", err)
		}
	}

	return tx.Commit()
}

// Stats returns cache statistics.
type Stats struct {
	RunCount    int64
	OutputCount int64
}

// GetStats returns statistics about the cache contents.
func (c *Cache) GetStats() (*Stats, error) {
	var stats Stats

	err := c.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&stats.RunCount)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	err = c.db.QueryRow("SELECT COUNT(*) FROM outputs").Scan(&stats.OutputCount)
	if err != nil {
		return nil, fmt.Errorf("count outputs: %w", err)
	}

	return &stats, nil
}
