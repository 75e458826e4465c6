package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/glebarez/go-sqlite"

	"github.com/testpilot-ai/testpilot/internal/engine"
)

// ErrNotFound is returned when no run matches the requested ID.
var ErrNotFound = errors.New("run not found")

// Store archives completed test results and screenshots in SQLite. It
// backs the results/screenshots resources exposed over HTTP and MCP.
type Store struct {
	DB *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			title TEXT,
			status TEXT,
			result_json TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS screenshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			data_uri TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, q := range queries {
		_, err = db.Exec(q)
		if err != nil {
			return nil, err
		}
	}

	return &Store{DB: db}, nil
}

// SaveResult archives a completed run. Saving the same run ID again
// replaces the stored document.
func (s *Store) SaveResult(result *engine.TestResult) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	query := `INSERT OR REPLACE INTO runs (id, title, status, result_json) VALUES (?, ?, ?, ?)`
	_, err = s.DB.Exec(query, result.ID, result.Title, string(result.Status), string(encoded))
	if err != nil {
		return err
	}

	if result.Screenshot != "" {
		_, err = s.DB.Exec(`INSERT INTO screenshots (run_id, data_uri) VALUES (?, ?)`, result.ID, result.Screenshot)
	}
	return err
}

// Result returns the archived run with the given ID.
func (s *Store) Result(id string) (*engine.TestResult, error) {
	row := s.DB.QueryRow(`SELECT result_json FROM runs WHERE id = ?`, id)
	return scanResult(row)
}

// LatestResult returns the most recently archived run.
func (s *Store) LatestResult() (*engine.TestResult, error) {
	row := s.DB.QueryRow(`SELECT result_json FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	return scanResult(row)
}

func scanResult(row *sql.Row) (*engine.TestResult, error) {
	var encoded string
	if err := row.Scan(&encoded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var result engine.TestResult
	if err := json.Unmarshal([]byte(encoded), &result); err != nil {
		return nil, fmt.Errorf("failed to decode stored result: %w", err)
	}
	return &result, nil
}

// LatestScreenshot returns the base64 PNG payload of the most recent
// screenshot, without the data-URI prefix.
func (s *Store) LatestScreenshot() (string, error) {
	var dataURI string
	row := s.DB.QueryRow(`SELECT data_uri FROM screenshots ORDER BY created_at DESC, id DESC LIMIT 1`)
	if err := row.Scan(&dataURI); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}

	if i := strings.Index(dataURI, ","); i >= 0 {
		return dataURI[i+1:], nil
	}
	return dataURI, nil
}

// ScreenshotAt returns the base64 PNG payload of the newest screenshot
// captured at or before the given timestamp ("2006-01-02 15:04:05",
// UTC, matching SQLite's CURRENT_TIMESTAMP), without the data-URI
// prefix.
func (s *Store) ScreenshotAt(timestamp string) (string, error) {
	var dataURI string
	row := s.DB.QueryRow(
		`SELECT data_uri FROM screenshots WHERE created_at <= ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		timestamp)
	if err := row.Scan(&dataURI); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}

	if i := strings.Index(dataURI, ","); i >= 0 {
		return dataURI[i+1:], nil
	}
	return dataURI, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
