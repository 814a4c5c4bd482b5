// Package history keeps a SQLite log of the responses the CLI received.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/middleware"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("history entry not found")

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	method           TEXT    NOT NULL,
	url              TEXT    NOT NULL,
	status           INTEGER NOT NULL,
	duration_ms      INTEGER NOT NULL,
	request_headers  TEXT    NOT NULL,
	request_body     TEXT,
	response_headers TEXT    NOT NULL,
	response_body    TEXT    NOT NULL,
	created_at       TIMESTAMP NOT NULL
)`

// Entry is one recorded exchange.
type Entry struct {
	ID              int64             `json:"id"`
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	Status          int               `json:"status"`
	Duration        time.Duration     `json:"duration"`
	RequestHeaders  map[string]string `json:"requestHeaders,omitempty"`
	RequestBody     *string           `json:"requestBody,omitempty"`
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty"`
	ResponseBody    string            `json:"responseBody"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// Store is a SQLite-backed history. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the history database. path may carry a "sqlite:" or
// "sqlite://" prefix; ":memory:" gives a private in-memory store.
func Open(path string) (*Store, error) {
	dsn := dataSource(path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func dataSource(path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "sqlite://") {
		return strings.TrimPrefix(path, "sqlite://")
	}
	return strings.TrimPrefix(path, "sqlite:")
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores resp and the request that produced it.
func (s *Store) Record(ctx context.Context, resp *http.Response) (*Entry, error) {
	e := &Entry{
		Status:          resp.StatusCode,
		Duration:        resp.Duration,
		ResponseHeaders: resp.Headers,
		ResponseBody:    string(resp.Body),
		CreatedAt:       s.now().UTC(),
	}
	if req := resp.Request; req != nil {
		e.Method = req.Method
		e.URL = req.URL
		e.RequestHeaders = req.Headers
		if req.HasBody {
			body := req.Body
			e.RequestBody = &body
		}
	}

	reqHeaders, err := encodeHeaders(e.RequestHeaders)
	if err != nil {
		return nil, err
	}
	respHeaders, err := encodeHeaders(e.ResponseHeaders)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (method, url, status, duration_ms, request_headers, request_body, response_headers, response_body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Method, e.URL, e.Status, e.Duration.Milliseconds(), reqHeaders, e.RequestBody, respHeaders, e.ResponseBody, e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("record history: %w", err)
	}

	e.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("record history: %w", err)
	}
	e.Duration = time.Duration(e.Duration.Milliseconds()) * time.Millisecond
	return e, nil
}

const selectEntries = `SELECT id, method, url, status, duration_ms, request_headers, request_body, response_headers, response_body, created_at FROM entries`

// List returns the newest entries first. limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	query := selectEntries + ` ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// Get returns one entry by id.
func (s *Store) Get(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, selectEntries+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return e, err
}

// Clear deletes every entry and reports how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

// Middleware records every response that reaches it and passes it on
// unchanged. Put it before ParseJSON to also record error responses.
func (s *Store) Middleware() middleware.Middleware {
	return func(ctx context.Context, resp *http.Response) (*http.Response, error) {
		if _, err := s.Record(ctx, resp); err != nil {
			return nil, err
		}
		return resp, nil
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e           Entry
		durationMs  int64
		reqHeaders  string
		respHeaders string
		reqBody     sql.NullString
	)
	err := row.Scan(&e.ID, &e.Method, &e.URL, &e.Status, &durationMs, &reqHeaders, &reqBody, &respHeaders, &e.ResponseBody, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	e.Duration = time.Duration(durationMs) * time.Millisecond
	if reqBody.Valid {
		e.RequestBody = &reqBody.String
	}
	if err := json.Unmarshal([]byte(reqHeaders), &e.RequestHeaders); err != nil {
		return nil, fmt.Errorf("decode request headers of entry %d: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(respHeaders), &e.ResponseHeaders); err != nil {
		return nil, fmt.Errorf("decode response headers of entry %d: %w", e.ID, err)
	}
	return &e, nil
}

func encodeHeaders(h map[string]string) (string, error) {
	if h == nil {
		h = map[string]string{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("encode headers: %w", err)
	}
	return string(b), nil
}
