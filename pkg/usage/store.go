package usage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Record is one completed (or failed) completion request.
type Record struct {
	// RequestID is the unique identifier assigned when the request entered
	// the service.
	RequestID string

	// Timestamp is when the request finished.
	Timestamp time.Time

	// Provider is the backend that handled the final attempt. Empty when
	// every provider was exhausted before a dispatch succeeded.
	Provider string

	// Model is the model the request asked for.
	Model string

	// Status is "success" or "error".
	Status string

	// Attempts is how many dispatch attempts the router made.
	Attempts int

	// Latency is the end-to-end duration of the request.
	Latency time.Duration

	// PromptTokens and CompletionTokens are the token counts reported by
	// the provider. Zero when the request failed before a response.
	PromptTokens     int
	CompletionTokens int
}

// ProviderSummary aggregates usage for one provider over a time range.
type ProviderSummary struct {
	Provider         string        `json:"provider"`
	Requests         int64         `json:"requests"`
	Successes        int64         `json:"successes"`
	Failures         int64         `json:"failures"`
	PromptTokens     int64         `json:"prompt_tokens"`
	CompletionTokens int64         `json:"completion_tokens"`
	AvgLatency       time.Duration `json:"avg_latency"`
}

// StoreConfig configures the usage store.
type StoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// Store records request history in SQLite.
type Store struct {
	db        *sql.DB
	logger    *slog.Logger
	closeOnce sync.Once

	insertStmt *sql.Stmt
}

// NewStore opens (creating if needed) the usage database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithConfig(StoreConfig{DBPath: dbPath})
}

// NewStoreWithConfig opens a usage store with custom settings.
func NewStoreWithConfig(cfg StoreConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:     db,
		logger: slog.Default().With("component", "usage.store"),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		request_id        TEXT NOT NULL PRIMARY KEY,
		timestamp         INTEGER NOT NULL,
		provider          TEXT NOT NULL,
		model             TEXT NOT NULL,
		status            TEXT NOT NULL,
		attempts          INTEGER NOT NULL,
		latency_ms        INTEGER NOT NULL,
		prompt_tokens     INTEGER NOT NULL,
		completion_tokens INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_requests_timestamp ON requests(timestamp);
	CREATE INDEX IF NOT EXISTS idx_requests_provider ON requests(provider, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	stmt, err := s.db.Prepare(`
		INSERT INTO requests
			(request_id, timestamp, provider, model, status, attempts,
			 latency_ms, prompt_tokens, completion_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	s.insertStmt = stmt
	return nil
}

// Record persists one request record.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if rec.RequestID == "" {
		return fmt.Errorf("request id cannot be empty")
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.insertStmt.ExecContext(ctx,
		rec.RequestID,
		ts.UnixMilli(),
		rec.Provider,
		rec.Model,
		rec.Status,
		rec.Attempts,
		rec.Latency.Milliseconds(),
		rec.PromptTokens,
		rec.CompletionTokens,
	)
	if err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}
	return nil
}

// Summarize aggregates per-provider usage for requests since the given time.
// A zero since covers the full history.
func (s *Store) Summarize(ctx context.Context, since time.Time) ([]ProviderSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider,
		       COUNT(*),
		       SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status != 'success' THEN 1 ELSE 0 END),
		       SUM(prompt_tokens),
		       SUM(completion_tokens),
		       AVG(latency_ms)
		FROM requests
		WHERE timestamp >= ?
		GROUP BY provider
		ORDER BY provider
	`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to summarize usage: %w", err)
	}
	defer rows.Close()

	var out []ProviderSummary
	for rows.Next() {
		var sum ProviderSummary
		var avgLatencyMs float64
		if err := rows.Scan(&sum.Provider, &sum.Requests, &sum.Successes,
			&sum.Failures, &sum.PromptTokens, &sum.CompletionTokens,
			&avgLatencyMs); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		sum.AvgLatency = time.Duration(avgLatencyMs * float64(time.Millisecond))
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Recent returns up to limit most recent records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, timestamp, provider, model, status, attempts,
		       latency_ms, prompt_tokens, completion_tokens
		FROM requests
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent requests: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var ts, latencyMs int64
		if err := rows.Scan(&rec.RequestID, &ts, &rec.Provider, &rec.Model,
			&rec.Status, &rec.Attempts, &latencyMs,
			&rec.PromptTokens, &rec.CompletionTokens); err != nil {
			return nil, fmt.Errorf("failed to scan request row: %w", err)
		}
		rec.Timestamp = time.UnixMilli(ts)
		rec.Latency = time.Duration(latencyMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune deletes records older than cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM requests WHERE timestamp < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune requests: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("pruned usage records",
			"deleted_count", deleted,
			"cutoff", cutoff,
		)
	}
	return deleted, nil
}

// Close releases the prepared statements and database handle.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.insertStmt != nil {
			s.insertStmt.Close()
		}
		err = s.db.Close()
	})
	return err
}
