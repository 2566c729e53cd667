// Package archive retains every callback payload the honeypot attempts
// to deliver. Records are HMAC-signed at write time so an operator can
// later prove a report was not altered after capture, and each record
// tracks whether the upstream endpoint acknowledged it. Sessions are
// in-memory and swept; the archive is the only state that survives a
// restart.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	hcotel "github.com/SaketSinghRajput/honeycomb/internal/otel"
)

var tracer = hcotel.Tracer("github.com/SaketSinghRajput/honeycomb/internal/archive")

// ErrRecordNotFound is returned when a report record does not exist.
var ErrRecordNotFound = errors.New("report record not found")

// DefaultListLimit caps List results when the caller passes no limit.
const DefaultListLimit = 50

const schema = `
CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    payload TEXT NOT NULL,
    delivered INTEGER NOT NULL DEFAULT 0,
    signature TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    delivered_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_reports_session ON reports(session_id);
CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
`

// Record is one archived callback payload.
type Record struct {
	ID          int64           `json:"id"`
	SessionID   string          `json:"session_id"`
	Payload     json.RawMessage `json:"payload"`
	Delivered   bool            `json:"delivered"`
	Signature   string          `json:"signature"`
	CreatedAt   time.Time       `json:"created_at"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"`
}

// Store persists HMAC-signed report records in SQLite.
type Store struct {
	db     *sql.DB
	signer *Signer
}

// NewStore opens the reports database, initializing the schema. The
// signing key requirements match NewSigner.
func NewStore(dbPath, signingKey string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening reports database: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating reports schema: %w", err)
	}

	signer, err := NewSigner(signingKey)
	if err != nil {
		return nil, fmt.Errorf("creating report signer: %w", err)
	}

	return &Store{db: db, signer: signer}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record archives a payload for a session, marked undelivered, and
// returns the record id.
func (s *Store) Record(ctx context.Context, sessionID string, payload []byte) (int64, error) {
	ctx, span := tracer.Start(ctx, "archive.record",
		trace.WithAttributes(
			attribute.String("session_id", sessionID),
			attribute.Int("archive.payload_bytes", len(payload)),
		))
	defer span.End()

	signature, err := s.signer.Sign(payload)
	if err != nil {
		return 0, fmt.Errorf("signing report payload: %w", err)
	}

	var id int64
	err = s.execWithRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO reports (session_id, payload, delivered, signature, created_at)
			 VALUES (?, ?, 0, ?, ?)`,
			sessionID, string(payload), signature, time.Now().UTC())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("inserting report record: %w", err)
	}

	reportsArchived.Add(ctx, 1)
	span.SetAttributes(attribute.Int64("archive.record_id", id))
	return id, nil
}

// MarkDelivered flags a record as acknowledged by the endpoint.
func (s *Store) MarkDelivered(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "archive.mark_delivered",
		trace.WithAttributes(attribute.Int64("archive.record_id", id)))
	defer span.End()

	var affected int64
	err := s.execWithRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE reports SET delivered = 1, delivered_at = ? WHERE id = ?`,
			time.Now().UTC(), id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("updating report record: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("report %d: %w", id, ErrRecordNotFound)
	}

	reportsDelivered.Add(ctx, 1)
	return nil
}

// GetBySession returns all records for a session, newest first.
func (s *Store) GetBySession(ctx context.Context, sessionID string) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "archive.get_by_session",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, payload, delivered, signature, created_at, delivered_at
		 FROM reports WHERE session_id = ? ORDER BY id DESC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying reports by session: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("archive.record_count", len(records)))
	return records, nil
}

// List returns the most recent records across all sessions. A
// non-positive limit falls back to DefaultListLimit.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "archive.list")
	defer span.End()

	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, payload, delivered, signature, created_at, delivered_at
		 FROM reports ORDER BY id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("archive.record_count", len(records)))
	return records, nil
}

// Verify checks the signature integrity of a stored record.
func (s *Store) Verify(ctx context.Context, id int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "archive.verify",
		trace.WithAttributes(attribute.Int64("archive.record_id", id)))
	defer span.End()

	var payload, signature string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, signature FROM reports WHERE id = ?`, id).
		Scan(&payload, &signature)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("report %d: %w", id, ErrRecordNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("querying report record: %w", err)
	}

	valid := s.signer.Verify([]byte(payload), signature)
	span.SetAttributes(attribute.Bool("archive.signature_valid", valid))
	return valid, nil
}

// execWithRetry runs fn with retries on SQLite busy/locked errors.
func (s *Store) execWithRetry(ctx context.Context, fn func() error) error {
	const maxRetries = 15
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepRetry(ctx, attempt); err != nil {
				return err
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteLocked(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func sleepRetry(ctx context.Context, attempt int) error {
	backoff := time.Duration(attempt*attempt) * 20 * time.Millisecond
	if backoff > 250*time.Millisecond {
		backoff = 250 * time.Millisecond
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-time.After(backoff):
		return nil
	}
}

func isSQLiteLocked(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "locked")
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			rec         Record
			payload     string
			delivered   int
			createdAt   any
			deliveredAt any
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &payload, &delivered,
			&rec.Signature, &createdAt, &deliveredAt); err != nil {
			return nil, fmt.Errorf("scanning report record: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		rec.Delivered = delivered != 0
		if t, ok := scanTime(createdAt); ok {
			rec.CreatedAt = t
		}
		if t, ok := scanTime(deliveredAt); ok {
			rec.DeliveredAt = &t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// scanTime converts SQLite timestamp values, which come back as
// time.Time, string, or []byte depending on the driver path.
func scanTime(v any) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	switch val := v.(type) {
	case time.Time:
		return val, true
	case []byte:
		return parseTimeString(string(val))
	case string:
		return parseTimeString(val)
	}
	return time.Time{}, false
}

func parseTimeString(s string) (time.Time, bool) {
	parsed, err := time.Parse("2006-01-02 15:04:05.999999999-07:00", s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
