package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	_ "modernc.org/sqlite"
)

// Sink receives telemetry samples.
type Sink interface {
	Write(ctx context.Context, s Sample) error
	Close() error
}

// Open picks a sink from the file extension: .csv for CSV, .db, .sqlite or
// .sqlite3 for SQLite.
func Open(ctx context.Context, path string) (Sink, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVSink(path)
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteSink(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported telemetry output %q: use .csv, .db, .sqlite or .sqlite3", path)
	}
}

// CSVSink appends samples to a CSV file, writing the header with the first row.
type CSVSink struct {
	file          *os.File
	headerWritten bool
}

func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &CSVSink{file: f}, nil
}

func (c *CSVSink) Write(_ context.Context, s Sample) error {
	records := []Sample{s}

	if !c.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, c.file); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		c.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, c.file); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

func (c *CSVSink) Close() error {
	return c.file.Close()
}

// SQLiteSink inserts samples into the samples table of a SQLite database.
// Several runs may share one database; RunID tells them apart.
type SQLiteSink struct {
	db *sql.DB
}

func NewSQLiteSink(ctx context.Context, path string) (*SQLiteSink, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createSamplesTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating samples table: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

const createSamplesTable = `
	CREATE TABLE IF NOT EXISTS samples (
		run_id        TEXT    NOT NULL,
		frame         INTEGER NOT NULL,
		ticks         INTEGER NOT NULL,
		substeps      INTEGER NOT NULL,
		dropped       INTEGER NOT NULL,
		agents        INTEGER NOT NULL,
		mean_speed    REAL    NOT NULL,
		stddev_speed  REAL    NOT NULL,
		polarization  REAL    NOT NULL,
		centroid_x    REAL    NOT NULL,
		centroid_y    REAL    NOT NULL,
		spread        REAL    NOT NULL,
		scouts_a      INTEGER NOT NULL,
		scouts_b      INTEGER NOT NULL,
		mean_bias_a   REAL    NOT NULL,
		mean_bias_b   REAL    NOT NULL,
		pass_ms       REAL    NOT NULL,
		PRIMARY KEY (run_id, frame)
	)`

func (q *SQLiteSink) Write(ctx context.Context, s Sample) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO samples (
			run_id, frame, ticks, substeps, dropped, agents,
			mean_speed, stddev_speed, polarization, centroid_x, centroid_y, spread,
			scouts_a, scouts_b, mean_bias_a, mean_bias_b, pass_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.RunID, int64(s.Frame), int64(s.Ticks), s.Substeps, int64(s.Dropped), s.Agents,
		s.MeanSpeed, s.StdDevSpeed, s.Polarization, s.CentroidX, s.CentroidY, s.Spread,
		s.ScoutsA, s.ScoutsB, s.MeanBiasA, s.MeanBiasB, s.PassMillis)
	if err != nil {
		return fmt.Errorf("inserting sample %s/%d: %w", s.RunID, s.Frame, err)
	}
	return nil
}

// Count returns the number of samples recorded for runID.
func (q *SQLiteSink) Count(ctx context.Context, runID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

func (q *SQLiteSink) Close() error {
	return q.db.Close()
}
