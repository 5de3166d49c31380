package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/knowledgeextractor/internal/models"
)

// ErrNotFound is returned by Get for an unknown id
var ErrNotFound = errors.New("analysis not found")

// PersistenceError reports a failed read or write against the store
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

const analysisColumns = `id, created_at, original_text, summary, title, topics, sentiment, keywords, confidence`

// likeEscape is declared in every LIKE clause so that the search term matches literally
const likeEscape = "!"

const tracerName = "knowledgeextractor/database"

// Create stores a new analysis and returns it with its id and creation time
func (db *DB) Create(ctx context.Context, a models.NewAnalysis) (*models.Analysis, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "database.save_analysis",
		trace.WithAttributes(attribute.String("db.system", db.dialect.name)))
	defer span.End()

	// microseconds are the finest precision postgres and mysql keep
	createdAt := db.clock.Now().UTC().Truncate(time.Microsecond)
	topics := models.EncodeList(a.Topics)
	keywords := models.EncodeList(a.Keywords)

	query := `INSERT INTO analyses (created_at, original_text, summary, title, topics, sentiment, keywords, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{createdAt, a.OriginalText, a.Summary, nullString(a.Title), topics, a.Sentiment, keywords, nullFloat(a.Confidence)}

	var id int64
	if db.dialect.returning {
		err := db.conn.QueryRowContext(ctx, db.dialect.rebind(query+" RETURNING id"), args...).Scan(&id)
		if err != nil {
			return nil, db.fail(span, "insert analysis", err)
		}
	} else {
		result, err := db.conn.ExecContext(ctx, db.dialect.rebind(query), args...)
		if err != nil {
			return nil, db.fail(span, "insert analysis", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return nil, db.fail(span, "read inserted id", err)
		}
	}

	span.SetAttributes(attribute.Int64("analysis.id", id))
	return &models.Analysis{
		ID:           id,
		CreatedAt:    createdAt,
		OriginalText: a.OriginalText,
		Summary:      a.Summary,
		Title:        a.Title,
		Topics:       models.DecodeList(topics),
		Sentiment:    a.Sentiment,
		Keywords:     models.DecodeList(keywords),
		Confidence:   a.Confidence,
	}, nil
}

// Get retrieves an analysis by id
func (db *DB) Get(ctx context.Context, id int64) (*models.Analysis, error) {
	row := db.conn.QueryRowContext(ctx,
		db.dialect.rebind("SELECT "+analysisColumns+" FROM analyses WHERE id = ?"), id)

	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get analysis", Err: err}
	}
	return a, nil
}

// Search returns every analysis whose encoded topics or keywords contain term,
// case-insensitively, newest first. The match runs over the stored scalar, so
// it can span the list delimiter. An empty term matches every analysis.
func (db *DB) Search(ctx context.Context, term string) ([]*models.Analysis, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "database.search_analyses",
		trace.WithAttributes(
			attribute.String("db.system", db.dialect.name),
			attribute.String("search.term", term),
		))
	defer span.End()

	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	query := "SELECT " + analysisColumns + ` FROM analyses
		WHERE LOWER(topics) LIKE ? ESCAPE '` + likeEscape + `'
		   OR LOWER(keywords) LIKE ? ESCAPE '` + likeEscape + `'
		ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, db.dialect.rebind(query), pattern, pattern)
	if err != nil {
		return nil, db.fail(span, "search analyses", err)
	}
	defer rows.Close()

	analyses := []*models.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, db.fail(span, "scan analysis", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, db.fail(span, "iterate analyses", err)
	}

	span.SetAttributes(attribute.Int("search.results", len(analyses)))
	return analyses, nil
}

// Count returns the number of stored analyses
func (db *DB) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM analyses").Scan(&n); err != nil {
		return 0, &PersistenceError{Op: "count analyses", Err: err}
	}
	return n, nil
}

func (db *DB) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	db.logger.Error("database operation failed", "op", op, "driver", db.dialect.name, "error", err)
	return &PersistenceError{Op: op, Err: err}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*models.Analysis, error) {
	var (
		a          models.Analysis
		title      sql.NullString
		topics     string
		keywords   string
		confidence sql.NullFloat64
	)
	if err := s.Scan(&a.ID, &a.CreatedAt, &a.OriginalText, &a.Summary, &title, &topics, &a.Sentiment, &keywords, &confidence); err != nil {
		return nil, err
	}

	a.CreatedAt = a.CreatedAt.UTC()
	if title.Valid {
		a.Title = &title.String
	}
	if confidence.Valid {
		a.Confidence = &confidence.Float64
	}
	a.Topics = models.DecodeList(topics)
	a.Keywords = models.DecodeList(keywords)
	return &a, nil
}

// escapeLike makes LIKE metacharacters in s match literally
func escapeLike(s string) string {
	r := strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	)
	return r.Replace(s)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
