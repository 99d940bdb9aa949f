package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/morezero/ckan-portal/pkg/events"
)

const repoLogPrefix = "db:repository"

// Repository provides access to the invocation audit log.
type Repository struct {
	db DBTX
}

// NewRepository creates a new Repository on a pool, connection or transaction.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// RecordInvocation inserts one audit row and fills in its ID and Created.
func (r *Repository) RecordInvocation(ctx context.Context, inv *Invocation) error {
	slog.Debug(fmt.Sprintf("%s - RecordInvocation action=%s success=%v", repoLogPrefix, inv.Action, inv.Success))

	if inv.Created.IsZero() {
		inv.Created = time.Now().UTC()
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO invocations (action, version, url, success, error_type, status_code, duration_ms, request_id, created)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		inv.Action, inv.Version, inv.URL, inv.Success, inv.ErrorType, inv.StatusCode, inv.DurationMs, inv.RequestID, inv.Created,
	).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("%s - insert invocation failed: %w", repoLogPrefix, err)
	}
	return nil
}

// ListInvocations returns audit rows, newest first.
func (r *Repository) ListInvocations(ctx context.Context, filter ListFilter) ([]Invocation, error) {
	query, args := buildListQuery(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s - list invocations failed: %w", repoLogPrefix, err)
	}

	out, err := pgx.CollectRows(rows, scanInvocation)
	if err != nil {
		return nil, fmt.Errorf("%s - scan invocations failed: %w", repoLogPrefix, err)
	}
	return out, nil
}

// PublishInvoked records an invocation event, so the repository can be used
// wherever an events.EventPublisher is accepted.
func (r *Repository) PublishInvoked(ctx context.Context, event *events.InvocationEvent) error {
	return r.RecordInvocation(ctx, InvocationFromEvent(event))
}

// InvocationFromEvent maps an invocation event to an audit row.
func InvocationFromEvent(e *events.InvocationEvent) *Invocation {
	inv := &Invocation{
		Action:     e.Action,
		Version:    e.Version,
		URL:        e.URL,
		Success:    e.Success,
		DurationMs: e.DurationMs,
	}
	if e.ErrorType != "" {
		inv.ErrorType = &e.ErrorType
	}
	if e.StatusCode != 0 {
		code := e.StatusCode
		inv.StatusCode = &code
	}
	if e.RequestID != "" {
		inv.RequestID = &e.RequestID
	}
	if ts, err := time.Parse(time.RFC3339Nano, e.Timestamp); err == nil {
		inv.Created = ts.UTC()
	}
	return inv
}

func buildListQuery(f ListFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Action != "" {
		args = append(args, f.Action)
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	if f.OnlyFailures {
		where = append(where, "success = false")
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since.UTC())
		where = append(where, fmt.Sprintf("created >= $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit)

	var sb strings.Builder
	sb.WriteString(`SELECT id, action, version, url, success, error_type, status_code, duration_ms, request_id, created FROM invocations`)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	fmt.Fprintf(&sb, " ORDER BY created DESC LIMIT $%d", len(args))
	return sb.String(), args
}

func scanInvocation(row pgx.CollectableRow) (Invocation, error) {
	var inv Invocation
	err := row.Scan(&inv.ID, &inv.Action, &inv.Version, &inv.URL, &inv.Success,
		&inv.ErrorType, &inv.StatusCode, &inv.DurationMs, &inv.RequestID, &inv.Created)
	return inv, err
}
