package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/flowforge/engine/pkg/logger"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the concrete Store backed by a pgxpool.Pool. It intentionally
// does not leak pgx types through Store's public method signatures.
type Postgres struct {
	pool *pgxpool.Pool
}

// Open parses connectionString (passed verbatim from the settings loader,
// spec.md §4.1) and establishes a pooled connection, pinging once to fail
// fast on a bad DSN.
func Open(ctx context.Context, connectionString string) (*Postgres, error) {
	if connectionString == "" {
		return nil, errors.New("persistence: connection string is empty")
	}
	poolCfg, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("persistence: parse connection string: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("persistence: new pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("persistence: ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

var _ Store = (*Postgres)(nil)

// Init runs the minimal schema bootstrap: the two tables the core's
// pass-through queries rely on. A full migration story is out of scope for
// the orchestration core (spec.md §1 defers it to the persistence layer).
func (p *Postgres) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS run_entries (
	run_id TEXT PRIMARY KEY,
	workflow_id INTEGER NOT NULL,
	workflow_name TEXT NOT NULL,
	launched_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	job_id TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS engine_users (
	name TEXT PRIMARY KEY,
	hashed_password TEXT NOT NULL
);
`
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("persistence: init schema: %w", err)
	}
	return nil
}

func (p *Postgres) Close(ctx context.Context) error {
	p.pool.Close()
	logger.FromContext(ctx).Info("persistence store closed")
	return nil
}

func (p *Postgres) WriteEntry(ctx context.Context, entry Entry) error {
	query := `
INSERT INTO run_entries (run_id, workflow_id, workflow_name, launched_at, status, job_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (run_id) DO UPDATE SET status = $5`
	if _, err := p.pool.Exec(
		ctx, query,
		entry.RunID, entry.WorkflowID, entry.WorkflowName, entry.LaunchedAt, entry.Status, entry.JobID,
	); err != nil {
		return fmt.Errorf("persistence: write entry: %w", err)
	}
	return nil
}

func (p *Postgres) ClearStatusCount(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM run_entries`); err != nil {
		return fmt.Errorf("persistence: clear status count: %w", err)
	}
	return nil
}

func (p *Postgres) ClearEntries(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM run_entries`); err != nil {
		return fmt.Errorf("persistence: clear entries: %w", err)
	}
	return nil
}

func (p *Postgres) GetStatusCount(ctx context.Context) ([]StatusCount, error) {
	sql, args, err := squirrel.Select("status", "count(*)").
		From("run_entries").
		GroupBy("status").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("persistence: build status count query: %w", err)
	}
	var rows []struct {
		Status EntryStatus `db:"status"`
		Count  int64       `db:"count"`
	}
	if err := pgxscan.Select(ctx, p.pool, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("persistence: status count: %w", err)
	}
	out := make([]StatusCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, StatusCount{Status: r.Status, Count: r.Count})
	}
	return out, nil
}

func buildEntryQuery(base squirrel.SelectBuilder, filter EntryFilter) squirrel.SelectBuilder {
	if filter.WorkflowID != nil {
		base = base.Where(squirrel.Eq{"workflow_id": *filter.WorkflowID})
	}
	if filter.Status != nil {
		base = base.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.OrderDesc {
		base = base.OrderBy("launched_at DESC")
	} else {
		base = base.OrderBy("launched_at ASC")
	}
	if filter.PageSize > 0 {
		base = base.Limit(uint64(filter.PageSize))
		if filter.Page > 0 {
			base = base.Offset(uint64(filter.Page) * uint64(filter.PageSize))
		}
	}
	return base
}

func (p *Postgres) selectEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	base := squirrel.Select("run_id", "workflow_id", "workflow_name", "launched_at", "status", "job_id").
		From("run_entries").
		PlaceholderFormat(squirrel.Dollar)
	sql, args, err := buildEntryQuery(base, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("persistence: build entries query: %w", err)
	}
	var rows []struct {
		RunID        string      `db:"run_id"`
		WorkflowID   int         `db:"workflow_id"`
		WorkflowName string      `db:"workflow_name"`
		LaunchedAt   time.Time   `db:"launched_at"`
		Status       EntryStatus `db:"status"`
		JobID        string      `db:"job_id"`
	}
	if err := pgxscan.Select(ctx, p.pool, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("persistence: select entries: %w", err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{
			RunID:        r.RunID,
			WorkflowID:   r.WorkflowID,
			WorkflowName: r.WorkflowName,
			LaunchedAt:   r.LaunchedAt,
			Status:       r.Status,
			JobID:        r.JobID,
		})
	}
	return entries, nil
}

func (p *Postgres) countEntries(ctx context.Context, filter EntryFilter) (int64, error) {
	base := squirrel.Select("count(*)").From("run_entries").PlaceholderFormat(squirrel.Dollar)
	if filter.WorkflowID != nil {
		base = base.Where(squirrel.Eq{"workflow_id": *filter.WorkflowID})
	}
	if filter.Status != nil {
		base = base.Where(squirrel.Eq{"status": *filter.Status})
	}
	sql, args, err := base.ToSql()
	if err != nil {
		return 0, fmt.Errorf("persistence: build count query: %w", err)
	}
	var count int64
	if err := pgxscan.Get(ctx, p.pool, &count, sql, args...); err != nil {
		return 0, fmt.Errorf("persistence: count entries: %w", err)
	}
	return count, nil
}

func (p *Postgres) GetEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	return p.selectEntries(ctx, filter)
}

func (p *Postgres) GetEntriesCount(ctx context.Context, filter EntryFilter) (int64, error) {
	return p.countEntries(ctx, filter)
}

func (p *Postgres) GetHistoryEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	return p.selectEntries(ctx, filter)
}

func (p *Postgres) GetHistoryEntriesCount(ctx context.Context, filter EntryFilter) (int64, error) {
	return p.countEntries(ctx, filter)
}

func (p *Postgres) entryDateBound(ctx context.Context, fn string) (time.Time, error) {
	sql := fmt.Sprintf(`SELECT COALESCE(%s(launched_at), to_timestamp(0)) FROM run_entries`, fn)
	var t time.Time
	if err := pgxscan.Get(ctx, p.pool, &t, sql); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("persistence: %s(launched_at): %w", fn, err)
	}
	return t, nil
}

func (p *Postgres) GetEntryStatusDateMin(ctx context.Context) (time.Time, error) {
	return p.entryDateBound(ctx, "min")
}

func (p *Postgres) GetEntryStatusDateMax(ctx context.Context) (time.Time, error) {
	return p.entryDateBound(ctx, "max")
}

func (p *Postgres) InsertUser(ctx context.Context, user User) error {
	query := `
INSERT INTO engine_users (name, hashed_password) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET hashed_password = $2`
	if _, err := p.pool.Exec(ctx, query, user.Name, user.HashedPassword); err != nil {
		return fmt.Errorf("persistence: insert user: %w", err)
	}
	return nil
}

func (p *Postgres) GetUser(ctx context.Context, name string) (*User, error) {
	var u User
	err := pgxscan.Get(ctx, p.pool, &u,
		`SELECT name, hashed_password FROM engine_users WHERE name = $1`, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("persistence: user %q not found", name)
		}
		return nil, fmt.Errorf("persistence: get user: %w", err)
	}
	return &u, nil
}

func (p *Postgres) GetPassword(ctx context.Context, name string) (string, error) {
	u, err := p.GetUser(ctx, name)
	if err != nil {
		return "", err
	}
	return u.HashedPassword, nil
}
