package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"releve/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time; readers queue behind it
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const listActivities = `
SELECT a.id, a.date, a.statement, a.amount_cents, MIN(at.tag_pattern_id)
FROM activities a
LEFT JOIN activity_tags at ON at.activity_id = a.id
GROUP BY a.id
ORDER BY a.date DESC, a.id ASC`

// Activities returns the whole ledger, newest first. An activity matched by
// several patterns reports the lowest pattern id.
func (r *SQLiteRepository) Activities(ctx context.Context) ([]core.Activity, error) {
	rows, err := r.db.QueryContext(ctx, listActivities)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	out := make([]core.Activity, 0)
	for rows.Next() {
		var (
			a       core.Activity
			date    string
			pattern sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &date, &a.Statement, &a.Amount.Cents, &pattern); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if a.Date, err = core.ParseISODate(date); err != nil {
			return nil, fmt.Errorf("activity %d: %w", a.ID, err)
		}
		if pattern.Valid {
			id := pattern.Int64
			a.TagPatternID = &id
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) LatestBalance(ctx context.Context) (core.Balance, error) {
	var (
		date  string
		cents int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT date, amount_cents FROM balance ORDER BY date DESC LIMIT 1`).Scan(&date, &cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Balance{}, core.ErrNoBalance
	}
	if err != nil {
		return core.Balance{}, fmt.Errorf("query balance: %w", err)
	}
	d, err := core.ParseISODate(date)
	if err != nil {
		return core.Balance{}, fmt.Errorf("balance date: %w", err)
	}
	return core.Balance{Date: d, Amount: core.Money{Cents: cents}}, nil
}

const listTagPatterns = `
SELECT tp.id, tp.pattern, COALESCE(t.name, '')
FROM tag_patterns tp
LEFT JOIN tag_pattern_tags tpt ON tpt.tag_pattern_id = tp.id
LEFT JOIN tags t ON t.id = tpt.tag_id
ORDER BY tp.id, t.id`

// TagPatterns returns one row per pattern and tag. A pattern without tags
// appears once with an empty tag.
func (r *SQLiteRepository) TagPatterns(ctx context.Context) ([]core.TagPattern, error) {
	rows, err := r.db.QueryContext(ctx, listTagPatterns)
	if err != nil {
		return nil, fmt.Errorf("query tag patterns: %w", err)
	}
	defer rows.Close()

	out := make([]core.TagPattern, 0)
	for rows.Next() {
		var tp core.TagPattern
		if err := rows.Scan(&tp.ID, &tp.Pattern, &tp.Tag); err != nil {
			return nil, fmt.Errorf("scan tag pattern: %w", err)
		}
		out = append(out, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag patterns: %w", err)
	}
	return out, nil
}

// StatsPerMonthByTag sums, per month, the activities linked to a pattern
// that carries every requested tag.
func (r *SQLiteRepository) StatsPerMonthByTag(ctx context.Context, tags []string) ([]core.MonthAmount, error) {
	out := make([]core.MonthAmount, 0)
	if len(tags) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(tags)+1)
	for _, t := range tags {
		args = append(args, t)
	}
	args = append(args, len(tags))

	query := `
SELECT CAST(strftime('%Y', a.date) AS INTEGER) AS y,
       CAST(strftime('%m', a.date) AS INTEGER) AS m,
       SUM(a.amount_cents)
FROM activities a
WHERE a.id IN (
    SELECT at.activity_id FROM activity_tags at
    WHERE at.tag_pattern_id IN (
        SELECT tpt.tag_pattern_id
        FROM tag_pattern_tags tpt
        JOIN tags t ON t.id = tpt.tag_id
        WHERE t.name IN (` + placeholders(len(tags)) + `)
        GROUP BY tpt.tag_pattern_id
        HAVING COUNT(DISTINCT t.id) = ?
    )
)
GROUP BY y, m
ORDER BY y, m`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stats per month: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ma    core.MonthAmount
			cents int64
		)
		if err := rows.Scan(&ma.Year, &ma.Month, &cents); err != nil {
			return nil, fmt.Errorf("scan month amount: %w", err)
		}
		ma.Amount = core.Money{Cents: cents}.Abs()
		out = append(out, ma)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats per month: %w", err)
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// InsertActivities stores the activities, ignoring the ones already present
// with the same date, statement and amount. Returns how many were added.
func (r *SQLiteRepository) InsertActivities(ctx context.Context, activities []core.Activity) (int, error) {
	if len(activities) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO activities (date, statement, amount_cents) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert activity: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, a := range activities {
		res, err := stmt.ExecContext(ctx, a.Date.String(), a.Statement, a.Amount.Cents)
		if err != nil {
			return 0, fmt.Errorf("insert activity %q: %w", a.Statement, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit activities: %w", err)
	}
	slog.DebugContext(ctx, "Activities saved to SQLite", "received", len(activities), "inserted", inserted)
	return inserted, nil
}

// SaveBalance records b and drops every balance older than the newest one.
func (r *SQLiteRepository) SaveBalance(ctx context.Context, b core.Balance) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO balance (date, amount_cents) VALUES (?, ?)
		 ON CONFLICT(date) DO UPDATE SET amount_cents = excluded.amount_cents`,
		b.Date.String(), b.Amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM balance WHERE date < (SELECT MAX(date) FROM balance)`)
	if err != nil {
		return fmt.Errorf("prune balances: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit balance: %w", err)
	}
	return nil
}

// LinkPatterns attaches patterns to activities. Existing links are left
// untouched and not counted.
func (r *SQLiteRepository) LinkPatterns(ctx context.Context, links []core.TagLink) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO activity_tags (activity_id, tag_pattern_id) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare link: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, l := range links {
		res, err := stmt.ExecContext(ctx, l.ActivityID, l.TagPatternID)
		if err != nil {
			return 0, fmt.Errorf("link activity %d to pattern %d: %w", l.ActivityID, l.TagPatternID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit links: %w", err)
	}
	return added, nil
}
