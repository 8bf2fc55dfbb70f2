// Package postgres stores the ledger in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"releve/internal/core"
)

//go:embed 001_ledger.sql
var migrationSQL string

// Config holds the PostgreSQL store configuration.
type Config struct {
	URL string

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int

	// ConnectAttempts bounds how often the first ping is tried.
	ConnectAttempts uint
	ConnectDelay    time.Duration
}

// Store is a ledger kept in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects, retrying while the server is not reachable yet, and applies
// the schema.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}
	if cfg.ConnectAttempts == 0 {
		cfg.ConnectAttempts = 5
	}
	if cfg.ConnectDelay == 0 {
		cfg.ConnectDelay = time.Second
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	err = retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		},
		retry.Context(ctx),
		retry.Attempts(cfg.ConnectAttempts),
		retry.Delay(cfg.ConnectDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database,
	)

	s := &Store{pool: pool, logger: logger}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	s.logger.Info("migrations completed successfully")
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Activities(ctx context.Context) ([]core.Activity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.date, a.statement, a.amount, MIN(at.tag_pattern_id)
		FROM activities a
		LEFT JOIN activity_tags at ON at.activity_id = a.id
		GROUP BY a.id
		ORDER BY a.date DESC, a.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	defer rows.Close()

	out := make([]core.Activity, 0)
	for rows.Next() {
		var (
			a    core.Activity
			date time.Time
		)
		if err := rows.Scan(&a.ID, &date, &a.Statement, &a.Amount.Cents, &a.TagPatternID); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		a.Date = core.NewDate(date.Year(), int(date.Month()), date.Day())
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activities: %w", err)
	}
	return out, nil
}

func (s *Store) LatestBalance(ctx context.Context) (core.Balance, error) {
	var (
		date  time.Time
		cents int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT date, amount FROM balance ORDER BY date DESC LIMIT 1`).Scan(&date, &cents)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Balance{}, core.ErrNoBalance
	}
	if err != nil {
		return core.Balance{}, fmt.Errorf("querying balance: %w", err)
	}
	return core.Balance{
		Date:   core.NewDate(date.Year(), int(date.Month()), date.Day()),
		Amount: core.Money{Cents: cents},
	}, nil
}

func (s *Store) TagPatterns(ctx context.Context) ([]core.TagPattern, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tp.id, tp.pattern, COALESCE(t.name, '')
		FROM tag_patterns tp
		LEFT JOIN tag_pattern_tags tpt ON tpt.tag_pattern_id = tp.id
		LEFT JOIN tags t ON t.id = tpt.tag_id
		ORDER BY tp.id, t.id`)
	if err != nil {
		return nil, fmt.Errorf("querying tag patterns: %w", err)
	}
	defer rows.Close()

	out := make([]core.TagPattern, 0)
	for rows.Next() {
		var tp core.TagPattern
		if err := rows.Scan(&tp.ID, &tp.Pattern, &tp.Tag); err != nil {
			return nil, fmt.Errorf("scanning tag pattern: %w", err)
		}
		out = append(out, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tag patterns: %w", err)
	}
	return out, nil
}

func (s *Store) StatsPerMonthByTag(ctx context.Context, tags []string) ([]core.MonthAmount, error) {
	out := make([]core.MonthAmount, 0)
	if len(tags) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT EXTRACT(YEAR FROM a.date)::int AS y,
		       EXTRACT(MONTH FROM a.date)::int AS m,
		       SUM(a.amount)::bigint
		FROM activities a
		WHERE a.id IN (
			SELECT at.activity_id FROM activity_tags at
			WHERE at.tag_pattern_id IN (
				SELECT tpt.tag_pattern_id
				FROM tag_pattern_tags tpt
				JOIN tags t ON t.id = tpt.tag_id
				WHERE t.name = ANY($1)
				GROUP BY tpt.tag_pattern_id
				HAVING COUNT(DISTINCT t.id) = $2
			)
		)
		GROUP BY y, m
		ORDER BY y, m`, tags, int64(len(tags)))
	if err != nil {
		return nil, fmt.Errorf("querying stats per month: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ma    core.MonthAmount
			cents int64
		)
		if err := rows.Scan(&ma.Year, &ma.Month, &cents); err != nil {
			return nil, fmt.Errorf("scanning month amount: %w", err)
		}
		ma.Amount = core.Money{Cents: cents}.Abs()
		out = append(out, ma)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stats per month: %w", err)
	}
	return out, nil
}

// InsertActivities writes the activities in one batch. Rows already present
// are skipped and not counted.
func (s *Store) InsertActivities(ctx context.Context, activities []core.Activity) (int, error) {
	if len(activities) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, a := range activities {
		batch.Queue(`
			INSERT INTO activities (date, statement, amount)
			VALUES ($1, $2, $3)
			ON CONFLICT (date, statement, amount) DO NOTHING`,
			a.Date.Time, a.Statement, a.Amount.Cents)
	}

	inserted, err := execBatch(ctx, tx, batch, len(activities))
	if err != nil {
		return 0, fmt.Errorf("inserting activities: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("wrote activity batch", "count", len(activities), "inserted", inserted)
	return inserted, nil
}

func (s *Store) SaveBalance(ctx context.Context, b core.Balance) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO balance (date, amount) VALUES ($1, $2)
		ON CONFLICT (date) DO UPDATE SET amount = EXCLUDED.amount`,
		b.Date.Time, b.Amount.Cents); err != nil {
		return fmt.Errorf("upserting balance: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM balance WHERE date < (SELECT MAX(date) FROM balance)`); err != nil {
		return fmt.Errorf("pruning balances: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Store) LinkPatterns(ctx context.Context, links []core.TagLink) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, l := range links {
		batch.Queue(`
			INSERT INTO activity_tags (activity_id, tag_pattern_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			l.ActivityID, l.TagPatternID)
	}

	added, err := execBatch(ctx, tx, batch, len(links))
	if err != nil {
		return 0, fmt.Errorf("linking patterns: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return added, nil
}

func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, n int) (int, error) {
	results := tx.SendBatch(ctx, batch)
	affected := 0
	for i := 0; i < n; i++ {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("statement %d: %w", i, err)
		}
		affected += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, err
	}
	return affected, nil
}
