package backend

import (
	"context"

	"releve/internal/amqp"
	"releve/internal/core"
	"releve/internal/services"
)

// Store is the persistence contract every backend implements.
type Store interface {
	Activities(ctx context.Context) ([]core.Activity, error)
	LatestBalance(ctx context.Context) (core.Balance, error)
	TagPatterns(ctx context.Context) ([]core.TagPattern, error)
	StatsPerMonthByTag(ctx context.Context, tags []string) ([]core.MonthAmount, error)

	InsertActivities(ctx context.Context, activities []core.Activity) (int, error)
	SaveBalance(ctx context.Context, b core.Balance) error
	LinkPatterns(ctx context.Context, links []core.TagLink) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

// Ledger adds the read models the ledger page and the API serve on top of a
// Store.
type Ledger struct {
	Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{Store: store}
}

// MonthGroups returns the activities grouped by calendar month, newest first.
func (l *Ledger) MonthGroups(ctx context.Context) ([]core.MonthGroup, error) {
	activities, err := l.Activities(ctx)
	if err != nil {
		return nil, err
	}
	return core.GroupByMonth(activities), nil
}

// TagDictionary maps each pattern id to its tag names.
func (l *Ledger) TagDictionary(ctx context.Context) (core.TagDictionary, error) {
	rows, err := l.TagPatterns(ctx)
	if err != nil {
		return nil, err
	}
	return core.Dictionary(rows), nil
}

// PatternTags lists every pattern with its tags.
func (l *Ledger) PatternTags(ctx context.Context) ([]core.PatternTags, error) {
	rows, err := l.TagPatterns(ctx)
	if err != nil {
		return nil, err
	}
	return core.GroupPatternTags(rows), nil
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function.
// AMQP is nil when no broker is configured or it could not be reached.
type BackendResult struct {
	Ledger  *Ledger
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Publisher returns the event publisher, or nil so that importers tag inline.
func (r *BackendResult) Publisher() services.Publisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresURL  string

	// Memory backend seed directory
	DataDirectory string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
