package view

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"releve/internal/core"
)

type (
	ActivitySource interface {
		MonthGroups(ctx context.Context) ([]core.MonthGroup, error)
	}

	BalanceSource interface {
		LatestBalance(ctx context.Context) (core.Balance, error)
	}

	TagSource interface {
		TagDictionary(ctx context.Context) (core.TagDictionary, error)
	}
)

// Loader fetches the three independent sources concurrently and hands each
// result to a session as soon as it arrives.
type Loader struct {
	activities ActivitySource
	balance    BalanceSource
	tags       TagSource
	timeout    time.Duration
}

func NewLoader(a ActivitySource, b BalanceSource, t TagSource, timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = 7 * time.Second
	}
	return &Loader{activities: a, balance: b, tags: t, timeout: timeout}
}

// Load fills the session. A failing source does not cancel the others; the
// first error is returned once every fetch has completed.
func (l *Loader) Load(ctx context.Context, s *Session) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		groups, err := l.activities.MonthGroups(ctx)
		if err != nil {
			s.LoadFailed(CollaboratorActivities, err)
			return fmt.Errorf("load activities: %w", err)
		}
		s.ActivitiesLoaded(groups)
		return nil
	})
	g.Go(func() error {
		b, err := l.balance.LatestBalance(ctx)
		if err != nil {
			s.LoadFailed(CollaboratorBalance, err)
			return fmt.Errorf("load balance: %w", err)
		}
		s.BalanceLoaded(b)
		return nil
	})
	g.Go(func() error {
		d, err := l.tags.TagDictionary(ctx)
		if err != nil {
			s.LoadFailed(CollaboratorTags, err)
			return fmt.Errorf("load tags: %w", err)
		}
		s.TagsLoaded(d)
		return nil
	})

	err := g.Wait()
	if err != nil {
		slog.WarnContext(ctx, "Ledger load incomplete", "error", err)
	}
	return err
}
