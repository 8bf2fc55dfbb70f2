package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"releve/internal/amqp"
)

// Tagger runs one tagging pass and reports how many links it added.
type Tagger interface {
	Tag(ctx context.Context) (int, error)
}

// TaggingWorker tags the ledger whenever an import is announced on the broker
type TaggingWorker struct {
	tagger  Tagger
	handled atomic.Int64
	links   atomic.Int64
}

func NewTaggingWorker(tagger Tagger) *TaggingWorker {
	return &TaggingWorker{tagger: tagger}
}

// HandleStatementImported processes a single statement-imported message from AMQP
func (w *TaggingWorker) HandleStatementImported(ctx context.Context, msg *amqp.StatementImportedMessage) error {
	slog.InfoContext(ctx, "Processing statement imported message",
		"statements", msg.Statements,
		"inserted", msg.Inserted,
		"balance_date", msg.BalanceDate)

	if msg.Inserted == 0 {
		slog.InfoContext(ctx, "Import added no activity, skipping tagging")
		w.handled.Add(1)
		return nil
	}

	n, err := w.tagger.Tag(ctx)
	if err != nil {
		return fmt.Errorf("tag imported activities: %w", err)
	}
	w.handled.Add(1)
	w.links.Add(int64(n))

	slog.InfoContext(ctx, "Successfully tagged imported activities", "links", n)
	return nil
}

// StartupTagCheck tags whatever was imported while the worker was down.
func (w *TaggingWorker) StartupTagCheck(ctx context.Context) error {
	n, err := w.tagger.Tag(ctx)
	if err != nil {
		return fmt.Errorf("startup tagging: %w", err)
	}
	w.links.Add(int64(n))

	if n == 0 {
		slog.InfoContext(ctx, "No untagged activities found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup tagging completed", "links", n)
	return nil
}

// Handled is the number of messages processed successfully.
func (w *TaggingWorker) Handled() int64 { return w.handled.Load() }

// Links is the number of activity/pattern links this worker added.
func (w *TaggingWorker) Links() int64 { return w.links.Load() }
