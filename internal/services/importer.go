package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"releve/internal/amqp"
	"releve/internal/core"
	"releve/internal/statement"
)

var ErrNoStatements = errors.New("no statement to import")

// LedgerWriter stores imported activities and balances.
type LedgerWriter interface {
	InsertActivities(ctx context.Context, activities []core.Activity) (int, error)
	SaveBalance(ctx context.Context, b core.Balance) error
}

// Publisher announces finished imports to the tagging worker.
type Publisher interface {
	PublishStatementImported(ctx context.Context, msg *amqp.StatementImportedMessage) error
}

// ImportResult summarises one import run.
type ImportResult struct {
	Statements int
	Activities int
	Inserted   int
	Balance    core.Balance
	Tagged     int
	Published  bool
}

// Importer loads statements into the ledger. Tagging is handed to the worker
// when a publisher is configured and done inline otherwise.
type Importer struct {
	ledger    LedgerWriter
	tagger    *Tagger
	publisher Publisher
}

func NewImporter(ledger LedgerWriter, tagger *Tagger, publisher Publisher) *Importer {
	return &Importer{
		ledger:    ledger,
		tagger:    tagger,
		publisher: publisher,
	}
}

// Import reads every statement of src, inserts their activities and keeps
// the most recent balance.
func (i *Importer) Import(ctx context.Context, src statement.Source) (ImportResult, error) {
	var res ImportResult

	statements, err := src.Statements(ctx)
	if err != nil {
		return res, fmt.Errorf("read statements: %w", err)
	}
	latest, ok := statement.Latest(statements)
	if !ok {
		return res, ErrNoStatements
	}
	res.Statements = len(statements)
	res.Balance = latest

	for _, st := range statements {
		n, err := i.ledger.InsertActivities(ctx, st.Activities)
		if err != nil {
			return res, fmt.Errorf("insert activities of %s: %w", st.Name, err)
		}
		res.Activities += len(st.Activities)
		res.Inserted += n
		slog.DebugContext(ctx, "Statement imported",
			"statement", st.Name,
			"activities", len(st.Activities),
			"inserted", n)
	}

	if err := i.ledger.SaveBalance(ctx, latest); err != nil {
		return res, fmt.Errorf("save balance: %w", err)
	}

	if err := i.afterImport(ctx, &res); err != nil {
		return res, err
	}

	slog.InfoContext(ctx, "Import completed",
		"statements", res.Statements,
		"activities", res.Activities,
		"inserted", res.Inserted,
		"balance_date", res.Balance.Date.String(),
		"published", res.Published)
	return res, nil
}

func (i *Importer) afterImport(ctx context.Context, res *ImportResult) error {
	if i.publisher != nil {
		msg := amqp.NewStatementImportedMessage(res.Statements, res.Inserted, res.Balance.Date)
		err := i.publisher.PublishStatementImported(ctx, msg)
		if err == nil {
			res.Published = true
			return nil
		}
		slog.WarnContext(ctx, "Failed to publish import event, tagging inline", "error", err)
	}

	if i.tagger == nil {
		slog.WarnContext(ctx, "No tagger configured, imported activities stay untagged")
		return nil
	}
	n, err := i.tagger.Tag(ctx)
	if err != nil {
		return fmt.Errorf("tag activities: %w", err)
	}
	res.Tagged = n
	return nil
}
