// Package statement reads bank statement exports into activities and a closing balance.
//
// A statement is a ';' separated file whose rows do not share a shape:
// two-column rows carry the statement date and balance, wider rows are
// activities (date, label, amount) and header rows are skipped.
package statement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"releve/internal/core"
)

const (
	balanceDateHeader   = "Date"
	balanceAmountHeader = "Solde (EUROS)"
	amountHeaderMarker  = "Montant"
)

var (
	ErrMissingBalance     = errors.New("missing balance")
	ErrMissingBalanceDate = errors.New("missing statement date")
)

// Statement is one parsed export.
type Statement struct {
	Name       string
	Balance    core.Balance
	Activities []core.Activity
}

// Source yields statements from wherever they are kept.
type Source interface {
	Statements(ctx context.Context) ([]Statement, error)
}

// ParseRecords turns already split rows into a statement. Rows are taken as
// is: no header row is skipped implicitly.
func ParseRecords(name string, records [][]string) (Statement, error) {
	st := Statement{Name: name}
	stats := make(map[string]string, 2)
	seen := make(map[string]struct{})

	for i, rec := range records {
		switch {
		case len(rec) == 2:
			header, value := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
			if header == balanceDateHeader || header == balanceAmountHeader {
				stats[header] = value
			}
		case len(rec) > 2:
			if isHeader(rec) {
				continue
			}
			a, err := parseActivity(rec)
			if err != nil {
				return Statement{}, fmt.Errorf("%s row %d: %w", name, i+1, err)
			}
			if _, dup := seen[a.Key()]; dup {
				continue
			}
			seen[a.Key()] = struct{}{}
			st.Activities = append(st.Activities, a)
		}
	}

	b, err := balanceFrom(stats)
	if err != nil {
		return Statement{}, fmt.Errorf("%s: %w", name, err)
	}
	st.Balance = b
	return st, nil
}

func isHeader(rec []string) bool {
	return rec[0] == balanceDateHeader ||
		strings.Contains(rec[1], amountHeaderMarker) ||
		strings.Contains(rec[2], amountHeaderMarker)
}

func parseActivity(rec []string) (core.Activity, error) {
	d, err := core.ParseDisplayDate(rec[0])
	if err != nil {
		return core.Activity{}, err
	}
	m, err := core.ParseMoney(rec[2])
	if err != nil {
		return core.Activity{}, fmt.Errorf("amount %q: %w", rec[2], err)
	}
	return core.Activity{
		Date:      d,
		Statement: strings.TrimSpace(rec[1]),
		Amount:    m,
	}, nil
}

func balanceFrom(stats map[string]string) (core.Balance, error) {
	date, hasDate := stats[balanceDateHeader]
	amount, hasAmount := stats[balanceAmountHeader]

	var errs []error
	if !hasDate {
		errs = append(errs, ErrMissingBalanceDate)
	}
	if !hasAmount {
		errs = append(errs, ErrMissingBalance)
	}
	if len(errs) > 0 {
		return core.Balance{}, errors.Join(errs...)
	}

	d, err := core.ParseDisplayDate(date)
	if err != nil {
		return core.Balance{}, fmt.Errorf("balance date: %w", err)
	}
	m, err := core.ParseMoney(amount)
	if err != nil {
		return core.Balance{}, fmt.Errorf("balance amount %q: %w", amount, err)
	}
	return core.Balance{Date: d, Amount: m}, nil
}

// Latest returns the balance with the most recent date across statements.
func Latest(statements []Statement) (core.Balance, bool) {
	var (
		latest core.Balance
		found  bool
	)
	for _, s := range statements {
		if !found || s.Balance.Date.After(latest.Date.Time) {
			latest = s.Balance
			found = true
		}
	}
	return latest, found
}
