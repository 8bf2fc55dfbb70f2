// Package google reads bank statements pasted into a Google spreadsheet.
//
// Each configured range holds one statement laid out like the CSV export:
// the statement date and balance on two-column rows, then one activity per
// row (date, label, amount).
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"releve/internal/statement"
)

var _ statement.Source = (*Client)(nil)

// Config selects the spreadsheet and how to authenticate against it.
type Config struct {
	SpreadsheetID string
	// Ranges in A1 notation, one statement each (e.g. "Avril!A1:C").
	Ranges []string

	ServiceAccountFile string
	ServiceAccountJSON string

	RetryAttempts uint
	RetryDelay    time.Duration
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ranges        []string
	attempts      uint
	delay         time.Duration
}

// New creates a read-only Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg)
}

// NewWithService wraps an existing service, e.g. one pointed at a test server.
func NewWithService(svc *gsheet.Service, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	var ranges []string
	for _, r := range cfg.Ranges {
		if r = strings.TrimSpace(r); r != "" {
			ranges = append(ranges, r)
		}
	}
	if len(ranges) == 0 {
		return nil, errors.New("missing sheet range")
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 60 * time.Second
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		ranges:        ranges,
		attempts:      cfg.RetryAttempts,
		delay:         cfg.RetryDelay,
	}, nil
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON)")
}

// Statements reads every range in one call. Rate limited calls are retried.
func (c *Client) Statements(ctx context.Context) ([]statement.Statement, error) {
	var resp *gsheet.BatchGetValuesResponse
	err := retry.Do(
		func() error {
			var err error
			resp, err = c.svc.Spreadsheets.Values.BatchGet(c.spreadsheetID).
				Ranges(c.ranges...).
				Context(ctx).
				Do()
			return err
		},
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
				slog.WarnContext(ctx, "Sheets rate limited, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("read sheet ranges: %w", err)
	}

	out := make([]statement.Statement, 0, len(resp.ValueRanges))
	for i, vr := range resp.ValueRanges {
		name := c.ranges[i]
		if vr.Range != "" {
			name = vr.Range
		}
		records := make([][]string, 0, len(vr.Values))
		for _, row := range vr.Values {
			records = append(records, toStrings(row))
		}
		st, err := statement.ParseRecords(name, records)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}

	slog.InfoContext(ctx, "Read statements from Google Sheets",
		"spreadsheet_id", c.spreadsheetID,
		"ranges", len(c.ranges),
		"statements", len(out))
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
