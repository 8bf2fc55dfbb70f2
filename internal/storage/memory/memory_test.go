package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"releve/internal/core"
)

func act(y, m, d int, statement string, cents int64) core.Activity {
	return core.Activity{Date: core.NewDate(y, m, d), Statement: statement, Amount: core.Money{Cents: cents}}
}

func TestMemoryStoreInsertAndList(t *testing.T) {
	s := New(DefaultPatterns)
	ctx := context.Background()

	n, err := s.InsertActivities(ctx, []core.Activity{
		act(2021, 2, 2, "VIR LOYER", -80000),
		act(2021, 3, 12, "PRLV EDF", -4210),
		act(2021, 3, 12, "PRLV EDF", -4210),
	})
	if err != nil || n != 2 {
		t.Fatalf("unexpected insert: n=%d err=%v", n, err)
	}

	if _, err := s.InsertActivities(ctx, []core.Activity{act(2021, 3, 1, " ", 1)}); !errors.Is(err, core.ErrEmptyStatement) {
		t.Fatalf("expected ErrEmptyStatement, got %v", err)
	}

	acts, _ := s.Activities(ctx)
	if len(acts) != 2 || acts[0].Statement != "PRLV EDF" || acts[0].ID != 2 {
		t.Fatalf("expected newest first, got %+v", acts)
	}
	if acts[0].TagPatternID != nil {
		t.Fatalf("fresh activities are untagged")
	}
}

func TestMemoryStoreLinks(t *testing.T) {
	s := New(DefaultPatterns)
	ctx := context.Background()
	s.InsertActivities(ctx, []core.Activity{act(2021, 3, 12, "FREE MOBILE LOYER", -1999)})

	added, _ := s.LinkPatterns(ctx, []core.TagLink{{ActivityID: 1, TagPatternID: 5}, {ActivityID: 1, TagPatternID: 4}})
	if added != 2 {
		t.Fatalf("expected 2 links, got %d", added)
	}
	added, _ = s.LinkPatterns(ctx, []core.TagLink{{ActivityID: 1, TagPatternID: 4}})
	if added != 0 {
		t.Fatalf("relinking should add nothing, got %d", added)
	}

	acts, _ := s.Activities(ctx)
	if acts[0].TagPatternID == nil || *acts[0].TagPatternID != 4 {
		t.Fatalf("expected lowest pattern id 4, got %v", acts[0].TagPatternID)
	}
}

func TestMemoryStoreBalance(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	if _, err := s.LatestBalance(ctx); !errors.Is(err, core.ErrNoBalance) {
		t.Fatalf("expected ErrNoBalance, got %v", err)
	}

	s.SaveBalance(ctx, core.Balance{Date: core.NewDate(2021, 4, 1), Amount: core.Money{Cents: 18777}})
	s.SaveBalance(ctx, core.Balance{Date: core.NewDate(2021, 3, 1), Amount: core.Money{Cents: 1}})

	b, _ := s.LatestBalance(ctx)
	if b.Amount.Cents != 18777 {
		t.Fatalf("older balance replaced the latest one: %+v", b)
	}
}

func TestMemoryStoreStatsPerMonthByTag(t *testing.T) {
	s := New(DefaultPatterns)
	ctx := context.Background()
	s.InsertActivities(ctx, []core.Activity{
		act(2021, 3, 12, "VIR LOYER MARS", -80000),
		act(2021, 3, 20, "FREE MOBILE", -1999),
		act(2021, 2, 5, "VIR LOYER FEV", -80000),
	})
	s.LinkPatterns(ctx, []core.TagLink{
		{ActivityID: 1, TagPatternID: 4},
		{ActivityID: 2, TagPatternID: 5},
		{ActivityID: 3, TagPatternID: 4},
	})

	paris, _ := s.StatsPerMonthByTag(ctx, []string{"PARIS"})
	if len(paris) != 2 || paris[0].Month != 2 || paris[1].Amount.Cents != 81999 {
		t.Fatalf("unexpected PARIS stats: %+v", paris)
	}

	mobile, _ := s.StatsPerMonthByTag(ctx, []string{"PARIS", "FREEMOBILE"})
	if len(mobile) != 1 || mobile[0].Amount.Cents != 1999 {
		t.Fatalf("unexpected FREEMOBILE stats: %+v", mobile)
	}

	none, _ := s.StatsPerMonthByTag(ctx, nil)
	if none == nil || len(none) != 0 {
		t.Fatalf("expected an empty, non nil result, got %v", none)
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()

	s := NewFromFiles(dir)
	rows, _ := s.TagPatterns(context.Background())
	if got := core.GroupPatternTags(rows); len(got) != len(DefaultPatterns) {
		t.Fatalf("expected defaults when the seed file is missing, got %v", got)
	}

	content := "# pattern: tags\nNETFLIX: LOISIRS, ABONNEMENT\n\nSNCF:\n: ORPHAN\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_patterns.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	s = NewFromFiles(dir)
	rows, _ = s.TagPatterns(context.Background())
	got := core.GroupPatternTags(rows)
	if len(got) != 2 {
		t.Fatalf("unexpected patterns: %+v", got)
	}
	if got[0].Pattern != "NETFLIX" || len(got[0].Tags) != 2 || got[0].Tags[1] != "ABONNEMENT" {
		t.Fatalf("unexpected NETFLIX entry: %+v", got[0])
	}
	if got[1].Pattern != "SNCF" || len(got[1].Tags) != 0 {
		t.Fatalf("unexpected SNCF entry: %+v", got[1])
	}
}
