package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"releve/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "releve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func activity(y, m, d int, statement string, cents int64) core.Activity {
	return core.Activity{Date: core.NewDate(y, m, d), Statement: statement, Amount: core.Money{Cents: cents}}
}

func TestSQLiteRepository_SeededPatterns(t *testing.T) {
	repo := newTestRepo(t)

	rows, err := repo.TagPatterns(context.Background())
	require.NoError(t, err)

	grouped := core.GroupPatternTags(rows)
	require.Len(t, grouped, 5)
	assert.Equal(t, "EDF", grouped[0].Pattern)
	assert.Equal(t, core.PatternTags{Pattern: "LOYER", Tags: []string{"LOYER", "PARIS"}}, grouped[3])
	assert.Equal(t, []string{"FREEMOBILE", "PARIS"}, grouped[4].Tags)

	dict := core.Dictionary(rows)
	assert.Equal(t, []string{"VIREMENT_BANCAIRE"}, dict.Tags(2))
}

func TestSQLiteRepository_MigrationsAreRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "releve.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	version, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(schemaVersion), version)
}

func TestSQLiteRepository_InsertActivities(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	batch := []core.Activity{
		activity(2021, 3, 12, "PRLV EDF", -4210),
		activity(2021, 2, 2, "VIR LOYER", -80000),
		activity(2021, 3, 1, "CB SHOP", -1500),
	}
	n, err := repo.InsertActivities(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = repo.InsertActivities(ctx, batch[:2])
	require.NoError(t, err)
	assert.Zero(t, n, "duplicates are ignored")

	n, err = repo.InsertActivities(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	acts, err := repo.Activities(ctx)
	require.NoError(t, err)
	require.Len(t, acts, 3)
	assert.Equal(t, "PRLV EDF", acts[0].Statement, "newest first")
	assert.Equal(t, "CB SHOP", acts[1].Statement)
	assert.Equal(t, "VIR LOYER", acts[2].Statement)
	assert.True(t, acts[2].Date.SameDay(core.NewDate(2021, 2, 2)))
	assert.Nil(t, acts[0].TagPatternID)
}

func TestSQLiteRepository_LinkPatterns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.InsertActivities(ctx, []core.Activity{activity(2021, 3, 12, "FREE MOBILE LOYER", -1999)})
	require.NoError(t, err)
	acts, err := repo.Activities(ctx)
	require.NoError(t, err)
	id := acts[0].ID

	added, err := repo.LinkPatterns(ctx, []core.TagLink{
		{ActivityID: id, TagPatternID: 5},
		{ActivityID: id, TagPatternID: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = repo.LinkPatterns(ctx, []core.TagLink{{ActivityID: id, TagPatternID: 4}})
	require.NoError(t, err)
	assert.Zero(t, added)

	acts, err = repo.Activities(ctx)
	require.NoError(t, err)
	require.Len(t, acts, 1, "several links still give one activity")
	require.NotNil(t, acts[0].TagPatternID)
	assert.Equal(t, int64(4), *acts[0].TagPatternID, "lowest pattern id wins")
}

func TestSQLiteRepository_Balance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.LatestBalance(ctx)
	assert.ErrorIs(t, err, core.ErrNoBalance)

	require.NoError(t, repo.SaveBalance(ctx, core.Balance{Date: core.NewDate(2021, 4, 1), Amount: core.Money{Cents: 18777}}))
	require.NoError(t, repo.SaveBalance(ctx, core.Balance{Date: core.NewDate(2021, 3, 1), Amount: core.Money{Cents: 100}}))

	b, err := repo.LatestBalance(ctx)
	require.NoError(t, err)
	assert.True(t, b.Date.SameDay(core.NewDate(2021, 4, 1)))
	assert.Equal(t, int64(18777), b.Amount.Cents)

	var count int
	require.NoError(t, repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM balance`).Scan(&count))
	assert.Equal(t, 1, count, "only the latest balance is kept")
}

func TestSQLiteRepository_StatsPerMonthByTag(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.InsertActivities(ctx, []core.Activity{
		activity(2021, 3, 12, "VIR LOYER MARS", -80000),
		activity(2021, 3, 20, "FREE MOBILE", -1999),
		activity(2021, 2, 5, "VIR LOYER FEV", -80000),
		activity(2021, 2, 6, "EDF", -4210),
	})
	require.NoError(t, err)
	acts, err := repo.Activities(ctx)
	require.NoError(t, err)

	var links []core.TagLink
	for _, a := range acts {
		switch a.Statement {
		case "VIR LOYER MARS", "VIR LOYER FEV":
			links = append(links, core.TagLink{ActivityID: a.ID, TagPatternID: 4})
		case "FREE MOBILE":
			links = append(links, core.TagLink{ActivityID: a.ID, TagPatternID: 5})
		case "EDF":
			links = append(links, core.TagLink{ActivityID: a.ID, TagPatternID: 1})
		}
	}
	_, err = repo.LinkPatterns(ctx, links)
	require.NoError(t, err)

	paris, err := repo.StatsPerMonthByTag(ctx, []string{"PARIS"})
	require.NoError(t, err)
	assert.Equal(t, []core.MonthAmount{
		{Year: 2021, Month: 2, Amount: core.Money{Cents: 80000}},
		{Year: 2021, Month: 3, Amount: core.Money{Cents: 81999}},
	}, paris)

	both, err := repo.StatsPerMonthByTag(ctx, []string{"PARIS", "LOYER"})
	require.NoError(t, err)
	assert.Equal(t, []core.MonthAmount{
		{Year: 2021, Month: 2, Amount: core.Money{Cents: 80000}},
		{Year: 2021, Month: 3, Amount: core.Money{Cents: 80000}},
	}, both, "patterns must carry every requested tag")

	none, err := repo.StatsPerMonthByTag(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	unknown, err := repo.StatsPerMonthByTag(ctx, []string{"NOPE"})
	require.NoError(t, err)
	assert.Empty(t, unknown)
}
