package database_test

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"kbbuilder/internal/database"
	"kbbuilder/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openJournal(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.New(t.Context(), filepath.Join(t.TempDir(), "journal.db"),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	return db
}

func TestJournalRecordsBuild(t *testing.T) {
	db := openJournal(t)
	ctx := t.Context()

	started := time.Date(2026, 10, 1, 3, 0, 0, 0, time.UTC)
	require.NoError(t, db.StartBuild(ctx, "b1", started))

	require.NoError(t, db.RecordSource(ctx, "b1", domain.SourceOutcome{
		Location: "a.md",
		Kind:     domain.KindDocument,
		Status:   domain.SourceSummarized,
	}))
	require.NoError(t, db.RecordSource(ctx, "b1", domain.SourceOutcome{
		Location: "missing.pdf",
		Status:   domain.SourceFailed,
		Detail:   "source not found",
	}))

	require.NoError(t, db.FinishBuild(ctx, domain.Build{
		ID:          "b1",
		FinishedAt:  started.Add(time.Minute),
		Status:      domain.BuildSucceeded,
		Summaries:   1,
		Failed:      1,
		Destination: "kb.md",
	}))

	builds, err := db.RecentBuilds(ctx, 5)
	require.NoError(t, err)
	require.Len(t, builds, 1)

	b := builds[0]
	assert.Equal(t, "b1", b.ID)
	assert.True(t, started.Equal(b.StartedAt))
	assert.True(t, started.Add(time.Minute).Equal(b.FinishedAt))
	assert.Equal(t, domain.BuildSucceeded, b.Status)
	assert.Equal(t, 1, b.Summaries)
	assert.Equal(t, 1, b.Failed)
	assert.Equal(t, "kb.md", b.Destination)

	outcomes, err := db.BuildSources(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []domain.SourceOutcome{
		{Location: "a.md", Kind: domain.KindDocument, Status: domain.SourceSummarized},
		{Location: "missing.pdf", Status: domain.SourceFailed, Detail: "source not found"},
	}, outcomes)
}

func TestRecentBuildsNewestFirst(t *testing.T) {
	db := openJournal(t)
	ctx := t.Context()

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "newer", "newest"} {
		require.NoError(t, db.StartBuild(ctx, id, base.Add(time.Duration(i)*time.Hour+time.Duration(i)*time.Millisecond)))
	}

	builds, err := db.RecentBuilds(ctx, 2)
	require.NoError(t, err)
	require.Len(t, builds, 2)

	assert.Equal(t, "newest", builds[0].ID)
	assert.Equal(t, "newer", builds[1].ID)
	assert.Equal(t, domain.BuildRunning, builds[0].Status)
	assert.True(t, builds[0].FinishedAt.IsZero())
}

func TestFinishUnknownBuild(t *testing.T) {
	db := openJournal(t)

	err := db.FinishBuild(t.Context(), domain.Build{ID: "nope", Status: domain.BuildFailed})

	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReopenKeepsJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.New(t.Context(), path, log)
	require.NoError(t, err)
	require.NoError(t, db.StartBuild(t.Context(), "b1", time.Now()))
	require.NoError(t, db.Close())

	db, err = database.New(t.Context(), path, log)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()

	builds, err := db.RecentBuilds(t.Context(), 0)
	require.NoError(t, err)
	assert.Len(t, builds, 1)
}
