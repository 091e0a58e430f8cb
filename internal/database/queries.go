package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kbbuilder/internal/domain"
)

const (
	defaultRecentBuilds = 10

	// Fixed width so that text ordering matches time ordering.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

func (d *Database) StartBuild(ctx context.Context, buildID string, startedAt time.Time) error {
	buildID = strings.TrimSpace(buildID)
	if buildID == "" {
		return errors.New("build ID is empty")
	}

	query := "insert into builds (id, started_at, status) values (?, ?, ?)"

	_, err := d.db.ExecContext(ctx, query, buildID, formatTime(startedAt), domain.BuildRunning)

	return err
}

func (d *Database) RecordSource(ctx context.Context, buildID string, outcome domain.SourceOutcome) error {
	query := "insert into build_sources (build_id, location, kind, status, detail, recorded_at) " +
		"values (?, ?, ?, ?, ?, ?)"

	_, err := d.db.ExecContext(ctx, query,
		buildID,
		strings.TrimSpace(outcome.Location),
		outcome.Kind,
		outcome.Status,
		outcome.Detail,
		formatTime(time.Now()))

	return err
}

func (d *Database) FinishBuild(ctx context.Context, build domain.Build) error {
	query := "update builds set finished_at = ?, status = ?, summaries = ?, skipped = ?, failed = ?, " +
		"rounds = ?, merges = ?, destination = ?, error = ? where id = ?"

	res, err := d.db.ExecContext(ctx, query,
		formatTime(build.FinishedAt),
		build.Status,
		build.Summaries,
		build.Skipped,
		build.Failed,
		build.Rounds,
		build.Merges,
		build.Destination,
		build.Error,
		build.ID)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: build %s", domain.ErrNotFound, build.ID)
	}

	return nil
}

// RecentBuilds returns up to limit builds, newest first.
func (d *Database) RecentBuilds(ctx context.Context, limit int) ([]domain.Build, error) {
	if limit <= 0 {
		limit = defaultRecentBuilds
	}

	query := "select id, started_at, finished_at, status, summaries, skipped, failed, rounds, merges, " +
		"destination, error from builds order by started_at desc limit ?"

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"operation", "RecentBuilds")
		}
	}()

	var builds []domain.Build
	for rows.Next() {
		var (
			b          domain.Build
			startedAt  string
			finishedAt sql.NullString
		)
		if err = rows.Scan(
			&b.ID,
			&startedAt,
			&finishedAt,
			&b.Status,
			&b.Summaries,
			&b.Skipped,
			&b.Failed,
			&b.Rounds,
			&b.Merges,
			&b.Destination,
			&b.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		b.StartedAt = parseTime(startedAt)
		if finishedAt.Valid {
			b.FinishedAt = parseTime(finishedAt.String)
		}

		builds = append(builds, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return builds, nil
}

// BuildSources returns the source outcomes of one build in recording order.
func (d *Database) BuildSources(ctx context.Context, buildID string) ([]domain.SourceOutcome, error) {
	query := "select location, kind, status, detail from build_sources where build_id = ? order by id"

	rows, err := d.db.QueryContext(ctx, query, buildID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"buildID", buildID,
				"operation", "BuildSources")
		}
	}()

	var outcomes []domain.SourceOutcome
	for rows.Next() {
		var o domain.SourceOutcome
		if err = rows.Scan(&o.Location, &o.Kind, &o.Status, &o.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		outcomes = append(outcomes, o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return outcomes, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
