// Package pipeline runs a build: it walks every source pass in order,
// summarizes each extracted document, reduces the summaries to one knowledge
// base and hands it to the sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kbbuilder/internal/domain"
	"kbbuilder/internal/reducer"
	"kbbuilder/internal/sources"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoSummaries means no source produced a summary, so nothing was written.
var ErrNoSummaries = errors.New("no summaries were produced")

type Extractor interface {
	Extract(ctx context.Context, src domain.Source) (domain.Document, error)
}

type Discoverer interface {
	SitemapURLs(ctx context.Context, sitemapURL string) ([]string, error)
	FeedLinks(ctx context.Context, feedURL string) ([]string, error)
	RepositoryMarkdown(ctx context.Context, user string) ([]string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, doc domain.Document) (string, error)
}

type Reducer interface {
	Reduce(ctx context.Context, items []string) (reducer.Result, error)
}

// Sink receives the final document together with its destination.
type Sink interface {
	Write(ctx context.Context, destination string, content string) error
}

// Journal records builds. Journal failures are logged and never fail a build.
type Journal interface {
	StartBuild(ctx context.Context, buildID string, startedAt time.Time) error
	RecordSource(ctx context.Context, buildID string, outcome domain.SourceOutcome) error
	FinishBuild(ctx context.Context, build domain.Build) error
}

type Options struct {
	// SummaryParallelism bounds concurrent summaries within one pass. One
	// summarizes strictly in sequence.
	SummaryParallelism int
	Journal            Journal
}

// Report describes a finished build.
type Report struct {
	BuildID     string
	Sources     int
	Summaries   int
	Skipped     int
	Failed      int
	Rounds      int
	Merges      int
	Destination string
}

type Orchestrator struct {
	extractor   Extractor
	discoverer  Discoverer
	summarizer  Summarizer
	reducer     Reducer
	sink        Sink
	journal     Journal
	parallelism int
	log         *slog.Logger
}

func New(
	extractor Extractor,
	discoverer Discoverer,
	summarizer Summarizer,
	reducer Reducer,
	sink Sink,
	opts Options,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		extractor:   extractor,
		discoverer:  discoverer,
		summarizer:  summarizer,
		reducer:     reducer,
		sink:        sink,
		journal:     opts.Journal,
		parallelism: max(opts.SummaryParallelism, 1),
		log:         log,
	}
}

// Run builds one knowledge base from src and writes it to destination.
// Per-source failures are logged and skipped. A build without summaries
// returns ErrNoSummaries; a failed reduction returns its error. In both cases
// nothing is written.
func (o *Orchestrator) Run(ctx context.Context, src sources.Sources, destination string) (Report, error) {
	build := domain.Build{
		ID:          uuid.NewString(),
		StartedAt:   time.Now().UTC(),
		Status:      domain.BuildRunning,
		Destination: destination,
	}
	o.startBuild(ctx, build)

	report, err := o.run(ctx, build.ID, src, destination)

	build.FinishedAt = time.Now().UTC()
	build.Summaries = report.Summaries
	build.Skipped = report.Skipped
	build.Failed = report.Failed
	build.Rounds = report.Rounds
	build.Merges = report.Merges

	switch {
	case err == nil:
		build.Status = domain.BuildSucceeded
	case errors.Is(err, ErrNoSummaries):
		build.Status = domain.BuildNoOutput
		build.Destination = ""
		build.Error = err.Error()
	default:
		build.Status = domain.BuildFailed
		build.Destination = ""
		build.Error = err.Error()
	}
	o.finishBuild(ctx, build)

	return report, err
}

func (o *Orchestrator) run(
	ctx context.Context,
	buildID string,
	src sources.Sources,
	destination string,
) (Report, error) {
	report := Report{BuildID: buildID}

	o.log.InfoContext(ctx, "Build started",
		"buildID", buildID,
		"destination", destination,
		"summaryParallelism", o.parallelism)

	var summaries []string

	for _, p := range o.passes(src) {
		batch, err := p.collect(ctx)
		if err != nil {
			o.log.ErrorContext(ctx, "Failed to discover sources",
				"error", err,
				"buildID", buildID,
				"pass", p.name)
			continue
		}
		if len(batch) == 0 {
			continue
		}

		o.log.InfoContext(ctx, "Processing pass",
			"buildID", buildID,
			"pass", p.name,
			"sources", len(batch))

		outcomes := o.summarizeAll(ctx, buildID, batch)
		for _, out := range outcomes {
			// Sources left behind by a cancelled build carry no status.
			if out.status == "" {
				continue
			}
			report.Sources++

			switch out.status {
			case domain.SourceSummarized:
				report.Summaries++
				summaries = append(summaries, out.summary)
			case domain.SourceSkipped:
				report.Skipped++
			case domain.SourceFailed:
				report.Failed++
			}
		}

		if err = ctx.Err(); err != nil {
			return report, fmt.Errorf("build interrupted: %w", err)
		}
	}

	if len(summaries) == 0 {
		o.log.WarnContext(ctx, "No summaries collected, nothing is written",
			"buildID", buildID,
			"sources", report.Sources,
			"skipped", report.Skipped,
			"failed", report.Failed)

		return report, ErrNoSummaries
	}

	result, err := o.reducer.Reduce(ctx, summaries)
	report.Rounds = result.Rounds
	report.Merges = result.Merges
	if err != nil {
		return report, fmt.Errorf("reduce summaries: %w", err)
	}

	if err = o.sink.Write(ctx, destination, result.Document); err != nil {
		return report, fmt.Errorf("write knowledge base: %w", err)
	}
	report.Destination = destination

	o.log.InfoContext(ctx, "Build finished",
		"buildID", buildID,
		"sources", report.Sources,
		"summaries", report.Summaries,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"rounds", report.Rounds,
		"merges", report.Merges,
		"destination", destination)

	return report, nil
}

type outcome struct {
	status  domain.SourceStatus
	summary string
}

// summarizeAll processes batch and returns outcomes aligned to batch order,
// however many summaries run at once.
func (o *Orchestrator) summarizeAll(ctx context.Context, buildID string, batch []domain.Source) []outcome {
	outcomes := make([]outcome, len(batch))

	if o.parallelism == 1 {
		for i, src := range batch {
			if ctx.Err() != nil {
				break
			}
			outcomes[i] = o.summarizeOne(ctx, buildID, src)
		}

		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(o.parallelism)

	for i, src := range batch {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = o.summarizeOne(ctx, buildID, src)
			return nil
		})
	}

	_ = g.Wait()

	return outcomes
}

func (o *Orchestrator) summarizeOne(ctx context.Context, buildID string, src domain.Source) outcome {
	doc, err := o.extractor.Extract(ctx, src)
	if err != nil {
		o.log.ErrorContext(ctx, "Failed to extract source",
			"error", err,
			"buildID", buildID,
			"source", src.Location,
			"kind", src.Kind)
		o.recordSource(ctx, buildID, src, domain.SourceFailed, err.Error())

		return outcome{status: domain.SourceFailed}
	}

	if strings.TrimSpace(doc.Text) == "" {
		o.log.WarnContext(ctx, "Skipping source without text",
			"buildID", buildID,
			"source", src.Location,
			"kind", doc.Kind)
		o.recordSource(ctx, buildID, src, domain.SourceSkipped, "empty text")

		return outcome{status: domain.SourceSkipped}
	}

	summary, err := o.summarizer.Summarize(ctx, doc)
	if err != nil {
		o.log.ErrorContext(ctx, "Failed to summarize source",
			"error", err,
			"buildID", buildID,
			"source", src.Location,
			"kind", doc.Kind)
		o.recordSource(ctx, buildID, src, domain.SourceFailed, err.Error())

		return outcome{status: domain.SourceFailed}
	}

	if strings.TrimSpace(summary) == "" {
		o.log.WarnContext(ctx, "Skipping empty summary",
			"buildID", buildID,
			"source", src.Location,
			"kind", doc.Kind)
		o.recordSource(ctx, buildID, src, domain.SourceSkipped, "empty summary")

		return outcome{status: domain.SourceSkipped}
	}

	o.recordSource(ctx, buildID, src, domain.SourceSummarized, "")

	return outcome{status: domain.SourceSummarized, summary: summary}
}

func (o *Orchestrator) startBuild(ctx context.Context, build domain.Build) {
	if o.journal == nil {
		return
	}

	if err := o.journal.StartBuild(ctx, build.ID, build.StartedAt); err != nil {
		o.log.ErrorContext(ctx, "Failed to journal build start",
			"error", err,
			"buildID", build.ID)
	}
}

func (o *Orchestrator) recordSource(
	ctx context.Context,
	buildID string,
	src domain.Source,
	status domain.SourceStatus,
	detail string,
) {
	if o.journal == nil {
		return
	}

	err := o.journal.RecordSource(ctx, buildID, domain.SourceOutcome{
		Location: src.Location,
		Kind:     src.Kind,
		Status:   status,
		Detail:   detail,
	})
	if err != nil {
		o.log.ErrorContext(ctx, "Failed to journal source outcome",
			"error", err,
			"buildID", buildID,
			"source", src.Location)
	}
}

func (o *Orchestrator) finishBuild(ctx context.Context, build domain.Build) {
	if o.journal == nil {
		return
	}

	// The build context may already be cancelled; the journal entry should
	// still be closed.
	if err := o.journal.FinishBuild(context.WithoutCancel(ctx), build); err != nil {
		o.log.ErrorContext(ctx, "Failed to journal build finish",
			"error", err,
			"buildID", build.ID)
	}
}
