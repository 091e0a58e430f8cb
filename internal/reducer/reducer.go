// Package reducer folds an ordered list of Markdown documents into one by
// merging consecutive groups in synchronized rounds.
package reducer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultGroupSize = 2

type Submitter interface {
	Submit(ctx context.Context, prompt string) (string, error)
}

// Group is the half-open index range [Start, End) of one merge group.
type Group struct {
	Start int
	End   int
}

func (g Group) Len() int {
	return g.End - g.Start
}

// Result is the outcome of a full reduction. Merges counts service requests
// issued for merge groups.
type Result struct {
	Document string
	Rounds   int
	Merges   int
}

// RoundError reports the first failing group, in group order, of a round.
type RoundError struct {
	Round int
	Group int
	Err   error
}

func (e *RoundError) Error() string {
	return fmt.Sprintf("merge round %d group %d: %v", e.Round, e.Group, e.Err)
}

func (e *RoundError) Unwrap() error {
	return e.Err
}

type Reducer struct {
	service   Submitter
	groupSize int
	log       *slog.Logger
}

func New(service Submitter, groupSize int, log *slog.Logger) *Reducer {
	if groupSize < 2 {
		groupSize = DefaultGroupSize
	}

	return &Reducer{
		service:   service,
		groupSize: groupSize,
		log:       log,
	}
}

// Groups partitions n items into consecutive groups of size, left to right.
// The last group may be shorter.
func Groups(n int, size int) []Group {
	if n <= 0 || size <= 0 {
		return nil
	}

	groups := make([]Group, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		groups = append(groups, Group{Start: start, End: min(start+size, n)})
	}

	return groups
}

// Reduce merges items until exactly one remains. Zero items yield an empty
// document and one item is returned as is; neither issues a request. Any
// failing merge group aborts the whole reduction.
func (r *Reducer) Reduce(ctx context.Context, items []string) (Result, error) {
	switch len(items) {
	case 0:
		return Result{}, nil
	case 1:
		return Result{Document: items[0]}, nil
	}

	current := slices.Clone(items)
	var res Result

	for len(current) > 1 {
		res.Rounds++

		next, merges, err := r.round(ctx, res.Rounds, current)
		res.Merges += merges
		if err != nil {
			r.log.ErrorContext(ctx, "Merge round failed",
				"error", err,
				"round", res.Rounds,
				"inputs", len(current),
				"mergesIssued", res.Merges)

			return Result{}, err
		}

		current = next
	}

	res.Document = current[0]

	return res, nil
}

// round issues every group of one round concurrently and waits for all of
// them. Failed rounds still let sibling groups finish; their output is dropped.
func (r *Reducer) round(ctx context.Context, round int, items []string) ([]string, int, error) {
	start := time.Now()
	groups := Groups(len(items), r.groupSize)

	out := make([]string, len(groups))
	errs := make([]error, len(groups))
	merges := 0

	var g errgroup.Group
	for i, group := range groups {
		if group.Len() == 1 {
			out[i] = items[group.Start]
			continue
		}

		merges++
		members := items[group.Start:group.End]
		g.Go(func() error {
			merged, err := r.service.Submit(ctx, MergePrompt(members))
			if err != nil {
				errs[i] = err
				return err
			}

			out[i] = merged
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for i, groupErr := range errs {
			if groupErr != nil {
				return nil, merges, &RoundError{Round: round, Group: i, Err: groupErr}
			}
		}
	}

	r.log.InfoContext(ctx, "Merge round is done",
		"round", round,
		"inputs", len(items),
		"outputs", len(out),
		"merges", merges,
		"durationMs", time.Since(start).Milliseconds())

	return out, merges, nil
}

// MergePrompt labels each member in order and asks for one combined document.
func MergePrompt(members []string) string {
	size := 256
	for _, m := range members {
		size += len(m) + 32
	}

	var b strings.Builder
	b.Grow(size)

	b.WriteString("Merge the following ")
	b.WriteString(strconv.Itoa(len(members)))
	b.WriteString(" Markdown knowledge bases into one logically organized document.\n\n")

	for i, member := range members {
		b.WriteString("--- fragment ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(" ---\n")
		b.WriteString(member)
		b.WriteString("\n")
	}

	b.WriteString("--- end of fragments ---\n\nReturn only the final Markdown.")

	return b.String()
}
