package main

import (
	"context"
	"log/slog"

	"kbbuilder/internal/config"
	"kbbuilder/internal/llm"

	"github.com/spf13/cobra"
)

// deps are the seams the commands are built over.
type deps struct {
	loadConfig     func() (config.Config, error)
	newTransformer func(ctx context.Context, cfg config.Config) (llm.Transformer, error)
}

func defaultDeps() deps {
	return deps{
		loadConfig:     config.Load,
		newTransformer: llm.New,
	}
}

func newRootCommand(log *slog.Logger, d deps) *cobra.Command {
	root := &cobra.Command{
		Use:          "kbbuilder",
		Short:        "Build a Markdown knowledge base from documents, web pages, feeds and repositories",
		SilenceUsage: true,
	}

	root.AddCommand(
		newBuildCommand(log, d),
		newScheduleCommand(log, d),
		newHistoryCommand(log),
	)

	return root
}
