package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"kbbuilder/internal/config"
	"kbbuilder/internal/pipeline"
	"kbbuilder/internal/sources"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type sourceFlags struct {
	files       []string
	pdfs        []string
	webs        []string
	sitemaps    []string
	feeds       []string
	githubUser  string
	sourcesFile string
	output      string
}

func (f *sourceFlags) bind(flags *pflag.FlagSet) {
	flags.StringArrayVarP(&f.files, "file", "f", nil, "file path or URL of any supported type (repeatable)")
	flags.StringArrayVarP(&f.pdfs, "pdf", "p", nil, "PDF URL or path (repeatable)")
	flags.StringArrayVarP(&f.webs, "web", "w", nil, "web page URL (repeatable)")
	flags.StringArrayVarP(&f.sitemaps, "sitemap", "s", nil, "sitemap URL whose pages are processed (repeatable)")
	flags.StringArrayVar(&f.feeds, "feed", nil, "RSS, Atom or Telegram channel URL whose items are processed (repeatable)")
	flags.StringVar(&f.githubUser, "github-user", "", "GitHub user whose repositories' Markdown files are processed")
	flags.StringVar(&f.sourcesFile, "sources-file", "", "YAML or JSON sources file, or any text file to scan for URLs")
	flags.StringVarP(&f.output, "output", "o", "", "output path (default from KB_OUTPUT)")
}

// resolve merges flags, the sources file and GITHUB_USERNAME, in that order
// of precedence.
func (f *sourceFlags) resolve(cfg config.Config) (sources.Sources, string, error) {
	src := sources.Sources{
		Files:       f.files,
		PDFURLs:     f.pdfs,
		WebURLs:     f.webs,
		SitemapURLs: f.sitemaps,
		FeedURLs:    f.feeds,
		GitHubUser:  f.githubUser,
	}

	if path := strings.TrimSpace(f.sourcesFile); path != "" {
		fromFile, err := sources.LoadFile(path)
		if err != nil {
			return sources.Sources{}, "", fmt.Errorf("load sources file: %w", err)
		}
		src = src.Merge(fromFile)
	}

	src = src.Merge(sources.Sources{GitHubUser: cfg.GitHubUsername})

	if err := src.Validate(); err != nil {
		return sources.Sources{}, "", fmt.Errorf(
			"%w: use --file, --pdf, --web, --sitemap, --feed, --github-user or --sources-file", err)
	}

	output := strings.TrimSpace(f.output)
	if output == "" {
		output = cfg.Output
	}

	return src, output, nil
}

func newBuildCommand(log *slog.Logger, d deps) *cobra.Command {
	flags := &sourceFlags{}

	command := &cobra.Command{
		Use:   "build",
		Short: "Build the knowledge base once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := d.loadConfig()
			if err != nil {
				return err
			}

			src, output, err := flags.resolve(cfg)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, d, log)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			report, err := a.orchestrator.Run(ctx, src, output)
			if errors.Is(err, pipeline.ErrNoSummaries) {
				fmt.Fprintf(cmd.OutOrStdout(),
					"No output was produced: none of the %d sources yielded a summary (%d skipped, %d failed).\n",
					report.Sources, report.Skipped, report.Failed)
				return err
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"Knowledge base written to %s (build %s: %d summaries from %d sources, %d merge rounds).\n",
				report.Destination, report.BuildID, report.Summaries, report.Sources, report.Rounds)

			return nil
		},
	}

	flags.bind(command.Flags())

	return command
}
