package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kbbuilder/internal/config"
	"kbbuilder/internal/llm"
	"kbbuilder/internal/llm/llmtest"
	"kbbuilder/internal/pipeline"
	"kbbuilder/internal/sources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	return config.Config{
		Provider:           config.ProviderGemini,
		GoogleAPIKey:       "test",
		MaxConcurrency:     2,
		MaxRetries:         1,
		GroupSize:          2,
		BackoffBase:        2,
		BackoffUnit:        time.Millisecond,
		SummaryParallelism: 1,
		HTTPTimeout:        time.Second,
		Output:             filepath.Join(t.TempDir(), "default.md"),
		JournalPath:        filepath.Join(t.TempDir(), "journal.db"),
		GitHubAPIURL:       "https://api.github.com",
	}
}

func testDeps(cfg config.Config, fake *llmtest.Fake) deps {
	return deps{
		loadConfig: func() (config.Config, error) { return cfg, nil },
		newTransformer: func(context.Context, config.Config) (llm.Transformer, error) {
			return fake, nil
		},
	}
}

func execute(t *testing.T, d deps, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCommand(slog.New(slog.NewTextHandler(io.Discard, nil)), d)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.ExecuteContext(t.Context())

	return out.String(), err
}

func TestBuildWritesKnowledgeBase(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.md")
	second := filepath.Join(dir, "second.txt")
	require.NoError(t, os.WriteFile(first, []byte("alpha"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("beta"), 0o600))

	fake := &llmtest.Fake{Respond: func(prompt string, _ int) (string, error) {
		if strings.Contains(prompt, "--- fragment 1 ---") {
			return "# Merged", nil
		}
		return "# Summary", nil
	}}
	cfg := testConfig(t)
	output := filepath.Join(dir, "out", "kb.md")

	stdout, err := execute(t, testDeps(cfg, fake), "build", "-f", first, "--file", second, "-o", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "# Merged", string(data))
	assert.Contains(t, stdout, "Knowledge base written to "+output)
	assert.Equal(t, 3, fake.Calls())

	historyOut, err := executeHistory(t, cfg.JournalPath)
	require.NoError(t, err)
	assert.Contains(t, historyOut, "succeeded")
}

func executeHistory(t *testing.T, journalPath string) (string, error) {
	t.Helper()

	t.Setenv("KB_JOURNAL_PATH", journalPath)

	return execute(t, deps{}, "history", "-n", "5")
}

func TestBuildReportsNoOutput(t *testing.T) {
	dir := t.TempDir()
	blank := filepath.Join(dir, "blank.md")
	require.NoError(t, os.WriteFile(blank, []byte("   \n"), 0o600))

	fake := &llmtest.Fake{}
	cfg := testConfig(t)
	output := filepath.Join(dir, "kb.md")

	stdout, err := execute(t, testDeps(cfg, fake), "build", "-f", blank, "-f", filepath.Join(dir, "missing.pdf"), "-o", output)

	require.ErrorIs(t, err, pipeline.ErrNoSummaries)
	assert.Contains(t, stdout, "No output was produced")
	assert.NoFileExists(t, output)
	assert.Zero(t, fake.Calls())
}

func TestBuildFailsFastWithoutSources(t *testing.T) {
	fake := &llmtest.Fake{}
	cfg := testConfig(t)
	cfg.JournalPath = ""

	_, err := execute(t, testDeps(cfg, fake), "build")

	require.ErrorIs(t, err, sources.ErrNoSources)
	assert.Zero(t, fake.Calls())
}

func TestBuildFailsFastOnConfigError(t *testing.T) {
	transformerBuilt := false
	d := deps{
		loadConfig: func() (config.Config, error) {
			return config.Config{}, config.ErrConfig
		},
		newTransformer: func(context.Context, config.Config) (llm.Transformer, error) {
			transformerBuilt = true
			return &llmtest.Fake{}, nil
		},
	}

	_, err := execute(t, d, "build", "-w", "https://example.com")

	require.ErrorIs(t, err, config.ErrConfig)
	assert.False(t, transformerBuilt)
}

func TestSourceFlagsMergeSourcesFile(t *testing.T) {
	dir := t.TempDir()
	sourcesFile := filepath.Join(dir, "sources.yaml")
	require.NoError(t, os.WriteFile(sourcesFile, []byte("web_urls: [https://example.com/b]\ngithub_user: file-user\n"), 0o600))

	flags := &sourceFlags{
		webs:        []string{"https://example.com/a"},
		sourcesFile: sourcesFile,
	}
	cfg := testConfig(t)
	cfg.GitHubUsername = "env-user"

	src, output, err := flags.resolve(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, src.WebURLs)
	assert.Equal(t, "file-user", src.GitHubUser)
	assert.Equal(t, cfg.Output, output)
}
