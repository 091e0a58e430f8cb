package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var ErrConfig = errors.New("invalid configuration")

type Config struct {
	Provider string `env:"KB_PROVIDER" envDefault:"gemini"`

	GoogleAPIKey      string  `env:"GOOGLE_API_KEY"`
	GeminiModel       string  `env:"GEMINI_MODEL"       envDefault:"gemini-2.0-flash"`
	GeminiTemperature float32 `env:"GEMINI_TEMPERATURE" envDefault:"0.7"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL"   envDefault:"gpt-5-mini-2025-08-07"`

	MaxConcurrency     int           `env:"KB_MAX_CONCURRENCY"     envDefault:"8"`
	MaxRetries         int           `env:"KB_MAX_RETRIES"         envDefault:"3"`
	GroupSize          int           `env:"KB_GROUP_SIZE"          envDefault:"2"`
	BackoffBase        float64       `env:"KB_BACKOFF_BASE"        envDefault:"2"`
	BackoffUnit        time.Duration `env:"KB_BACKOFF_UNIT"        envDefault:"1s"`
	SummaryParallelism int           `env:"KB_SUMMARY_PARALLELISM" envDefault:"1"`
	HTTPTimeout        time.Duration `env:"KB_HTTP_TIMEOUT"        envDefault:"60s"`
	Output             string        `env:"KB_OUTPUT"              envDefault:"final_knowledge_base.md"`
	JournalPath        string        `env:"KB_JOURNAL_PATH"`
	Schedule           string        `env:"KB_SCHEDULE"            envDefault:"0 3 * * *"`
	GitHubUsername     string        `env:"GITHUB_USERNAME"`
	GitHubAPIKey       string        `env:"GITHUB_API_KEY"`
	GitHubAPIURL       string        `env:"GITHUB_API_URL"         envDefault:"https://api.github.com"`
	TelegramToken      string        `env:"TELEGRAM_TOKEN"`
	TelegramChatID     int64         `env:"TELEGRAM_CHAT_ID"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	cfg, err := Parse()
	if err != nil {
		return Config{}, err
	}

	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Parse reads the environment without validating credentials. Commands that
// never call the generative-text service use it directly.
func Parse() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case ProviderGemini:
		if strings.TrimSpace(c.GoogleAPIKey) == "" {
			errs = append(errs, errors.New("GOOGLE_API_KEY is required for the gemini provider"))
		}
	case ProviderOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}

	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("KB_MAX_CONCURRENCY must be positive (got %d)", c.MaxConcurrency))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("KB_MAX_RETRIES must not be negative (got %d)", c.MaxRetries))
	}
	if c.GroupSize < 2 {
		errs = append(errs, fmt.Errorf("KB_GROUP_SIZE must be at least 2 (got %d)", c.GroupSize))
	}
	if c.BackoffBase < 1 {
		errs = append(errs, fmt.Errorf("KB_BACKOFF_BASE must be at least 1 (got %g)", c.BackoffBase))
	}
	if c.SummaryParallelism < 1 {
		errs = append(errs, fmt.Errorf("KB_SUMMARY_PARALLELISM must be positive (got %d)", c.SummaryParallelism))
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == 0) {
		errs = append(errs, errors.New("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
	}

	return nil
}
