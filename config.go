package revenium

import (
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
)

const (
	defaultBaseURL       = "https://api.revenium.ai"
	apiKeyPrefix         = "hak_"
	defaultMaxPromptSize = 50000
)

// SummaryFormat selects how PrintSummary renders its output.
type SummaryFormat string

const (
	// SummaryOff disables summary printing.
	SummaryOff SummaryFormat = ""
	// SummaryHuman prints a human-readable banner.
	SummaryHuman SummaryFormat = "human"
	// SummaryJSON prints a single-line JSON summary.
	SummaryJSON SummaryFormat = "json"
)

// Config holds the configuration for the Revenium metering middleware.
type Config struct {
	// APIKey is the Revenium API key (required, must start with "hak_").
	APIKey string

	// BaseURL is the Revenium API base URL. Defaults to "https://api.revenium.ai".
	// It may already carry the /meter or /meter/v2 suffix; the transmitter
	// normalizes it either way.
	BaseURL string

	// TeamID enables cost retrieval from the Revenium profitstream API.
	// When empty, FetchCost reports cost as unavailable without a network call.
	TeamID string

	// CapturePrompts enables sending prompt and response text with metering
	// payloads. Nil means unset, deferring to the REVENIUM_CAPTURE_PROMPTS
	// environment toggle. Per-call UsageMetadata overrides both.
	CapturePrompts *bool

	// MaxPromptSize is the maximum size in characters for captured prompt
	// fields before truncation. Zero means unset (env or default 50000).
	MaxPromptSize int

	// PrintSummary selects the terminal summary format after each request.
	PrintSummary SummaryFormat

	// Debug enables debug-level logging.
	Debug bool

	// Logger is an optional custom logging sink.
	Logger Logger

	// HTTPClient is an optional custom HTTP client for metering requests.
	HTTPClient *http.Client

	// SummaryWriter receives PrintSummary output. Defaults to os.Stdout.
	SummaryWriter io.Writer
}

// Option is a functional option for configuring a Client.
type Option func(*Config)

// WithAPIKey sets the Revenium API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL sets the Revenium API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithTeamID sets the team identifier used for cost retrieval.
func WithTeamID(id string) Option {
	return func(c *Config) { c.TeamID = id }
}

// WithCapturePrompts sets the global prompt capture flag.
func WithCapturePrompts(capture bool) Option {
	return func(c *Config) { c.CapturePrompts = &capture }
}

// WithMaxPromptSize sets the truncation limit for captured prompt fields.
func WithMaxPromptSize(size int) Option {
	return func(c *Config) { c.MaxPromptSize = size }
}

// WithPrintSummary sets the terminal summary format.
func WithPrintSummary(format SummaryFormat) Option {
	return func(c *Config) { c.PrintSummary = format }
}

// WithDebug enables debug-level logging.
func WithDebug(debug bool) Option {
	return func(c *Config) { c.Debug = debug }
}

// WithLogger sets a custom logging sink.
func WithLogger(logger Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithSummaryWriter sets the destination for PrintSummary output.
func WithSummaryWriter(w io.Writer) Option {
	return func(c *Config) { c.SummaryWriter = w }
}

func loadFromEnv(c *Config) {
	if v := os.Getenv("REVENIUM_METERING_API_KEY"); v != "" && c.APIKey == "" {
		c.APIKey = v
	}
	if v := os.Getenv("REVENIUM_API_KEY"); v != "" && c.APIKey == "" {
		c.APIKey = v
	}
	if v := os.Getenv("REVENIUM_METERING_BASE_URL"); v != "" && c.BaseURL == "" {
		c.BaseURL = v
	}
	if v := os.Getenv("REVENIUM_BASE_URL"); v != "" && c.BaseURL == "" {
		c.BaseURL = v
	}
	if v := os.Getenv("REVENIUM_TEAM_ID"); v != "" && c.TeamID == "" {
		c.TeamID = v
	}
	if v := os.Getenv("REVENIUM_PRINT_SUMMARY"); v != "" && c.PrintSummary == SummaryOff {
		c.PrintSummary = parseSummaryFormat(v)
	}
	if v := os.Getenv("REVENIUM_DEBUG"); v != "" && !c.Debug {
		c.Debug = strings.EqualFold(v, "true")
	}
}

// parseSummaryFormat maps the REVENIUM_PRINT_SUMMARY value onto a format.
// "true" selects the human format; anything unrecognized disables printing.
func parseSummaryFormat(v string) SummaryFormat {
	switch strings.ToLower(v) {
	case "true", "human":
		return SummaryHuman
	case "json":
		return SummaryJSON
	default:
		return SummaryOff
	}
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return newConfigError("API key is required", nil)
	}
	if !strings.HasPrefix(c.APIKey, apiKeyPrefix) {
		return newConfigError("API key must start with \"hak_\"", nil)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = newStdLogger(c.Debug)
	}
	if c.SummaryWriter == nil {
		c.SummaryWriter = os.Stdout
	}
}

// maxPromptSize resolves the truncation limit: config, then environment,
// then the 50000-character default.
func (c *Config) maxPromptSize() int {
	if c.MaxPromptSize > 0 {
		return c.MaxPromptSize
	}
	if v := os.Getenv("REVENIUM_MAX_PROMPT_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultMaxPromptSize
}
