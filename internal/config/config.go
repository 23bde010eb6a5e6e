package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultConcurrency is the number of fetches allowed in flight at once.
	// Five keeps a local development server responsive while still finishing
	// a few thousand pages in seconds.
	DefaultConcurrency = 5

	// DefaultTimeout bounds a single request. There is no crawl-wide deadline;
	// a crawl ends when every registered URL has produced an outcome.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of start URLs checked concurrently.
	// One means start URLs are checked sequentially.
	DefaultBatchSize = 1

	// DefaultServeRoot is the directory served when the start URL points at
	// a loopback host. Static site generators usually write to ./build.
	DefaultServeRoot = "build"

	// AppName is the application name used for XDG directory paths.
	AppName = "linkcheck"

	// DefaultUserAgent identifies linkcheck in HTTP requests.
	DefaultUserAgent = "linkcheck/1.0 (+https://github.com/nao1215/linkcheck)"

	// DefaultMaxBodySize limits how much of a text document is read for
	// link extraction. 5MB covers generated pages with inlined assets.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultRateLimit of zero disables request rate limiting. Concurrency
	// is then the only backpressure applied to the target.
	DefaultRateLimit = 0
)

// Report formats accepted by --format.
const (
	// FormatText is the console summary printed after the progress line.
	FormatText = "text"
	// FormatJSON is the machine readable result.
	FormatJSON = "json"
	// FormatMarkdown renders GitHub Flavored Markdown, handy for CI comments.
	FormatMarkdown = "markdown"
	// FormatCSV lists one broken reference (URL and referrer) per row.
	FormatCSV = "csv"
)

// Formats lists every supported report format.
var Formats = []string{FormatText, FormatJSON, FormatMarkdown, FormatCSV}

// Config holds all configuration options for linkcheck.
// It is populated from CLI flags and the optional configuration file,
// then passed down explicitly; nothing is kept in package state.
type Config struct {
	// StartURLs are the seed pages. Each one starts an independent crawl
	// with its own registry and tally.
	StartURLs []string

	// Concurrency is the maximum number of fetches without an outcome
	// at any instant, per crawl.
	Concurrency int

	// Timeout is the per-request timeout, covering connect, headers and body.
	Timeout time.Duration

	// RateLimit caps requests per second per crawl. Zero means unlimited.
	RateLimit float64

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum number of body bytes read from a text
	// document. Links beyond the limit are not discovered.
	MaxBodySize int64

	// ServeRoot is the directory served on the start URL's address when the
	// start URL points at a loopback host.
	ServeRoot string

	// NoServe disables the local server even for loopback start URLs, for
	// when a development server is already running.
	NoServe bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of start URLs checked concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .linkcheck in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site settings loaded from the config file.
	SiteConfigs *File

	// Format is one of Formats.
	Format string

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// SaveToDB stores every finished result in the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	// Defaults to the XDG data directory (~/.local/share/linkcheck on Linux).
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		RateLimit:   DefaultRateLimit,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		ServeRoot:   DefaultServeRoot,
		BatchSize:   DefaultBatchSize,
		Format:      FormatText,
		DBDir:       XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for linkcheck.
// On Linux: ~/.local/share/linkcheck
// On macOS: ~/Library/Application Support/linkcheck
// On Windows: %LOCALAPPDATA%\linkcheck
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkcheck.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found. It is called once after flag parsing, before any crawl.
func (c *Config) Validate() error {
	if len(c.StartURLs) == 0 {
		return ErrNoTarget
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if !slices.Contains(Formats, c.Format) {
		return ErrUnknownFormat
	}
	return nil
}
