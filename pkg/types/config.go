package types

import (
	"errors"
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout applied on top of per-strategy deadlines.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "journal-club/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on HTTP 429 and 5xx responses (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// AcquisitionConfig holds settings for the acquisition pipeline.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Email is the contact address sent to Unpaywall, OpenAlex and NCBI.
	// Unpaywall is disabled without it.
	Email string `json:"email" yaml:"email" mapstructure:"email"`

	// CoreAPIKey enables the fee-gated CORE strategy.
	CoreAPIKey string `json:"core_api_key,omitempty" yaml:"core_api_key,omitempty" mapstructure:"core_api_key"`

	// SemanticScholarAPIKey is optional; it raises the Semantic Scholar rate limit.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// Mirrors lists shadow-library mirror base URLs. Empty disables mirror strategies.
	Mirrors []string `json:"mirrors" yaml:"mirrors" mapstructure:"mirrors"`

	// SearchURL is an HTML search endpoint queried with ?q=<doi>. Empty disables search scraping.
	SearchURL string `json:"search_url" yaml:"search_url" mapstructure:"search_url"`

	// MaxPDFBytes caps a single PDF download (default 50 MiB).
	MaxPDFBytes int64 `json:"max_pdf_bytes" yaml:"max_pdf_bytes" mapstructure:"max_pdf_bytes"`

	// MinHTMLWords is the article word count a publisher page needs to be
	// accepted as HTML full text (default 800).
	MinHTMLWords int `json:"min_html_words" yaml:"min_html_words" mapstructure:"min_html_words"`

	// HostRPS paces requests per host across scraping strategies (default 2).
	HostRPS float64 `json:"host_rps" yaml:"host_rps" mapstructure:"host_rps"`

	// TrustedTimeout is the per-strategy deadline for the open-access tier.
	TrustedTimeout time.Duration `json:"trusted_timeout" yaml:"trusted_timeout" mapstructure:"trusted_timeout"`

	// MirrorTimeout is the per-strategy deadline for the mirrors-and-search tier.
	MirrorTimeout time.Duration `json:"mirror_timeout" yaml:"mirror_timeout" mapstructure:"mirror_timeout"`

	// DirectTimeout is the per-strategy deadline for the relaxed direct tier.
	DirectTimeout time.Duration `json:"direct_timeout" yaml:"direct_timeout" mapstructure:"direct_timeout"`
}

// ValidationConfig tunes the candidate validator.
type ValidationConfig struct {
	// WindowBytes is the leading text window inspected (default 5000).
	WindowBytes int `json:"window_bytes" yaml:"window_bytes" mapstructure:"window_bytes"`

	// MinTitleOverlap is the accepted title word overlap fraction (default 0.5).
	MinTitleOverlap float64 `json:"min_title_overlap" yaml:"min_title_overlap" mapstructure:"min_title_overlap"`
}

// ExtractionConfig holds the thresholds of the markup-to-text cascade.
type ExtractionConfig struct {
	StateMinChars     int `json:"state_min_chars" yaml:"state_min_chars" mapstructure:"state_min_chars"`
	ContainerMinChars int `json:"container_min_chars" yaml:"container_min_chars" mapstructure:"container_min_chars"`
	BodyMinChars      int `json:"body_min_chars" yaml:"body_min_chars" mapstructure:"body_min_chars"`
	ParagraphMinChars int `json:"paragraph_min_chars" yaml:"paragraph_min_chars" mapstructure:"paragraph_min_chars"`
	ListItemMinChars  int `json:"list_item_min_chars" yaml:"list_item_min_chars" mapstructure:"list_item_min_chars"`

	// RenderBelowChars triggers rendering escalation when extracted text is shorter.
	RenderBelowChars int `json:"render_below_chars" yaml:"render_below_chars" mapstructure:"render_below_chars"`
}

// RenderConfig holds settings for the rendering escalation backends.
type RenderConfig struct {
	// MinChars is the rendered markup length a backend must reach (default 1000).
	MinChars int `json:"min_chars" yaml:"min_chars" mapstructure:"min_chars"`

	// SettleWindow is the hydration wait after loading markup into the DOM backend.
	SettleWindow time.Duration `json:"settle_window" yaml:"settle_window" mapstructure:"settle_window"`

	// Timeout is the per-backend deadline.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// CloudURL is the managed rendering API endpoint.
	CloudURL string `json:"cloud_url" yaml:"cloud_url" mapstructure:"cloud_url"`

	// CloudToken enables the cloud backend.
	CloudToken string `json:"cloud_token,omitempty" yaml:"cloud_token,omitempty" mapstructure:"cloud_token"`

	// BrowserPath is where the local headless browser binary lives or is downloaded to.
	BrowserPath string `json:"browser_path" yaml:"browser_path" mapstructure:"browser_path"`

	// BrowserURL is the download location used when BrowserPath does not exist.
	BrowserURL string `json:"browser_url" yaml:"browser_url" mapstructure:"browser_url"`

	// BrowserPlatform is the only GOOS the local browser backend runs on (default linux).
	BrowserPlatform string `json:"browser_platform" yaml:"browser_platform" mapstructure:"browser_platform"`

	// DownloadTimeout bounds the one-time browser download. It is independent
	// of the request that triggered it.
	DownloadTimeout time.Duration `json:"download_timeout" yaml:"download_timeout" mapstructure:"download_timeout"`
}

// FiguresConfig holds settings for the visual-element extraction backends.
type FiguresConfig struct {
	// PDFFiguresJar is the pdffigures2 assembly jar. Empty disables the backend.
	PDFFiguresJar string `json:"pdffigures_jar" yaml:"pdffigures_jar" mapstructure:"pdffigures_jar"`

	// JavaBin is the java executable (default "java").
	JavaBin string `json:"java_bin" yaml:"java_bin" mapstructure:"java_bin"`

	// PDFFiguresTimeout is the pdffigures2 deadline (default 120s).
	PDFFiguresTimeout time.Duration `json:"pdffigures_timeout" yaml:"pdffigures_timeout" mapstructure:"pdffigures_timeout"`

	// ChandraBin is the chandra OCR executable. Empty disables the backend.
	ChandraBin string `json:"chandra_bin" yaml:"chandra_bin" mapstructure:"chandra_bin"`

	// ChandraTimeout is the chandra deadline (default 20m).
	ChandraTimeout time.Duration `json:"chandra_timeout" yaml:"chandra_timeout" mapstructure:"chandra_timeout"`

	// CaptionsTimeout bounds the in-process caption scan (default 30s).
	CaptionsTimeout time.Duration `json:"captions_timeout" yaml:"captions_timeout" mapstructure:"captions_timeout"`

	// MaxAttempts is how often the figure cascade is retried before the empty set (default 2).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`
}

// LoggingConfig selects the zap configuration.
type LoggingConfig struct {
	Development bool `json:"development" yaml:"development" mapstructure:"development"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables the endpoint.
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// Config groups all stage configurations.
type Config struct {
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition" mapstructure:"acquisition"`
	Validation  ValidationConfig  `json:"validation" yaml:"validation" mapstructure:"validation"`
	Extraction  ExtractionConfig  `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Render      RenderConfig      `json:"render" yaml:"render" mapstructure:"render"`
	Figures     FiguresConfig     `json:"figures" yaml:"figures" mapstructure:"figures"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging" mapstructure:"logging"`
	Metrics     MetricsConfig     `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

// DefaultConfig returns the configuration used when no file or environment
// override is present.
func DefaultConfig() Config {
	return Config{
		Acquisition: AcquisitionConfig{
			HTTPConfig: HTTPConfig{
				Timeout:    60 * time.Second,
				UserAgent:  "journal-club/0.1 (+https://github.com/nayanlc19/journal-club-standalone)",
				MaxRetries: 2,
			},
			MaxPDFBytes:    50 << 20,
			MinHTMLWords:   800,
			HostRPS:        2,
			TrustedTimeout: 15 * time.Second,
			MirrorTimeout:  20 * time.Second,
			DirectTimeout:  30 * time.Second,
		},
		Validation: ValidationConfig{
			WindowBytes:     5000,
			MinTitleOverlap: 0.5,
		},
		Extraction: ExtractionConfig{
			StateMinChars:     500,
			ContainerMinChars: 500,
			BodyMinChars:      1000,
			ParagraphMinChars: 20,
			ListItemMinChars:  10,
			RenderBelowChars:  500,
		},
		Render: RenderConfig{
			MinChars:        1000,
			SettleWindow:    3 * time.Second,
			Timeout:         45 * time.Second,
			CloudURL:        "https://production-sfo.browserless.io/content",
			BrowserPath:     ".cache/chrome-headless-shell",
			BrowserPlatform: "linux",
			DownloadTimeout: 10 * time.Minute,
		},
		Figures: FiguresConfig{
			JavaBin:           "java",
			PDFFiguresTimeout: 120 * time.Second,
			ChandraTimeout:    20 * time.Minute,
			CaptionsTimeout:   30 * time.Second,
			MaxAttempts:       2,
		},
	}
}

// Validate reports configuration values that would make a stage misbehave.
func (c Config) Validate() error {
	var errs []error
	if c.Acquisition.MaxPDFBytes <= 0 {
		errs = append(errs, fmt.Errorf("acquisition.max_pdf_bytes must be positive, got %d", c.Acquisition.MaxPDFBytes))
	}
	for name, d := range map[string]time.Duration{
		"acquisition.trusted_timeout": c.Acquisition.TrustedTimeout,
		"acquisition.mirror_timeout":  c.Acquisition.MirrorTimeout,
		"acquisition.direct_timeout":  c.Acquisition.DirectTimeout,
		"render.timeout":              c.Render.Timeout,
		"render.download_timeout":     c.Render.DownloadTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, d))
		}
	}
	if c.Validation.MinTitleOverlap < 0 || c.Validation.MinTitleOverlap > 1 {
		errs = append(errs, fmt.Errorf("validation.min_title_overlap must be within [0,1], got %v", c.Validation.MinTitleOverlap))
	}
	if c.Render.MinChars <= 0 {
		errs = append(errs, fmt.Errorf("render.min_chars must be positive, got %d", c.Render.MinChars))
	}
	return errors.Join(errs...)
}
