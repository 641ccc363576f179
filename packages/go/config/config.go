package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds application configuration
type Config struct {
	// Report location settings
	SrcBucket      string `env:"SRC_BUCKET" env-default:"lambda-output-report-000000987123"`
	DestBucket     string `env:"DEST_BUCKET" env-default:"pdf-uptime-reports-0000009"`
	BasePrefix     string `env:"BASE_PREFIX" env-default:"uptime"`
	DestBasePrefix string `env:"DEST_BASE_PREFIX"` // empty = same as BasePrefix
	SrcFileName    string `env:"SRC_FILE_NAME" env-default:"uptime-report.html"`
	OutHTMLName    string `env:"OUT_HTML_NAME" env-default:"uptime-report.html"`
	OutPDFName     string `env:"OUT_PDF_NAME" env-default:"uptime-report.pdf"`

	// Lookup settings
	NestedDepth int    `env:"NESTED_DEPTH" env-default:"1"`
	TieBreak    string `env:"TIE_BREAK" env-default:"first"` // first | last

	// Render settings
	PDFFormat       string   `env:"PDF_FORMAT" env-default:"A4"`
	WaitMode        string   `env:"RENDER_WAIT" env-default:"load"`
	PageTimeoutMS   int      `env:"PAGE_TIMEOUT_MS" env-default:"60000"`
	PrintBackground Flag     `env:"PRINT_BACKGROUND" env-default:"true"`
	AllowPDFSkip    Flag     `env:"ALLOW_PDF_SKIP" env-default:"false"`
	Renderers       []string `env:"RENDERERS" env-default:"chromium"`
	ChromiumPath    string   `env:"CHROMIUM_PATH" env-default:"chromium"`
	WkhtmltopdfPath string   `env:"WKHTMLTOPDF_PATH" env-default:"wkhtmltopdf"`
	RenderTmpDir    string   `env:"RENDER_TMP_DIR" env-default:"/tmp"`

	// Storage settings
	StorageBackend string `env:"STORAGE_BACKEND" env-default:"s3"` // s3 | minio | local
	S3Region       string `env:"AWS_REGION"`
	MinIOEndpoint  string `env:"MINIO_ENDPOINT"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY"`
	MinIOUseSSL    Flag   `env:"MINIO_USE_SSL" env-default:"false"`
	LocalPath      string `env:"LOCAL_STORAGE_PATH" env-default:"./data"`

	// Run ledger and notification settings
	DatabaseURL    string `env:"DATABASE_URL"`
	LedgerPath     string `env:"LEDGER_PATH" env-default:"./report-runs.db"`
	SNSTopicARN    string `env:"SNS_TOPIC_ARN"`
	ReportQueueURL string `env:"REPORT_QUEUE_URL"`

	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

// Flag is a boolean that accepts the loose encodings used in deployment
// templates ("1", "yes", "on" as well as strconv.ParseBool forms).
type Flag bool

// SetValue implements cleanenv.Setter
func (f *Flag) SetValue(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "y", "on":
		*f = true
	case "", "0", "f", "false", "no", "n", "off":
		*f = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	return nil
}

// InvalidSettingError reports a configuration value outside its accepted set
type InvalidSettingError struct {
	Name  string
	Value string
	Want  string
}

func (e *InvalidSettingError) Error() string {
	return fmt.Sprintf("invalid %s %q: want %s", e.Name, e.Value, e.Want)
}

var pageSizes = []string{"A3", "A4", "A5", "Letter", "Legal", "Tabloid"}

var waitModes = []string{"load", "domcontentloaded", "networkidle"}

var renderers = []string{"chromium", "wkhtmltopdf", "fpdf"}

// Load creates a Config from environment variables with defaults
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.BasePrefix = strings.Trim(c.BasePrefix, "/")
	c.DestBasePrefix = strings.Trim(c.DestBasePrefix, "/")
	if c.DestBasePrefix == "" {
		c.DestBasePrefix = c.BasePrefix
	}

	// Unknown wait conditions fall back to "load" rather than failing the cold start
	c.WaitMode = strings.ToLower(strings.TrimSpace(c.WaitMode))
	if !contains(waitModes, c.WaitMode) {
		c.WaitMode = "load"
	}

	format, ok := canonical(pageSizes, c.PDFFormat)
	if !ok {
		return &InvalidSettingError{Name: "PDF_FORMAT", Value: c.PDFFormat, Want: strings.Join(pageSizes, ", ")}
	}
	c.PDFFormat = format

	var names []string
	for _, r := range c.Renderers {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if !contains(renderers, r) {
			return &InvalidSettingError{Name: "RENDERERS", Value: r, Want: strings.Join(renderers, ", ")}
		}
		names = append(names, r)
	}
	if len(names) == 0 {
		return &InvalidSettingError{Name: "RENDERERS", Value: "", Want: "at least one renderer"}
	}
	c.Renderers = names

	c.StorageBackend = strings.ToLower(c.StorageBackend)
	switch c.StorageBackend {
	case "s3", "local":
	case "minio":
		if c.MinIOEndpoint == "" {
			return &InvalidSettingError{Name: "MINIO_ENDPOINT", Value: "", Want: "an endpoint when STORAGE_BACKEND=minio"}
		}
	default:
		return &InvalidSettingError{Name: "STORAGE_BACKEND", Value: c.StorageBackend, Want: "s3, minio, local"}
	}

	if c.NestedDepth < 0 {
		return &InvalidSettingError{Name: "NESTED_DEPTH", Value: fmt.Sprint(c.NestedDepth), Want: "a value >= 0"}
	}

	c.TieBreak = strings.ToLower(c.TieBreak)
	if c.TieBreak != "first" && c.TieBreak != "last" {
		return &InvalidSettingError{Name: "TIE_BREAK", Value: c.TieBreak, Want: "first, last"}
	}

	if c.PageTimeoutMS <= 0 {
		c.PageTimeoutMS = 60000
	}
	return nil
}

// PageTimeout returns the render timeout as a duration
func (c *Config) PageTimeout() time.Duration {
	return time.Duration(c.PageTimeoutMS) * time.Millisecond
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// canonical matches v case-insensitively and returns the list's spelling
func canonical(list []string, v string) (string, bool) {
	for _, s := range list {
		if strings.EqualFold(s, strings.TrimSpace(v)) {
			return s, true
		}
	}
	return "", false
}
