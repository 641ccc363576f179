package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Options are the page settings passed to every renderer
type Options struct {
	PageSize        string // A3, A4, A5, Letter, Legal, Tabloid
	PrintBackground bool
	WaitCondition   string // load, domcontentloaded, networkidle
	Timeout         time.Duration
}

// Renderer converts an HTML document to PDF bytes
type Renderer interface {
	Name() string
	Render(ctx context.Context, html string, opts Options) ([]byte, error)
}

// Attempt records the outcome of one renderer in a chain
type Attempt struct {
	Renderer string        `json:"renderer"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"-"`
}

// Output is the result of a successful chain run
type Output struct {
	PDF      []byte
	Renderer string
	Attempts []Attempt
}

// ChainError is returned when every renderer in a chain failed
type ChainError struct {
	Attempts []Attempt
}

func (e *ChainError) Error() string {
	if len(e.Attempts) == 0 {
		return "no renderers configured"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %s", a.Renderer, a.Error)
	}
	return strings.Join(parts, "; ")
}

// IsChainError checks if an error is a ChainError
func IsChainError(err error) bool {
	var chainErr *ChainError
	return errors.As(err, &chainErr)
}

// Chain tries renderers in order and returns the first success
type Chain struct {
	renderers []Renderer
}

// NewChain creates a fallback chain from renderers in priority order
func NewChain(renderers ...Renderer) *Chain {
	return &Chain{renderers: renderers}
}

// Names returns the renderer names in priority order
func (c *Chain) Names() []string {
	names := make([]string, len(c.renderers))
	for i, r := range c.renderers {
		names[i] = r.Name()
	}
	return names
}

// Render runs each renderer with its own timeout until one produces a document
func (c *Chain) Render(ctx context.Context, html string, opts Options) (*Output, error) {
	var attempts []Attempt
	for _, r := range c.renderers {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Renderer: r.Name(), Error: err.Error()})
			break
		}

		start := time.Now()
		pdf, err := renderOnce(ctx, r, html, opts)
		attempt := Attempt{Renderer: r.Name(), Duration: time.Since(start)}
		if err == nil {
			attempts = append(attempts, attempt)
			return &Output{PDF: pdf, Renderer: r.Name(), Attempts: attempts}, nil
		}

		attempt.Error = err.Error()
		attempts = append(attempts, attempt)
	}
	return nil, &ChainError{Attempts: attempts}
}

func renderOnce(ctx context.Context, r Renderer, html string, opts Options) ([]byte, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	pdf, err := r.Render(ctx, html, opts)
	if err != nil {
		return nil, err
	}
	if len(pdf) == 0 {
		return nil, errors.New("renderer produced an empty document")
	}
	return pdf, nil
}

// Settings locate the external tools used by the renderers
type Settings struct {
	ChromiumPath    string
	WkhtmltopdfPath string
	TmpDir          string
}

// New builds a chain from renderer names in priority order
func New(names []string, s Settings) (*Chain, error) {
	var renderers []Renderer
	for _, name := range names {
		switch strings.ToLower(name) {
		case "chromium":
			renderers = append(renderers, NewChromium(s.ChromiumPath, s.TmpDir))
		case "wkhtmltopdf":
			renderers = append(renderers, NewWkhtmltopdf(s.WkhtmltopdfPath))
		case "fpdf":
			renderers = append(renderers, NewFPDF())
		default:
			return nil, fmt.Errorf("unknown renderer %q", name)
		}
	}
	if len(renderers) == 0 {
		return nil, errors.New("no renderers configured")
	}
	return NewChain(renderers...), nil
}
