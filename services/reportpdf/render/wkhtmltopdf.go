package render

import (
	"context"
	"strings"
)

// Delay applied when waiting for network idle, in milliseconds
const wkhtmltopdfJSDelay = "2000"

// Wkhtmltopdf converts HTML with the wkhtmltopdf command-line tool
type Wkhtmltopdf struct {
	path string
	run  commandRunner
}

// NewWkhtmltopdf creates a renderer using the binary at path
func NewWkhtmltopdf(path string) *Wkhtmltopdf {
	if path == "" {
		path = "wkhtmltopdf"
	}
	return &Wkhtmltopdf{path: path, run: execCommand}
}

func (w *Wkhtmltopdf) Name() string { return "wkhtmltopdf" }

// Render streams the document through stdin and reads the PDF from stdout
func (w *Wkhtmltopdf) Render(ctx context.Context, html string, opts Options) ([]byte, error) {
	return w.run(ctx, w.path, wkhtmltopdfArgs(opts), []byte(html))
}

func wkhtmltopdfArgs(opts Options) []string {
	args := []string{
		"--quiet",
		"--encoding", "utf-8",
		"--page-size", pageSizeOrDefault(opts.PageSize),
		"--margin-top", "0",
		"--margin-right", "0",
		"--margin-bottom", "0",
		"--margin-left", "0",
		"--load-error-handling", "ignore",
	}
	if opts.PrintBackground {
		args = append(args, "--background")
	} else {
		args = append(args, "--no-background")
	}
	if strings.EqualFold(opts.WaitCondition, "networkidle") {
		args = append(args, "--javascript-delay", wkhtmltopdfJSDelay)
	}
	return append(args, "-", "-")
}
