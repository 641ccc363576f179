package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Flags that keep headless Chromium stable inside Lambda (no GPU, tiny /dev/shm)
var chromiumFlags = []string{
	"--headless=new",
	"--no-sandbox",
	"--disable-gpu",
	"--disable-dev-shm-usage",
	"--disable-software-rasterizer",
	"--mute-audio",
	"--single-process",
	"--no-zygote",
	"--hide-scrollbars",
	"--no-pdf-header-footer",
}

// networkIdleBudgetMS lets pending network activity settle before printing
const networkIdleBudgetMS = 10000

// Chromium prints HTML through a headless Chromium binary
type Chromium struct {
	path   string
	tmpDir string
	run    commandRunner
}

// NewChromium creates a Chromium renderer using the binary at path
func NewChromium(path, tmpDir string) *Chromium {
	if path == "" {
		path = "chromium"
	}
	return &Chromium{path: path, tmpDir: tmpDir, run: execCommand}
}

func (c *Chromium) Name() string { return "chromium" }

// Render writes the document to a scratch directory and prints it with --print-to-pdf
func (c *Chromium) Render(ctx context.Context, doc string, opts Options) ([]byte, error) {
	dir, err := os.MkdirTemp(c.tmpDir, "chromium-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "page.html")
	out := filepath.Join(dir, "out.pdf")
	if err := os.WriteFile(in, []byte(injectPrintCSS(doc, opts)), 0600); err != nil {
		return nil, fmt.Errorf("writing page: %w", err)
	}

	if _, err := c.run(ctx, c.path, chromiumArgs(dir, in, out, opts), nil); err != nil {
		return nil, err
	}

	pdf, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("reading printed pdf: %w", err)
	}
	return pdf, nil
}

func chromiumArgs(dir, in, out string, opts Options) []string {
	args := append([]string{}, chromiumFlags...)
	args = append(args,
		"--user-data-dir="+filepath.Join(dir, "profile"),
		"--print-to-pdf="+out,
	)
	if opts.WaitCondition == "networkidle" {
		args = append(args, fmt.Sprintf("--virtual-time-budget=%d", networkIdleBudgetMS))
	}
	return append(args, "file://"+in)
}

// injectPrintCSS adds the page size, zero margins and background printing rules
// to the document head, or prepends them when the document has no head.
func injectPrintCSS(doc string, opts Options) string {
	var css strings.Builder
	css.WriteString("<style>@page { size: ")
	css.WriteString(pageSizeOrDefault(opts.PageSize))
	css.WriteString("; margin: 0; }")
	if opts.PrintBackground {
		css.WriteString(" html, body { -webkit-print-color-adjust: exact; print-color-adjust: exact; }")
	}
	css.WriteString("</style>")

	if at := headContentOffset(doc); at >= 0 {
		return doc[:at] + css.String() + doc[at:]
	}
	return css.String() + doc
}

// headContentOffset returns the byte offset just past the <head> start tag,
// or -1 when the document has no explicit head before its body.
func headContentOffset(doc string) int {
	z := html.NewTokenizer(strings.NewReader(doc))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return -1
		}
		offset += len(z.Raw())
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		switch name, _ := z.TagName(); string(name) {
		case "head":
			return offset
		case "body":
			return -1
		}
	}
}

func pageSizeOrDefault(size string) string {
	if size == "" {
		return "A4"
	}
	return size
}
