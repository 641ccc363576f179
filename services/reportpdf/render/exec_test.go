package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectPrintCSS(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		opts     Options
		contains []string
		absent   []string
		prefix   string
	}{
		{
			name:     "Inserted after head",
			html:     `<html><HEAD lang="en"><title>x</title></HEAD><body>OK</body></html>`,
			opts:     Options{PageSize: "Letter", PrintBackground: true},
			contains: []string{`<HEAD lang="en"><style>@page { size: Letter; margin: 0; }`, "print-color-adjust: exact"},
		},
		{
			name:   "Prepended without head",
			html:   `<p>OK</p>`,
			opts:   Options{PageSize: "A3"},
			prefix: "<style>@page { size: A3; margin: 0; }</style>",
			absent: []string{"print-color-adjust"},
		},
		{
			name:   "Header element is not a head",
			html:   `<header><h1>Uptime</h1></header><p>OK</p>`,
			opts:   Options{PageSize: "A4"},
			prefix: "<style>@page { size: A4; margin: 0; }</style><header><h1>Uptime</h1></header>",
			absent: []string{"<header><style>"},
		},
		{
			name:     "Head found after header-like comment",
			html:     `<!-- <header> --><html><head><title>x</title></head><body><header>h</header></body></html>`,
			opts:     Options{PageSize: "A5"},
			contains: []string{`<head><style>@page { size: A5; margin: 0; }</style><title>`},
			absent:   []string{"<header><style>"},
		},
		{
			name:   "Default page size",
			html:   `<p>OK</p>`,
			prefix: "<style>@page { size: A4;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := injectPrintCSS(tt.html, tt.opts)
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, got, s)
			}
			if tt.prefix != "" {
				assert.True(t, strings.HasPrefix(got, tt.prefix), got)
			}
		})
	}
}

func TestChromium_Render(t *testing.T) {
	c := NewChromium("/opt/chromium", t.TempDir())

	var gotName string
	var gotArgs []string
	c.run = func(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
		gotName, gotArgs = name, args
		page := strings.TrimPrefix(args[len(args)-1], "file://")
		html, err := os.ReadFile(page)
		require.NoError(t, err)
		assert.Contains(t, string(html), "@page { size: A5;")

		for _, a := range args {
			if out, ok := strings.CutPrefix(a, "--print-to-pdf="); ok {
				return nil, os.WriteFile(out, []byte("%PDF-1.7"), 0600)
			}
		}
		t.Fatal("missing --print-to-pdf")
		return nil, nil
	}

	pdf, err := c.Render(context.Background(), "<html><head></head><body>OK</body></html>", Options{PageSize: "A5", WaitCondition: "networkidle"})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), pdf)
	assert.Equal(t, "/opt/chromium", gotName)
	assert.Contains(t, gotArgs, "--no-sandbox")
	assert.Contains(t, gotArgs, "--single-process")
	assert.Contains(t, gotArgs, "--virtual-time-budget=10000")

	// scratch directory is removed afterwards
	entries, err := os.ReadDir(c.tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestChromium_MissingOutput(t *testing.T) {
	c := NewChromium("", t.TempDir())
	c.run = func(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
		return nil, nil
	}

	_, err := c.Render(context.Background(), "<p>x</p>", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading printed pdf")
	assert.Equal(t, "chromium", c.path)
}

func TestWkhtmltopdf_Render(t *testing.T) {
	w := NewWkhtmltopdf("")

	var gotArgs []string
	var gotStdin []byte
	w.run = func(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
		gotArgs, gotStdin = args, stdin
		return []byte("%PDF-1.4"), nil
	}

	pdf, err := w.Render(context.Background(), "<p>OK</p>", Options{PageSize: "Legal", PrintBackground: false})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), pdf)
	assert.Equal(t, "<p>OK</p>", string(gotStdin))
	assert.Contains(t, strings.Join(gotArgs, " "), "--page-size Legal")
	assert.Contains(t, gotArgs, "--no-background")
	assert.NotContains(t, gotArgs, "--javascript-delay")
	assert.Equal(t, []string{"-", "-"}, gotArgs[len(gotArgs)-2:])
}

func TestExecCommand_ReportsStderr(t *testing.T) {
	sh, err := execLookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	_, err = execCommand(context.Background(), sh, []string{"-c", "echo boom >&2; exit 3"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "boom")

	out, err := execCommand(context.Background(), sh, []string{"-c", "cat"}, []byte("piped"))
	require.NoError(t, err)
	assert.Equal(t, "piped", string(out))
}

func execLookPath(name string) (string, error) {
	for _, dir := range []string{"/bin", "/usr/bin"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", os.ErrNotExist
}
