package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FPDF typesets the visible text of a document without any external binary.
// Layout and styling are not preserved; headings, paragraphs and table rows are.
type FPDF struct{}

// NewFPDF creates a pure-Go text renderer
func NewFPDF() *FPDF {
	return &FPDF{}
}

func (f *FPDF) Name() string { return "fpdf" }

func (f *FPDF) Render(ctx context.Context, doc string, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	title, blocks, err := extractBlocks(doc)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	pdf := fpdf.New("P", "mm", pageSizeOrDefault(opts.PageSize), "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	if title != "" {
		pdf.SetTitle(title, true)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	for _, b := range blocks {
		switch {
		case b.level == 1:
			pdf.SetFont("Helvetica", "B", 16)
			pdf.MultiCell(0, 8, tr(b.text), "", "L", false)
			pdf.Ln(2)
		case b.level > 1:
			pdf.SetFont("Helvetica", "B", 12)
			pdf.MultiCell(0, 6, tr(b.text), "", "L", false)
			pdf.Ln(1)
		case b.row:
			pdf.SetFont("Courier", "", 9)
			pdf.MultiCell(0, 5, tr(b.text), "B", "L", false)
		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(b.text), "", "L", false)
			pdf.Ln(1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type block struct {
	level int // 1-6 for headings, 0 for body text
	row   bool
	text  string
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Main: true, atom.Nav: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.Table: true, atom.Thead: true, atom.Tbody: true, atom.Tfoot: true, atom.Caption: true,
	atom.Pre: true, atom.Blockquote: true, atom.Figure: true, atom.Figcaption: true, atom.Hr: true,
}

var skippedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true,
	atom.Svg: true, atom.Iframe: true,
}

// extractBlocks returns the document title and its visible text split into blocks
func extractBlocks(doc string) (string, []block, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", nil, err
	}

	e := &extractor{}
	e.walk(root)
	e.flush(0)
	return e.title, e.blocks, nil
}

type extractor struct {
	title  string
	blocks []block
	buf    strings.Builder
}

func (e *extractor) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		e.buf.WriteString(n.Data)
		return
	case html.ElementNode:
		if skippedElements[n.DataAtom] {
			return
		}
		switch {
		case n.DataAtom == atom.Title:
			e.title = textOf(n)
			return
		case n.DataAtom == atom.Br:
			e.flush(0)
			return
		case n.DataAtom == atom.Tr:
			e.flush(0)
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.DataAtom == atom.Td || c.DataAtom == atom.Th {
					cells = append(cells, textOf(c))
				}
			}
			if text := strings.Join(cells, " | "); strings.Trim(text, " |") != "" {
				e.blocks = append(e.blocks, block{row: true, text: text})
			}
			return
		case headingLevels[n.DataAtom] > 0:
			e.flush(0)
			e.children(n)
			e.flush(headingLevels[n.DataAtom])
			return
		case blockElements[n.DataAtom]:
			e.flush(0)
			e.children(n)
			e.flush(0)
			return
		}
	}
	e.children(n)
}

func (e *extractor) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		e.walk(c)
	}
}

func (e *extractor) flush(level int) {
	text := collapse(e.buf.String())
	e.buf.Reset()
	if text != "" {
		e.blocks = append(e.blocks, block{level: level, text: text})
	}
}

// textOf returns the collapsed visible text below n
func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapse(sb.String())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
