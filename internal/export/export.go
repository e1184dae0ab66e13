// Package export renders markdown documents for download.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"mdvault/internal/mdv"
)

const (
	FormatHTML = "html"
	FormatPDF  = "pdf"

	ThemeLight = "light"
	ThemeDark  = "dark"

	// DefaultTitle is used when a request carries no title.
	DefaultTitle = "Markdown Document"
)

// ErrPDFUnavailable is returned for PDF exports. It wraps
// mdv.ErrInvalidArgument so callers report it as a bad request.
var ErrPDFUnavailable = fmt.Errorf("%w: pdf export is not available on this server", mdv.ErrInvalidArgument)

// Options tune an export. A nil Standalone means true.
type Options struct {
	Standalone *bool  `json:"standalone"`
	IncludeTOC bool   `json:"include_toc"`
	Theme      string `json:"theme"`
}

// Document is a rendered export.
type Document struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Exporter converts markdown to HTML with goldmark.
type Exporter struct {
	md    goldmark.Markdown
	clock mdv.Clock
}

// NewExporter creates an Exporter. clock stamps standalone documents.
func NewExporter(clock mdv.Clock) *Exporter {
	return &Exporter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		clock: clock,
	}
}

// Export renders content in the given format. An empty format means HTML
// and an empty title means DefaultTitle.
func (e *Exporter) Export(content, title, format string, opts Options) (*Document, error) {
	if title == "" {
		title = DefaultTitle
	}
	switch f := strings.ToLower(format); f {
	case "", FormatHTML:
		data, err := e.HTML(content, title, opts)
		if err != nil {
			return nil, err
		}
		return &Document{Data: data, ContentType: "text/html; charset=utf-8", Filename: title + ".html"}, nil
	case FormatPDF:
		return nil, ErrPDFUnavailable
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q, supported formats: html, pdf", mdv.ErrInvalidArgument, f)
	}
}

type tocEntry struct {
	Level int
	ID    string
	Text  string
}

type pageData struct {
	Title      string
	Theme      string
	CSS        template.CSS
	TOC        []tocEntry
	Body       template.HTML
	ExportedAt string
}

// HTML renders content as an HTML document, or as a bare fragment when
// opts.Standalone is false. Raw HTML in the markdown is not passed through.
func (e *Exporter) HTML(content, title string, opts Options) ([]byte, error) {
	theme := opts.Theme
	if theme == "" {
		theme = ThemeLight
	}
	if theme != ThemeLight && theme != ThemeDark {
		return nil, fmt.Errorf("%w: unknown theme %q", mdv.ErrInvalidArgument, theme)
	}

	src := []byte(content)
	doc := e.md.Parser().Parse(text.NewReader(src))

	var body bytes.Buffer
	if err := e.md.Renderer().Render(&body, src, doc); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}

	var toc []tocEntry
	if opts.IncludeTOC {
		toc = headings(doc, src)
	}

	var out bytes.Buffer
	if opts.Standalone != nil && !*opts.Standalone {
		if len(toc) > 0 {
			if err := pages.ExecuteTemplate(&out, "toc", toc); err != nil {
				return nil, fmt.Errorf("rendering table of contents: %w", err)
			}
		}
		out.Write(body.Bytes())
		return out.Bytes(), nil
	}

	css := baseCSS
	if theme == ThemeDark {
		css += darkCSS
	}
	data := pageData{
		Title:      title,
		Theme:      theme,
		CSS:        template.CSS(css),
		TOC:        toc,
		Body:       template.HTML(body.String()),
		ExportedAt: e.clock.Now().Format("2006-01-02 15:04:05"),
	}
	if err := pages.ExecuteTemplate(&out, "page", data); err != nil {
		return nil, fmt.Errorf("rendering document: %w", err)
	}
	return out.Bytes(), nil
}

// headings lists the headings of doc in document order with the ids the
// parser assigned them.
func headings(doc ast.Node, src []byte) []tocEntry {
	var out []tocEntry
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		entry := tocEntry{Level: h.Level, Text: nodeText(h, src)}
		if id, ok := h.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				entry.ID = string(b)
			}
		}
		out = append(out, entry)
		return ast.WalkSkipChildren, nil
	})
	return out
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
