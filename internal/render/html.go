// Package render turns documentation markdown into HTML for the web portal
// and into styled text for the terminal.
package render

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/Paintersrp/portal/internal/frontmatter"
)

// CodeStyle is the chroma style fenced code blocks are highlighted with.
const CodeStyle = "github"

// Heading is one entry of a page's table of contents.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// Page is a rendered document.
type Page struct {
	HTML     string
	Headings []Heading
	Metadata frontmatter.Metadata
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(util.Prioritized(newCodeRenderer(CodeStyle), 200)),
		),
	)
}

// Render strips the front matter of raw and renders the body. Headings are
// collected from levels 2 and 3, the levels shown in a table of contents.
func Render(raw string) (Page, error) {
	doc := frontmatter.Split(raw)
	source := []byte(doc.Content)

	md := newMarkdown()
	root := md.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, source, root); err != nil {
		return Page{}, err
	}

	return Page{
		HTML:     buf.String(),
		Headings: collectHeadings(root, source, 2, 3),
		Metadata: doc.Metadata,
	}, nil
}

// HTML renders raw markdown to an HTML fragment.
func HTML(raw string) (string, error) {
	page, err := Render(raw)
	if err != nil {
		return "", err
	}
	return page.HTML, nil
}

// Headings returns every heading of raw, in document order.
func Headings(raw string) []Heading {
	source := []byte(frontmatter.Split(raw).Content)
	root := newMarkdown().Parser().Parse(text.NewReader(source))
	return collectHeadings(root, source, 1, 6)
}

func collectHeadings(root ast.Node, source []byte, minLevel, maxLevel int) []Heading {
	headings := make([]Heading, 0)
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Level < minLevel || h.Level > maxLevel {
			return ast.WalkSkipChildren, nil
		}

		var id string
		if v, ok := h.AttributeString("id"); ok {
			if b, ok := v.([]byte); ok {
				id = string(b)
			}
		}
		headings = append(headings, Heading{
			Level: h.Level,
			Text:  strings.TrimSpace(string(h.Text(source))),
			ID:    id,
		})
		return ast.WalkSkipChildren, nil
	})
	return headings
}

// codeRenderer highlights fenced code blocks with chroma using inline styles.
type codeRenderer struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func newCodeRenderer(style string) *codeRenderer {
	return &codeRenderer{
		style:     styles.Get(style),
		formatter: chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4)),
	}
}

func (r *codeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCode)
}

func (r *codeRenderer) renderFencedCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	n := node.(*ast.FencedCodeBlock)
	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	lang := string(n.Language(source))
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code.String())
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	it, err := chroma.Coalesce(lexer).Tokenise(nil, code.String())
	if err == nil {
		err = r.formatter.Format(w, r.style, it)
	}
	if err != nil {
		_, _ = w.WriteString("<pre><code>")
		template.HTMLEscape(w, code.Bytes())
		_, _ = w.WriteString("</code></pre>\n")
	}
	return ast.WalkSkipChildren, nil
}
