package view

import (
	"context"
	"io"
	"log/slog"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"sepdemo/internal/manifest"
)

// Stylesheet is the href of the embedded page stylesheet.
const Stylesheet = "static/style.css"

// Page is the document shell the builder's sections are attached to.
// Load and Render must not be called concurrently with each other; prompt
// tasks may patch the tree at any time.
type Page struct {
	doc     *html.Node
	body    *html.Node
	main    *html.Node
	builder *Builder
	logger  *slog.Logger

	categories int
	samples    int
}

// NewPage builds an empty document titled title.
func NewPage(title string, b *Builder, logger *slog.Logger) *Page {
	if logger == nil {
		logger = slog.Default()
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	head := appendChildren(element(atom.Head),
		element(atom.Meta, attr("charset", "utf-8")),
		element(atom.Meta, attr("name", "viewport"), attr("content", "width=device-width, initial-scale=1.0")),
		textElement(atom.Title, title),
		element(atom.Link, attr("rel", "stylesheet"), attr("href", Stylesheet)),
	)

	header := appendChildren(element(atom.Header, class("page-header")),
		textElement(atom.H1, title),
	)
	main := element(atom.Main)
	body := appendChildren(element(atom.Body), header, main)

	doc.AppendChild(appendChildren(element(atom.Html, attr("lang", "en")), head, body))

	return &Page{
		doc:     doc,
		body:    body,
		main:    main,
		builder: b,
		logger:  logger,
	}
}

// Main returns the main content element.
func (p *Page) Main() *html.Node {
	return p.main
}

// Document returns the document root.
func (p *Page) Document() *html.Node {
	return p.doc
}

// Counts reports how many category sections and sample subsections have been
// appended so far.
func (p *Page) Counts() (categories, samples int) {
	return p.categories, p.samples
}

// Load fetches the categories and appends one section per category to main.
// Calling it again appends another copy. On failure main is replaced by a
// single error block and the error is returned.
func (p *Page) Load(ctx context.Context, src manifest.Source) error {
	cats, err := src.LoadCategories(ctx)

	p.builder.Tasks().Exclusive(func() {
		if err != nil {
			removeChildren(p.main)
			p.main.AppendChild(ErrorBlock())
			p.categories, p.samples = 0, 0
			return
		}

		if p.builder.opts.Sidebar {
			p.body.InsertBefore(p.builder.BuildSidebar(cats), p.main)
		}
		for _, c := range cats {
			p.main.AppendChild(p.builder.BuildCategorySection(c))
			p.categories++
			p.samples += len(c.UIDs)
		}
	})

	if err != nil {
		p.logger.Error("error loading samples", "err", err)
		return err
	}
	return nil
}

// Render serializes the document.
func (p *Page) Render(w io.Writer) error {
	var err error
	p.builder.Tasks().Exclusive(func() {
		err = html.Render(w, p.doc)
	})
	return err
}
