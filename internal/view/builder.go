// Package view builds the results page as an HTML node tree.
package view

import (
	"context"
	"slices"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"sepdemo/internal/manifest"
)

const (
	audioFallbackText = "Your browser does not support the audio element."
	promptPlaceholder = "Loading prompt..."
)

// Model is one compared separation system, in page order.
type Model struct {
	ID    string // file suffix: {uid}_est_{ID}.wav
	Label string
}

// Options is the fixed presentation configuration of a Builder.
type Options struct {
	AssetBase    string
	Models       []Model
	Spectrograms bool
	Prompts      bool
	Sidebar      bool
}

// PromptSource resolves prompt text for one sample. It must not fail; a
// missing prompt is reported as readable text.
type PromptSource interface {
	LoadPromptText(ctx context.Context, categoryID, uid string) string
}

// Builder turns categories into display nodes. Its options cannot change
// after construction.
type Builder struct {
	opts    Options
	prompts PromptSource
	tasks   *Tasks
	policy  *bluemonday.Policy
}

// NewBuilder constructs a Builder. prompts may be nil when opts.Prompts is
// off; tasks may be nil, in which case a private set is created.
func NewBuilder(opts Options, prompts PromptSource, tasks *Tasks) *Builder {
	opts.Models = slices.Clone(opts.Models)
	if opts.AssetBase == "" {
		opts.AssetBase = manifest.DefaultAssetBase
	}
	if tasks == nil {
		tasks = NewTasks(1)
	}
	return &Builder{
		opts:    opts,
		prompts: prompts,
		tasks:   tasks,
		policy:  bluemonday.UGCPolicy(),
	}
}

// Options returns the builder configuration.
func (b *Builder) Options() Options {
	o := b.opts
	o.Models = slices.Clone(o.Models)
	return o
}

// Tasks returns the task set prompt fetches are registered with.
func (b *Builder) Tasks() *Tasks {
	return b.tasks
}

// BuildCategorySection builds the section for one category with one
// subsection per uid, in manifest order.
func (b *Builder) BuildCategorySection(c manifest.Category) *html.Node {
	headingID := c.ID + "-heading"
	section := element(atom.Section,
		class("example"),
		attr("id", c.ID),
		attr("aria-labelledby", headingID),
	)

	heading := textElement(atom.H2, c.Title, attr("id", headingID))

	description := element(atom.P, class("category-description"))
	appendChildren(description, textElement(atom.Strong, "Description:"), text(" "))
	appendChildren(description, b.descriptionNodes(c.Description)...)

	examples := element(atom.Div, class("category-examples"))
	for _, uid := range c.UIDs {
		examples.AppendChild(b.BuildSampleSection(c.ID, uid))
	}

	return appendChildren(section, heading, description, examples)
}

// descriptionNodes parses the sanitized description as inline markup.
func (b *Builder) descriptionNodes(desc string) []*html.Node {
	clean := b.policy.Sanitize(desc)
	ctx := element(atom.P)
	nodes, err := html.ParseFragment(strings.NewReader(clean), ctx)
	if err != nil {
		return []*html.Node{text(desc)}
	}
	return nodes
}

// BuildSampleSection builds the subsection for one sample. With prompts
// enabled it starts a task that patches the prompt label once the text
// arrives; it does not wait for it.
func (b *Builder) BuildSampleSection(categoryID, uid string) *html.Node {
	section := element(atom.Div, class("example-subsection"), attr("data-uid", uid))
	section.AppendChild(textElement(atom.H3, "Sample "+uid, class("example-title")))

	if b.opts.Prompts {
		section.AppendChild(b.promptLabel(categoryID, uid))
	}

	mixture := b.audioItem("audio-container", categoryID, uid, "mix", "Input Mixture", "input mixture")
	section.AppendChild(mixture)

	grid := element(atom.Div, class("audio-grid"))
	grid.AppendChild(b.audioItem("audio-item", categoryID, uid, "tgt", "Ground Truth", "ground truth"))
	for _, m := range b.opts.Models {
		grid.AppendChild(b.audioItem("audio-item", categoryID, uid, "est_"+m.ID, m.Label+" Output", m.Label+" output"))
	}
	section.AppendChild(grid)

	return section
}

func (b *Builder) promptLabel(categoryID, uid string) *html.Node {
	value := textElement(atom.Span, promptPlaceholder, class("prompt-value"))
	label := appendChildren(element(atom.P, class("prompt-text")),
		textElement(atom.Strong, "Prompt:"),
		text(" "),
		value,
	)

	if b.prompts == nil {
		setText(value, manifest.PromptFallback)
		return label
	}

	prompts := b.prompts
	b.tasks.Start(value,
		func(ctx context.Context) string {
			return prompts.LoadPromptText(ctx, categoryID, uid)
		},
		func(s string) {
			setText(value, s)
		},
	)
	return label
}

// audioItem builds a labelled player and, when enabled, its spectrogram.
func (b *Builder) audioItem(containerClass, categoryID, uid, suffix, label, altLabel string) *html.Node {
	container := element(atom.Div, class(containerClass))
	container.AppendChild(textElement(atom.H4, label, class("audio-label")))

	player := element(atom.Audio,
		attr("controls", ""),
		attr("preload", "none"),
		class("audio-player"),
	)
	appendChildren(player,
		element(atom.Source,
			attr("src", manifest.AssetPath(b.opts.AssetBase, categoryID, uid, suffix, "wav")),
			attr("type", "audio/wav"),
		),
		text(audioFallbackText),
	)
	container.AppendChild(player)

	if b.opts.Spectrograms {
		container.AppendChild(element(atom.Img,
			attr("src", manifest.AssetPath(b.opts.AssetBase, categoryID, uid, suffix, "png")),
			attr("alt", "Spectrogram of "+altLabel+" for sample "+uid),
			attr("loading", "lazy"),
			class("spectrogram"),
		))
	}
	return container
}

// BuildSidebar builds the navigation list linking to each category section.
func (b *Builder) BuildSidebar(cats []manifest.Category) *html.Node {
	nav := element(atom.Nav, class("sidebar"), attr("aria-label", "Categories"))
	list := element(atom.Ul)
	for _, c := range cats {
		link := textElement(atom.A, c.Title, attr("href", "#"+c.ID))
		list.AppendChild(appendChildren(element(atom.Li), link))
	}
	return appendChildren(nav, list)
}

// ErrorBlock is shown in place of all content when the manifest cannot be
// loaded.
func ErrorBlock() *html.Node {
	return appendChildren(element(atom.Section, class("example load-error")),
		textElement(atom.H2, "Error Loading Samples"),
		textElement(atom.P, "Unable to load audio samples. Please check the server log for more details."),
	)
}
