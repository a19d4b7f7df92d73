package view

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func class(val string) html.Attribute {
	return attr("class", val)
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// textElement builds <a attrs...>s</a>.
func textElement(a atom.Atom, s string, attrs ...html.Attribute) *html.Node {
	n := element(a, attrs...)
	n.AppendChild(text(s))
	return n
}

func appendChildren(parent *html.Node, children ...*html.Node) *html.Node {
	for _, c := range children {
		if c != nil {
			parent.AppendChild(c)
		}
	}
	return parent
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// setText replaces the children of n with a single text node.
func setText(n *html.Node, s string) {
	removeChildren(n)
	n.AppendChild(text(s))
}

// TextContent concatenates all text below n, like the DOM property of the
// same name.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Attr returns the value of key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasClass reports whether n carries class c.
func HasClass(n *html.Node, c string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, f := range strings.Fields(v) {
		if f == c {
			return true
		}
	}
	return false
}

// FindAll returns every element below (and including) n that matches.
func FindAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// ByAtom matches elements of one tag.
func ByAtom(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.DataAtom == a }
}

// ByClass matches elements carrying class c.
func ByClass(c string) func(*html.Node) bool {
	return func(n *html.Node) bool { return HasClass(n, c) }
}
