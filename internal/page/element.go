package page

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Element is a read-only handle to a parsed element.
type Element struct {
	node *html.Node
}

// Tag returns the lowercase tag name.
func (e Element) Tag() string { return e.node.Data }

// Attr returns the value of the named attribute and whether it is present.
func (e Element) Attr(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrValue returns the attribute value or "" when absent.
func (e Element) AttrValue(name string) string {
	v, _ := e.Attr(name)
	return v
}

// HasAttr reports whether the attribute is present, even if empty.
func (e Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// Text returns the concatenated text content of the element.
func (e Element) Text() string {
	var buf bytes.Buffer
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
	return buf.String()
}

// OuterHTML serializes the element and its subtree.
func (e Element) OuterHTML() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.node); err != nil {
		return ""
	}
	return buf.String()
}

// Descendants returns nested elements, filtered by tag when tags are given.
func (e Element) Descendants(tags ...string) []Element {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[strings.ToLower(t)] = true
	}
	var out []Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (len(want) == 0 || want[c.Data]) {
				out = append(out, Element{node: c})
			}
			walk(c)
		}
	}
	walk(e.node)
	return out
}
