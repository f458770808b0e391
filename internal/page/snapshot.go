package page

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
	"golang.org/x/net/html"
)

// Input is the raw material a snapshot is built from: what a browser tab
// exposes to scripts running inside the document.
type Input struct {
	URL          string `json:"url"`
	HTML         string `json:"html"`
	Cookies      string `json:"cookies,omitempty"`
	Framed       bool   `json:"framed,omitempty"`
	ParentOrigin string `json:"parent_origin,omitempty"`
}

// Cookie is a name/value pair visible through document.cookie.
type Cookie struct {
	Name  string
	Value string
}

// Doctype is the parsed document type declaration.
type Doctype struct {
	Name     string
	PublicID string
	SystemID string
}

// Snapshot is a parsed, read-only view of a loaded page. All accessors
// return copies, so detectors can share one snapshot concurrently.
type Snapshot struct {
	url          *url.URL
	elements     []Element
	comments     []string
	doctype      *Doctype
	cookies      []Cookie
	framed       bool
	parentOrigin string

	outerHTML  string
	scriptText string
	bodyText   string
}

// Parse builds a snapshot from in. Only an unusable URL is rejected; markup
// is parsed leniently the way browsers do.
func Parse(in Input) (*Snapshot, error) {
	u, err := parsePageURL(in.URL)
	if err != nil {
		return nil, err
	}

	root, err := html.Parse(strings.NewReader(in.HTML))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidSnapshot, err)
	}

	s := &Snapshot{
		url:          u,
		cookies:      ParseCookies(in.Cookies),
		framed:       in.Framed,
		parentOrigin: in.ParentOrigin,
	}
	s.index(root)
	return s, nil
}

// CanonicalURL is the form a page URL is stored and looked up under:
// surrounding space trimmed, scheme and host lowercased, and "/" for an
// empty path.
func CanonicalURL(raw string) (string, error) {
	u, err := parsePageURL(raw)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func parsePageURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: url is required", sharedErrors.ErrInvalidSnapshot)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidSnapshot, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: url must be absolute", sharedErrors.ErrInvalidSnapshot)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u, nil
}

func (s *Snapshot) index(root *html.Node) {
	var scripts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			el := Element{node: n}
			s.elements = append(s.elements, el)
			switch n.Data {
			case "script":
				scripts = append(scripts, el.Text())
			case "html":
				s.outerHTML = el.OuterHTML()
			case "body":
				s.bodyText = innerText(n)
			}
		case html.CommentNode:
			s.comments = append(s.comments, n.Data)
		case html.DoctypeNode:
			dt := &Doctype{Name: n.Data}
			for _, a := range n.Attr {
				switch a.Key {
				case "public":
					dt.PublicID = a.Val
				case "system":
					dt.SystemID = a.Val
				}
			}
			s.doctype = dt
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	s.scriptText = strings.Join(scripts, "\n")
}

// URL returns a copy of the page URL.
func (s *Snapshot) URL() *url.URL {
	u := *s.url
	return &u
}

// Href returns the page URL in canonical form.
func (s *Snapshot) Href() string { return s.url.String() }

// IsHTTPS reports whether the page was loaded over TLS.
func (s *Snapshot) IsHTTPS() bool { return strings.EqualFold(s.url.Scheme, "https") }

// Hostname returns the page host without port.
func (s *Snapshot) Hostname() string { return s.url.Hostname() }

// Origin returns scheme://host[:port] of the page.
func (s *Snapshot) Origin() string { return Origin(s.url) }

// Path returns the URL path of the page.
func (s *Snapshot) Path() string { return s.url.Path }

// Query returns a copy of the page's query parameters.
func (s *Snapshot) Query() url.Values {
	return s.url.Query()
}

// Resolve interprets ref relative to the page URL.
func (s *Snapshot) Resolve(ref string) (*url.URL, error) {
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, err
	}
	return s.url.ResolveReference(r), nil
}

// ResolveString returns the absolute form of ref, or ref itself when it
// cannot be parsed.
func (s *Snapshot) ResolveString(ref string) string {
	u, err := s.Resolve(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

// Elements returns elements in document order, filtered by tag when tags
// are given.
func (s *Snapshot) Elements(tags ...string) []Element {
	if len(tags) == 0 {
		out := make([]Element, len(s.elements))
		copy(out, s.elements)
		return out
	}
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[strings.ToLower(t)] = true
	}
	var out []Element
	for _, el := range s.elements {
		if want[el.Tag()] {
			out = append(out, el)
		}
	}
	return out
}

// ElementsWithAttr returns elements carrying any of the given attributes.
func (s *Snapshot) ElementsWithAttr(attrs ...string) []Element {
	var out []Element
	for _, el := range s.elements {
		for _, a := range attrs {
			if el.HasAttr(a) {
				out = append(out, el)
				break
			}
		}
	}
	return out
}

// Scripts returns every script element.
func (s *Snapshot) Scripts() []Element { return s.Elements("script") }

// InlineScripts returns script elements without a src attribute.
func (s *Snapshot) InlineScripts() []Element {
	var out []Element
	for _, el := range s.Scripts() {
		if !el.HasAttr("src") {
			out = append(out, el)
		}
	}
	return out
}

// ExternalScripts returns script elements with a src attribute.
func (s *Snapshot) ExternalScripts() []Element {
	var out []Element
	for _, el := range s.Scripts() {
		if el.HasAttr("src") {
			out = append(out, el)
		}
	}
	return out
}

// ScriptText is the text of every script element joined by newlines.
func (s *Snapshot) ScriptText() string { return s.scriptText }

// HTML is the serialized document element.
func (s *Snapshot) HTML() string { return s.outerHTML }

// BodyText approximates the rendered text of the body.
func (s *Snapshot) BodyText() string { return s.bodyText }

// Comments returns the text of every HTML comment in document order.
func (s *Snapshot) Comments() []string {
	out := make([]string, len(s.comments))
	copy(out, s.comments)
	return out
}

// Doctype returns the document type declaration, if any.
func (s *Snapshot) Doctype() (Doctype, bool) {
	if s.doctype == nil {
		return Doctype{}, false
	}
	return *s.doctype, true
}

// Cookies returns the cookies visible to scripts.
func (s *Snapshot) Cookies() []Cookie {
	out := make([]Cookie, len(s.cookies))
	copy(out, s.cookies)
	return out
}

// Framed reports whether the page was loaded inside a frame.
func (s *Snapshot) Framed() bool { return s.framed }

// ParentOrigin is the framing document's origin when it was readable.
func (s *Snapshot) ParentOrigin() string { return s.parentOrigin }

// MetaHTTPEquiv returns meta elements whose http-equiv matches name,
// ignoring case.
func (s *Snapshot) MetaHTTPEquiv(name string) []Element {
	var out []Element
	for _, el := range s.Elements("meta") {
		if strings.EqualFold(strings.TrimSpace(el.AttrValue("http-equiv")), name) {
			out = append(out, el)
		}
	}
	return out
}

// ParseCookies splits a document.cookie string into pairs.
func ParseCookies(raw string) []Cookie {
	var out []Cookie
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		out = append(out, Cookie{Name: strings.TrimSpace(name), Value: value})
	}
	return out
}

// Origin formats scheme://host of u.
func Origin(u *url.URL) string {
	if u == nil || u.Scheme == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

var skipText = map[string]bool{"script": true, "style": true, "noscript": true, "template": true, "head": true}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "pre": true, "section": true,
	"article": true, "header": true, "footer": true, "table": true, "ul": true, "ol": true,
}

func innerText(n *html.Node) string {
	var buf bytes.Buffer
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipText[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			buf.WriteByte('\n')
		}
	}
	walk(n)
	return buf.String()
}
