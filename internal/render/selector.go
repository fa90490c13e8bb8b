package render

import (
	"strings"

	"golang.org/x/net/html"
)

// querySelectorAll returns all element nodes under root matching selector.
// Supported: tag, #id, .class (repeatable), [attr], [attr=val], and
// descendant combinations separated by spaces.
func querySelectorAll(root *html.Node, selector string) []*html.Node {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return nil
	}
	matches := matchSimple(root, parseSimple(parts[0]), false)
	for _, part := range parts[1:] {
		sel := parseSimple(part)
		seen := map[*html.Node]bool{}
		var next []*html.Node
		for _, m := range matches {
			for _, n := range matchSimple(m, sel, true) {
				if !seen[n] {
					seen[n] = true
					next = append(next, n)
				}
			}
		}
		matches = next
	}
	return matches
}

type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrKey string
	attrVal string
	hasVal  bool
}

func parseSimple(sel string) simpleSelector {
	var s simpleSelector
	if i := strings.IndexByte(sel, '['); i >= 0 {
		attr := strings.TrimSuffix(sel[i+1:], "]")
		sel = sel[:i]
		if eq := strings.IndexByte(attr, '='); eq >= 0 {
			s.attrKey = attr[:eq]
			s.attrVal = strings.Trim(attr[eq+1:], `"'`)
			s.hasVal = true
		} else {
			s.attrKey = attr
		}
	}
	if i := strings.IndexByte(sel, '#'); i >= 0 {
		s.id = sel[i+1:]
		sel = sel[:i]
		if j := strings.IndexByte(s.id, '.'); j >= 0 {
			sel += s.id[j:]
			s.id = s.id[:j]
		}
	}
	if i := strings.IndexByte(sel, '.'); i >= 0 {
		s.classes = strings.Split(sel[i+1:], ".")
		sel = sel[:i]
	}
	s.tag = sel
	return s
}

func matchSimple(root *html.Node, s simpleSelector, descendantsOnly bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if matches(n, s) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if descendantsOnly {
		for c := root.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	} else {
		walk(root)
	}
	return out
}

func matches(n *html.Node, s simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	if s.id != "" && attr(n, "id") != s.id {
		return false
	}
	if len(s.classes) > 0 {
		have := strings.Fields(attr(n, "class"))
		for _, want := range s.classes {
			if !contains(have, want) {
				return false
			}
		}
	}
	if s.attrKey != "" {
		v, ok := lookupAttr(n, s.attrKey)
		if !ok || (s.hasVal && v != s.attrVal) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// textContent concatenates the text nodes under n.
func textContent(n *html.Node) string {
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
	return strings.TrimSpace(b.String())
}
