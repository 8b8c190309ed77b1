package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page is the readable content of one HTML document.
type Page struct {
	Title string
	Text  string
	Links []string // Normalised absolute http(s) links, in document order, unique
}

// skipped elements never contribute text.
var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Svg:      true,
	atom.Form:     true,
	atom.Iframe:   true,
	atom.Template: true,
}

// block elements end the current line of text.
var block = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Table: true, atom.Section: true, atom.Article: true, atom.Main: true,
	atom.Blockquote: true, atom.Pre: true, atom.Dd: true, atom.Dt: true, atom.Aside: true,
}

// ParsePage parses HTML, resolving links against base.
func ParsePage(r io.Reader, base *url.URL) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	p := &Page{}
	seen := map[string]bool{}
	var text strings.Builder

	var walk func(n *html.Node, inSkipped bool)
	walk = func(n *html.Node, inSkipped bool) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if p.Title == "" && n.FirstChild != nil {
					p.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case atom.A:
				if link := resolveLink(base, attr(n, "href")); link != "" && !seen[link] {
					seen[link] = true
					p.Links = append(p.Links, link)
				}
			}
			if skipped[n.DataAtom] {
				inSkipped = true
			}
		}

		if n.Type == html.TextNode && !inSkipped {
			if words := strings.Fields(n.Data); len(words) > 0 {
				text.WriteString(strings.Join(words, " "))
				text.WriteByte(' ')
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, inSkipped)
		}

		if n.Type == html.ElementNode && block[n.DataAtom] && !inSkipped {
			text.WriteByte('\n')
		}
	}
	walk(doc, false)

	p.Text = cleanText(text.String())
	return p, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	normalized, err := NormalizeURL(base.ResolveReference(ref).String())
	if err != nil {
		return ""
	}
	return normalized
}

// cleanText collapses whitespace within lines and drops empty lines.
func cleanText(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
