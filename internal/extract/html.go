package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// skipped elements never contribute text.
var skipped = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"nav": true, "footer": true, "header": true, "aside": true,
	"form": true, "svg": true, "iframe": true, "button": true,
}

// block elements end the current line.
var block = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "main": true, "blockquote": true,
	"ul": true, "ol": true, "table": true, "figcaption": true, "dd": true, "dt": true,
}

type matcher func(*html.Node) bool

func parseHTML(body []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(body))
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func byTag(tag string) matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func byID(id string) matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == id
	}
}

// byClass matches "tag.class"; an empty tag matches any element.
func byClass(tag, class string) matcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode || (tag != "" && n.Data != tag) {
			return false
		}
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	}
}

func findFirst(n *html.Node, match matcher) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// findAny returns the first node matched by the earliest matcher that hits.
func findAny(root *html.Node, matchers ...matcher) *html.Node {
	for _, m := range matchers {
		if n := findFirst(root, m); n != nil {
			return n
		}
	}
	return nil
}

// metaContent returns the content of <meta property|name=key>.
func metaContent(root *html.Node, key string) string {
	n := findFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "meta" &&
			(attr(n, "property") == key || attr(n, "name") == key)
	})
	if n == nil {
		return ""
	}
	return strings.TrimSpace(attr(n, "content"))
}

// inlineText returns the whitespace-collapsed text of n on one line.
func inlineText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

// blockText renders n as readable text with one line per block element.
func blockText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var lines []string
	var cur strings.Builder
	flush := func() {
		if line := strings.Join(strings.Fields(cur.String()), " "); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipped[n.Data] {
				return
			}
			if block[n.Data] {
				flush()
				defer flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	flush()
	return strings.Join(lines, "\n")
}
