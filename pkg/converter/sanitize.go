package converter

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// removedElements are dropped together with their content.
var removedElements = map[string]bool{
	"script": true,
	"style":  true,
	"meta":   true,
	"link":   true,
	"title":  true,
	"base":   true,
	"object": true,
	"embed":  true,
}

// keptAttributes survive when attribute stripping is on.
var keptAttributes = map[string]bool{
	"href":    true,
	"src":     true,
	"alt":     true,
	"title":   true,
	"colspan": true,
	"rowspan": true,
}

var documentRegex = regexp.MustCompile(`(?i)<(?:!doctype|html|body)[\s>]`)

// parseInput parses a full document when input has a doctype, html or body
// tag and returns the body's children, leaving head content behind. Anything
// else is parsed as a fragment.
func parseInput(input string) ([]*html.Node, error) {
	if !documentRegex.MatchString(input) {
		return parseFragment(input)
	}
	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	body := findElement(doc, atom.Body)
	if body == nil {
		return nil, nil
	}
	var nodes []*html.Node
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		nodes = append(nodes, c)
	}
	return nodes, nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// parseFragment parses input as the content of a body element. The parser
// repairs malformed markup, so an error here means the input could not be
// read at all.
func parseFragment(input string) ([]*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(input), bodyNode())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return nodes, nil
}

func bodyNode() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// sanitize copies nodes under a fresh body element, leaving out disallowed
// elements, event handler attributes and iframes from hosts outside the
// allowlist. The input nodes are only read.
func (cv *conversion) sanitize(nodes []*html.Node) *html.Node {
	root := bodyNode()
	for _, n := range nodes {
		cv.copyNode(root, n)
	}
	return root
}

func (cv *conversion) copyNode(parent, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		parent.AppendChild(&html.Node{Type: html.TextNode, Data: n.Data})

	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if removedElements[tag] {
			cv.result.Stats.RecordRemoval(tag)
			return
		}
		if tag == "iframe" && !cv.iframeAllowed(n) {
			cv.result.Stats.RecordRemoval(tag)
			cv.result.Stats.IframesRemoved++
			cv.result.AddWarning("sanitize", "iframe removed", attrValue(n, "src"))
			return
		}

		el := &html.Node{
			Type:      html.ElementNode,
			Data:      n.Data,
			DataAtom:  n.DataAtom,
			Namespace: n.Namespace,
			Attr:      cv.filterAttrs(n.Attr),
		}
		parent.AppendChild(el)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			cv.copyNode(el, c)
		}

	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			cv.copyNode(parent, c)
		}

	default:
		// Comments, doctypes and raw nodes carry no content.
	}
}

func (cv *conversion) filterAttrs(attrs []html.Attribute) []html.Attribute {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]html.Attribute, 0, len(attrs))
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if strings.HasPrefix(key, "on") || (cv.opts.StripAttributes && !keptAttributes[key]) {
			cv.result.Stats.AttributesRemoved++
			continue
		}
		out = append(out, a)
	}
	return out
}

// iframeAllowed reports whether the iframe's src host is an allowlisted
// domain or one of its subdomains.
func (cv *conversion) iframeAllowed(n *html.Node) bool {
	host := srcHost(attrValue(n, "src"))
	if host == "" {
		return false
	}
	return hostAllowed(host, cv.opts.AllowlistDomains)
}

func hostAllowed(host string, domains []string) bool {
	host = strings.ToLower(host)
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func srcHost(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
