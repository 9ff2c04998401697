package content

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	calloutStyle      = "border-top: 3px solid #E3120B; background: #F9FAFB; padding: 1.5rem; margin: 2rem 0;"
	contentsHeadStyle = "color: #111827; margin-top: 0; margin-bottom: 1rem; font-family: var(--font-serif); font-size: 1.1rem; font-weight: 700;"
	contentsListStyle = "margin: 0; padding-left: 1.5rem; line-height: 1.6; color: #374151;"
	contentsItemStyle = "margin: 0.5rem 0;"
	guestLabelStyle   = "color: #E3120B; font-family: var(--font-sans); font-weight: 700; text-transform: uppercase; font-size: 0.75rem; letter-spacing: 0.05em; display: block; margin-bottom: 0.5rem;"
	guestValueStyle   = "font-family: var(--font-serif); font-size: 1.1rem; color: #111827;"
	keyQuoteStyle     = "background: #FEF2F2; border: 1px solid #FECACA; padding: 2rem; margin: 2rem 0; text-align: center;"
	keyQuoteMarkStyle = "color: #E3120B; font-size: 2rem; line-height: 1; margin-bottom: 1rem; font-family: var(--font-serif);"
	keyQuoteTextStyle = "font-family: var(--font-serif); font-size: 1.25rem; font-style: italic; color: #111827; line-height: 1.4;"
	separatorStyle    = "border: none; border-top: 1px solid #E5E7EB; margin: 2rem 0;"
	pullQuoteStyle    = "border-left: 4px solid #E3120B; background: linear-gradient(to right, #FEF2F2, #FFFFFF); padding: 1.25rem 1.5rem; margin: 1.5rem 0; font-style: italic; font-size: 1.1rem; color: #1F2937; line-height: 1.6;"
	pullQuoteMarkL    = "color: #E3120B; font-size: 1.5rem; font-weight: bold; line-height: 1; margin-right: 0.25rem;"
	pullQuoteMarkR    = "color: #E3120B; font-size: 1.5rem; font-weight: bold; line-height: 1; margin-left: 0.25rem;"
)

const (
	labelContents = "Contents Covered:"
	labelGuest    = "Guest:"
	labelKeyQuote = "Key Quote:"
	labelAnalysis = "Detailed Analysis:"
)

var ordinalPrefix = regexp.MustCompile(`^\d+\.\s*`)

// Renderer converts episode markdown into styled HTML. A Renderer holds no
// per-call state and may be shared between goroutines.
type Renderer struct {
	md     goldmark.Markdown
	stages []func(*goquery.Selection)
}

// NewRenderer builds a renderer with GitHub flavoured markdown enabled and
// raw HTML passed through untouched. Episode bodies are curated content.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		// Order matters: later stages match markup produced by earlier ones.
		stages: []func(*goquery.Selection){
			formatContentsCovered,
			formatGuest,
			formatKeyQuote,
			dropDetailedAnalysis,
			assignHeadingIDs,
			separateSections,
			formatPullQuotes,
		},
	}
}

// Render converts source markdown to HTML and applies the section
// enrichments. Rendering is meant for markdown input only; running it over
// its own output adds a second set of separators.
func (r *Renderer) Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}

	root, err := parseFragment(&buf)
	if err != nil {
		return "", fmt.Errorf("parse rendered html: %w", err)
	}

	doc := goquery.NewDocumentFromNode(root)
	for _, stage := range r.stages {
		stage(doc.Selection)
	}

	var out bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := xhtml.Render(&out, c); err != nil {
			return "", fmt.Errorf("serialize html: %w", err)
		}
	}
	return out.String(), nil
}

func parseFragment(r io.Reader) (*xhtml.Node, error) {
	body := &xhtml.Node{Type: xhtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := xhtml.ParseFragment(r, body)
	if err != nil {
		return nil, err
	}
	root := &xhtml.Node{Type: xhtml.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

func formatContentsCovered(root *goquery.Selection) {
	root.Find("p").Each(func(_ int, p *goquery.Selection) {
		node := p.Get(0)
		if node.Parent == nil {
			return
		}
		label := leadingLabel(node, labelContents, false)
		if label == nil {
			return
		}

		rest := followingSiblings(label)
		list := newElement(atom.Ol, "", contentsListStyle)

		if allBlank(rest) {
			next := nextElementSibling(node)
			if next == nil || next.DataAtom != atom.Ol {
				return
			}
			moveChildren(next, list)
			next.Parent.RemoveChild(next)
		} else {
			items := contentsItems(contentLines(rest))
			if len(items) == 0 {
				return
			}
			for _, item := range items {
				list.AppendChild(newElement(atom.Li, "", contentsItemStyle, textNode(item)))
			}
		}

		replaceNode(node, newElement(atom.Div, "callout callout-contents", calloutStyle,
			newElement(atom.H3, "", contentsHeadStyle, textNode("Contents Covered")),
			list,
		))
	})
}

// contentsItems prefers "N." numbered lines with the ordinal stripped and
// falls back to every non-empty line when none are numbered.
func contentsItems(lines []string) []string {
	var numbered, plain []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if ordinalPrefix.MatchString(line) {
			if cleaned := strings.TrimSpace(ordinalPrefix.ReplaceAllString(line, "")); cleaned != "" {
				numbered = append(numbered, cleaned)
			}
			continue
		}
		if !strings.EqualFold(line, labelContents) {
			plain = append(plain, line)
		}
	}
	if len(numbered) > 0 {
		return numbered
	}
	return plain
}

// contentLines splits inline content on newlines and <br> elements,
// dropping any other markup.
func contentLines(nodes []*xhtml.Node) []string {
	var lines []string
	var current strings.Builder
	flush := func() {
		lines = append(lines, current.String())
		current.Reset()
	}

	var walk func(n *xhtml.Node)
	walk = func(n *xhtml.Node) {
		switch {
		case n.Type == xhtml.TextNode:
			for i, part := range strings.Split(n.Data, "\n") {
				if i > 0 {
					flush()
				}
				current.WriteString(part)
			}
		case n.Type == xhtml.ElementNode && n.DataAtom == atom.Br:
			flush()
		default:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
	}

	for _, n := range nodes {
		walk(n)
	}
	flush()
	return lines
}

func formatGuest(root *goquery.Selection) {
	root.Find("p").Each(func(_ int, p *goquery.Selection) {
		node := p.Get(0)
		if node.Parent == nil {
			return
		}
		label := leadingLabel(node, labelGuest, false)
		if label == nil {
			return
		}

		var value strings.Builder
		for _, n := range followingSiblings(label) {
			if n.Type != xhtml.TextNode {
				return
			}
			value.WriteString(n.Data)
		}

		replaceNode(node, newElement(atom.Div, "callout callout-guest", calloutStyle,
			newElement(atom.Span, "", guestLabelStyle, textNode("Guest")),
			newElement(atom.Div, "", guestValueStyle, textNode(strings.TrimSpace(value.String()))),
		))
	})
}

func formatKeyQuote(root *goquery.Selection) {
	root.Find("p").Each(func(_ int, p *goquery.Selection) {
		node := p.Get(0)
		if node.Parent == nil {
			return
		}
		label := leadingLabel(node, labelKeyQuote, true)
		if label == nil {
			return
		}

		quote := newElement(atom.Div, "", keyQuoteTextStyle)
		flattenQuote(followingSiblings(label), quote)
		trimEdges(quote)

		replaceNode(node, newElement(atom.Div, "key-quote", keyQuoteStyle,
			newElement(atom.Div, "", keyQuoteMarkStyle, textNode("“")),
			quote,
		))
	})
}

// flattenQuote moves nodes into dst, unwrapping emphasis, turning line
// breaks into spaces and dropping literal "***" runs.
func flattenQuote(nodes []*xhtml.Node, dst *xhtml.Node) {
	for _, n := range nodes {
		switch {
		case n.Type == xhtml.TextNode:
			dst.AppendChild(textNode(strings.ReplaceAll(n.Data, "***", "")))
		case n.Type == xhtml.ElementNode && n.DataAtom == atom.Br:
			dst.AppendChild(textNode(" "))
		case n.Type == xhtml.ElementNode && (n.DataAtom == atom.Strong || n.DataAtom == atom.Em):
			flattenQuote(children(n), dst)
		default:
			if n.Parent != nil {
				n.Parent.RemoveChild(n)
			}
			dst.AppendChild(n)
		}
	}
}

func dropDetailedAnalysis(root *goquery.Selection) {
	root.Find("p").Each(func(_ int, p *goquery.Selection) {
		node := p.Get(0)
		if node.Parent == nil {
			return
		}
		label := leadingLabel(node, labelAnalysis, false)
		if label != nil && allBlank(followingSiblings(label)) {
			node.Parent.RemoveChild(node)
		}
	})
}

// assignHeadingIDs gives plain-text <h2> elements the same id that
// ExtractHeadings derives from the markdown source.
func assignHeadingIDs(root *goquery.Selection) {
	root.Find("h2").Each(func(_ int, h *goquery.Selection) {
		node := h.Get(0)
		if len(node.Attr) > 0 || node.FirstChild == nil {
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xhtml.TextNode {
				return
			}
		}
		h.SetAttr("id", Slugify(h.Text()))
	})
}

func separateSections(root *goquery.Selection) {
	root.Find("h2").Each(func(_ int, h *goquery.Selection) {
		node := h.Get(0)
		if node.Parent == nil {
			return
		}
		node.Parent.InsertBefore(newElement(atom.Hr, "section-rule", separatorStyle), node.NextSibling)
	})
}

func formatPullQuotes(root *goquery.Selection) {
	root.Find("p").Each(func(_ int, p *goquery.Selection) {
		node := p.Get(0)
		if node.Parent == nil {
			return
		}
		em := onlyChild(node, atom.Em)
		if em == nil {
			return
		}
		strong := onlyChild(em, atom.Strong)
		if strong == nil {
			return
		}

		text, ok := unquote(nodeText(strong))
		if !ok {
			return
		}

		replaceNode(node, newElement(atom.Blockquote, "pull-quote", pullQuoteStyle,
			newElement(atom.Span, "", pullQuoteMarkL, textNode("“")),
			textNode(strings.TrimSpace(text)),
			newElement(atom.Span, "", pullQuoteMarkR, textNode("”")),
		))
	})
}

func unquote(text string) (string, bool) {
	for _, open := range []string{`"`, "“"} {
		if !strings.HasPrefix(text, open) {
			continue
		}
		inner := strings.TrimPrefix(text, open)
		for _, closing := range []string{`"`, "”"} {
			if strings.HasSuffix(inner, closing) {
				return strings.TrimSuffix(inner, closing), true
			}
		}
	}
	return "", false
}

// leadingLabel returns the bold element opening p when its text matches
// label. With italic set, an <em> wrapping the bold label also counts.
func leadingLabel(p *xhtml.Node, label string, italic bool) *xhtml.Node {
	first := firstMeaningfulChild(p)
	if first == nil || first.Type != xhtml.ElementNode {
		return nil
	}

	bold := first
	if italic && first.DataAtom == atom.Em {
		if inner := onlyChild(first, atom.Strong); inner != nil {
			bold = inner
		}
	}
	if bold.DataAtom != atom.Strong {
		return nil
	}
	if !strings.EqualFold(strings.TrimSpace(nodeText(bold)), label) {
		return nil
	}
	return first
}

func onlyChild(n *xhtml.Node, a atom.Atom) *xhtml.Node {
	var found *xhtml.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isBlank(c) {
			continue
		}
		if found != nil || c.Type != xhtml.ElementNode || c.DataAtom != a {
			return nil
		}
		found = c
	}
	return found
}

func firstMeaningfulChild(n *xhtml.Node) *xhtml.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !isBlank(c) {
			return c
		}
	}
	return nil
}

func nextElementSibling(n *xhtml.Node) *xhtml.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if isBlank(s) {
			continue
		}
		if s.Type == xhtml.ElementNode {
			return s
		}
		return nil
	}
	return nil
}

func followingSiblings(n *xhtml.Node) []*xhtml.Node {
	var nodes []*xhtml.Node
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		nodes = append(nodes, s)
	}
	return nodes
}

func children(n *xhtml.Node) []*xhtml.Node {
	var nodes []*xhtml.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		nodes = append(nodes, c)
	}
	return nodes
}

func allBlank(nodes []*xhtml.Node) bool {
	for _, n := range nodes {
		if !isBlank(n) {
			return false
		}
	}
	return true
}

func isBlank(n *xhtml.Node) bool {
	return n.Type == xhtml.CommentNode || (n.Type == xhtml.TextNode && strings.TrimSpace(n.Data) == "")
}

func nodeText(n *xhtml.Node) string {
	return goquery.NewDocumentFromNode(n).Text()
}

func moveChildren(from, to *xhtml.Node) {
	for _, c := range children(from) {
		from.RemoveChild(c)
		to.AppendChild(c)
	}
}

func trimEdges(n *xhtml.Node) {
	for c := n.FirstChild; c != nil && c.Type == xhtml.TextNode; c = c.NextSibling {
		if c.Data = strings.TrimLeft(c.Data, " \t\r\n"); c.Data != "" {
			break
		}
	}
	for c := n.LastChild; c != nil && c.Type == xhtml.TextNode; c = c.PrevSibling {
		if c.Data = strings.TrimRight(c.Data, " \t\r\n"); c.Data != "" {
			break
		}
	}
}

func replaceNode(old, replacement *xhtml.Node) {
	old.Parent.InsertBefore(replacement, old)
	old.Parent.RemoveChild(old)
}

func newElement(a atom.Atom, class, style string, kids ...*xhtml.Node) *xhtml.Node {
	n := &xhtml.Node{Type: xhtml.ElementNode, DataAtom: a, Data: a.String()}
	if class != "" {
		n.Attr = append(n.Attr, xhtml.Attribute{Key: "class", Val: class})
	}
	if style != "" {
		n.Attr = append(n.Attr, xhtml.Attribute{Key: "style", Val: style})
	}
	for _, kid := range kids {
		n.AppendChild(kid)
	}
	return n
}

func textNode(data string) *xhtml.Node {
	return &xhtml.Node{Type: xhtml.TextNode, Data: data}
}
