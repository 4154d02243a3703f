package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// LabelSibling matches "<span>Label</span><span>Value</span>" style layouts in
// spans, table cells and generic containers.
var LabelSibling = Strategy{
	Name: "label_sibling",
	Find: func(doc *goquery.Document, label string) (string, error) {
		el := first(doc.Find("span, td, th, div"), func(s *goquery.Selection) bool {
			return strings.TrimSpace(s.Text()) == label
		})
		if el == nil {
			return "", ErrNoMatch
		}
		return nonEmpty(el.Next().Text())
	},
}

// EmphasizedLabel matches "<li><strong>Label</strong> Value</li>".
var EmphasizedLabel = Strategy{
	Name: "emphasized_label",
	Find: func(doc *goquery.Document, label string) (string, error) {
		el := first(doc.Find("strong, b"), func(s *goquery.Selection) bool {
			return strings.TrimSpace(s.Text()) == label
		})
		if el == nil {
			return "", ErrNoMatch
		}
		parent := el.Parent()
		if parent.Length() == 0 {
			return "", ErrNoMatch
		}
		text := strings.ReplaceAll(joinedText(parent.Get(0)), label, "")
		return nonEmpty(strings.TrimLeft(strings.TrimSpace(text), ": "))
	},
}

// SubstringSplit takes whatever follows the label inside the first text node
// that contains it. It also fires on unrelated prose that happens to mention
// the label.
var SubstringSplit = Strategy{
	Name: "substring_split",
	Find: func(doc *goquery.Document, label string) (string, error) {
		var data string
		found := false
		walkText(doc.Selection.Nodes, func(text string) bool {
			if strings.Contains(text, label) {
				data, found = text, true
				return false
			}
			return true
		})
		if !found {
			return "", ErrNoMatch
		}
		parts := strings.Split(data, label)
		if len(parts) < 2 {
			return "", ErrNoMatch
		}
		return nonEmpty(strings.Trim(strings.TrimSpace(parts[1]), ": "))
	},
}

// SpanSibling is the Dubizzle fast path: a span whose own string is exactly
// the label, followed by a span holding the value.
var SpanSibling = Strategy{
	Name: "span_sibling",
	Find: func(doc *goquery.Document, label string) (string, error) {
		el := first(doc.Find("span"), func(s *goquery.Selection) bool {
			own, ok := ownString(s.Get(0))
			return ok && strings.TrimSpace(own) == label
		})
		if el == nil {
			return "", ErrNoMatch
		}
		return nonEmpty(el.NextAllFiltered("span").First().Text())
	},
}

// ParagraphSibling is the OpenSooq fast path: a <p> label followed by the
// value in its next element sibling.
var ParagraphSibling = Strategy{
	Name: "paragraph_sibling",
	Find: func(doc *goquery.Document, label string) (string, error) {
		el := first(doc.Find("p"), func(s *goquery.Selection) bool {
			own, ok := ownString(s.Get(0))
			return ok && strings.TrimSpace(own) == label
		})
		if el == nil {
			return "", ErrNoMatch
		}
		return nonEmpty(el.Next().Text())
	},
}

func first(sel *goquery.Selection, pred func(*goquery.Selection) bool) *goquery.Selection {
	var match *goquery.Selection
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if pred(s) {
			match = s
			return false
		}
		return true
	})
	return match
}

func nonEmpty(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrNoMatch
	}
	return s, nil
}

// ownString follows single-child chains down to a text node. Elements with
// several children have no own string.
func ownString(n *html.Node) (string, bool) {
	for n != nil {
		if n.Type == html.TextNode {
			return n.Data, true
		}
		if n.FirstChild == nil || n.FirstChild != n.LastChild {
			return "", false
		}
		n = n.FirstChild
	}
	return "", false
}

// joinedText concatenates the trimmed, non-empty text nodes under n with
// single spaces.
func joinedText(n *html.Node) string {
	var parts []string
	walkText([]*html.Node{n}, func(text string) bool {
		if t := strings.TrimSpace(text); t != "" {
			parts = append(parts, t)
		}
		return true
	})
	return strings.Join(parts, " ")
}

// walkText visits text nodes in document order until visit returns false.
// Script and style bodies are skipped.
func walkText(nodes []*html.Node, visit func(string) bool) bool {
	for _, n := range nodes {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			continue
		}
		if n.Type == html.TextNode {
			if !visit(n.Data) {
				return false
			}
			continue
		}
		var children []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		if !walkText(children, visit) {
			return false
		}
	}
	return true
}
