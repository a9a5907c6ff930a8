package blocks

import (
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NodeKind is the closed set of element roles the transcoder distinguishes.
type NodeKind string

const (
	NodeParagraph  NodeKind = "paragraph"
	NodeHeading    NodeKind = "heading"
	NodeFigure     NodeKind = "figure"
	NodeBlockquote NodeKind = "blockquote"
	NodeOther      NodeKind = "other"
)

// ContentNode is one direct child of the article body container.
type ContentNode struct {
	Kind  NodeKind
	Tag   string
	Level int // 2, 3 or 4 for headings
	sel   *goquery.Selection
}

// Inner returns the node's inner markup exactly as serialized by the parser.
func (n ContentNode) Inner() (string, error) {
	if n.sel == nil {
		return "", nil
	}
	return n.sel.Html()
}

// Image returns the src and alt of the first image inside the node.
func (n ContentNode) Image() (src, alt string, ok bool) {
	if n.sel == nil {
		return "", "", false
	}
	img := n.sel.Find("img").First()
	if img.Length() == 0 {
		return "", "", false
	}
	return img.AttrOr("src", ""), img.AttrOr("alt", ""), true
}

// ContentNodes walks the direct element children of container in document order.
// The sequence is single-pass: it stops as soon as the consumer does.
func ContentNodes(container *goquery.Selection) iter.Seq[ContentNode] {
	return func(yield func(ContentNode) bool) {
		if container == nil {
			return
		}
		container.Children().EachWithBreak(func(_ int, s *goquery.Selection) bool {
			return yield(classify(s))
		})
	}
}

func classify(s *goquery.Selection) ContentNode {
	tag := strings.ToLower(goquery.NodeName(s))
	node := ContentNode{Tag: tag, sel: s}
	switch tag {
	case "p":
		node.Kind = NodeParagraph
	case "h2", "h3", "h4":
		node.Kind = NodeHeading
		node.Level = int(tag[1] - '0')
	case "figure":
		node.Kind = NodeFigure
	case "blockquote":
		node.Kind = NodeBlockquote
	default:
		node.Kind = NodeOther
	}
	return node
}
