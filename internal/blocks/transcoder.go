package blocks

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/Adda-Baaj/note-syndicator/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// DefaultContainerSelector marks the article body on note.com pages.
const DefaultContainerSelector = ".note-common-styles__textnote-body"

const blockSeparator = "\n\n"

// Transcoder converts an article page into WordPress block markup.
// It performs no I/O and yields identical output for identical input.
type Transcoder struct {
	selector string
}

// Option configures a Transcoder.
type Option func(*Transcoder)

// WithContainerSelector overrides the CSS selector of the body container.
func WithContainerSelector(sel string) Option {
	return func(t *Transcoder) {
		if sel = strings.TrimSpace(sel); sel != "" {
			t.selector = sel
		}
	}
}

// New builds a Transcoder.
func New(opts ...Option) *Transcoder {
	t := &Transcoder{selector: DefaultContainerSelector}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcode builds the block document for entry from its fetched page.
// When the body container is missing the document is a single paragraph
// wrapping the entry's fallback text.
func (t *Transcoder) Transcode(raw domain.RawArticleDocument, entry domain.FeedEntry) (domain.BlockDocument, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return domain.BlockDocument{}, &domain.TranscodeError{Err: fmt.Errorf("parse html: %w", err)}
	}

	container := doc.Find(t.selector).First()
	if container.Length() == 0 {
		return FallbackDocument(entry.FallbackText()), nil
	}

	out := domain.BlockDocument{}
	for node := range ContentNodes(container) {
		blk, ok, err := nodeBlock(node)
		if err != nil {
			return domain.BlockDocument{}, &domain.TranscodeError{Err: fmt.Errorf("render <%s>: %w", node.Tag, err)}
		}
		if !ok {
			continue
		}
		blk.Markup += blockSeparator
		out.Blocks = append(out.Blocks, blk)
	}
	return out, nil
}

// FallbackDocument wraps text in a single paragraph block, unmodified.
func FallbackDocument(text string) domain.BlockDocument {
	return domain.BlockDocument{
		Fallback: true,
		Blocks: []domain.Block{{
			Kind:   domain.BlockParagraph,
			Markup: "<!-- wp:paragraph -->\n<p>" + text + "</p>\n<!-- /wp:paragraph -->",
		}},
	}
}

// nodeBlock renders one content node. ok is false when the node yields no block.
func nodeBlock(node ContentNode) (blk domain.Block, ok bool, err error) {
	if node.Kind == NodeFigure {
		src, alt, found := node.Image()
		if !found {
			return domain.Block{}, false, nil
		}
		return domain.Block{Kind: domain.BlockImage, Markup: imageBlock(src, alt)}, true, nil
	}

	inner, err := node.Inner()
	if err != nil {
		return domain.Block{}, false, err
	}

	switch node.Kind {
	case NodeHeading:
		return domain.Block{Kind: domain.BlockHeading, Markup: headingBlock(node.Level, node.Tag, inner)}, true, nil
	case NodeBlockquote:
		return domain.Block{Kind: domain.BlockQuote, Markup: quoteBlock(inner)}, true, nil
	default:
		// paragraphs and every unrecognized tag keep their own element
		return domain.Block{Kind: domain.BlockParagraph, Markup: paragraphBlock(node.Tag, inner)}, true, nil
	}
}

func wrapElement(tag, inner string) string {
	return "<" + tag + ">" + inner + "</" + tag + ">"
}

func paragraphBlock(tag, inner string) string {
	return "<!-- wp:paragraph -->\n" + wrapElement(tag, inner) + "\n<!-- /wp:paragraph -->"
}

func headingBlock(level int, tag, inner string) string {
	return fmt.Sprintf("<!-- wp:heading {\"level\":%d} -->\n%s\n<!-- /wp:heading -->", level, wrapElement(tag, inner))
}

// imageBlock rebuilds the figure with only src and alt so strict block validation passes.
func imageBlock(src, alt string) string {
	return "<!-- wp:image -->\n<figure class=\"wp-block-image\"><img src=\"" +
		html.EscapeString(src) + "\" alt=\"" + html.EscapeString(alt) +
		"\"/></figure>\n<!-- /wp:image -->"
}

func quoteBlock(inner string) string {
	return "<!-- wp:quote -->\n<blockquote class=\"wp-block-quote\">" + inner + "</blockquote>\n<!-- /wp:quote -->"
}
