// Package domain holds the feed, article, block and publish models shared by
// the syndication pipeline, plus its typed errors.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// FeedEntry is one article reference taken from the author's feed.
type FeedEntry struct {
	GUID        string
	Title       string
	Link        string
	Summary     string
	Content     string // content:encoded, may be empty
	ContentText string // plain text of Content, filled by the feed parser
	PublishedAt time.Time
}

const fallbackUnavailable = "Content not available."

// FallbackText picks the text used when the article body container is missing.
// The plain text of the rich content wins over the shorter description.
func (e FeedEntry) FallbackText() string {
	for _, v := range []string{e.ContentText, e.Content, e.Summary} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return fallbackUnavailable
}

// RawArticleDocument is the fetched HTML of an entry's link.
type RawArticleDocument []byte

// BlockKind is the structural role of a block.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockHeading   BlockKind = "heading"
	BlockImage     BlockKind = "image"
	BlockQuote     BlockKind = "quote"
)

// Block is one block-annotated markup fragment.
type Block struct {
	Kind   BlockKind
	Markup string
}

// BlockDocument is the ordered publish payload.
type BlockDocument struct {
	Blocks   []Block
	Fallback bool
}

// String renders the document as the markup text sent to destinations.
func (d BlockDocument) String() string {
	var b strings.Builder
	for _, blk := range d.Blocks {
		b.WriteString(blk.Markup)
	}
	return b.String()
}

// Len returns the number of blocks.
func (d BlockDocument) Len() int { return len(d.Blocks) }

// Destination is one configured content-management endpoint.
type Destination struct {
	Name       string
	Type       string
	BaseURL    string
	Username   string
	Password   string
	CategoryID *int64
}

// HasCategory reports whether a category id is configured.
func (d Destination) HasCategory() bool { return d.CategoryID != nil }

// OutcomeStatus is the per-destination result of a run.
type OutcomeStatus string

const (
	OutcomePublished OutcomeStatus = "published"
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeFailed    OutcomeStatus = "failed"
)

const ReasonDuplicate = "duplicate"

// PublishOutcome records what happened at one destination.
type PublishOutcome struct {
	Destination string
	Status      OutcomeStatus
	PostID      int64
	Link        string
	Reason      string
	Err         error
}

// Published builds a success outcome.
func Published(dest string, postID int64, link string) PublishOutcome {
	return PublishOutcome{Destination: dest, Status: OutcomePublished, PostID: postID, Link: link}
}

// Skipped builds a duplicate-suppressed outcome.
func Skipped(dest string) PublishOutcome {
	return PublishOutcome{Destination: dest, Status: OutcomeSkipped, Reason: ReasonDuplicate}
}

// Failed builds a failure outcome.
func Failed(dest string, err error) PublishOutcome {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return PublishOutcome{Destination: dest, Status: OutcomeFailed, Reason: reason, Err: err}
}

// Line renders the operator-facing summary for this outcome.
func (o PublishOutcome) Line() string {
	switch o.Status {
	case OutcomePublished:
		return fmt.Sprintf("[%s] Published: draft %d created at %s", o.Destination, o.PostID, o.Link)
	case OutcomeSkipped:
		return fmt.Sprintf("[%s] Skipped: %s", o.Destination, o.Reason)
	default:
		return fmt.Sprintf("[%s] Failed: %s", o.Destination, o.Reason)
	}
}

// Report summarizes one run.
type Report struct {
	EntryGUID  string
	EntryTitle string
	EntryLink  string
	StartedAt  time.Time
	FinishedAt time.Time
	NoEntries  bool
	Outcomes   []PublishOutcome
}

// Lines returns one line per destination.
func (r Report) Lines() []string {
	out := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		out = append(out, o.Line())
	}
	return out
}

// Count returns how many outcomes have the given status.
func (r Report) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
