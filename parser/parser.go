// Package parser extracts bolt artifacts, actions and image tasks from
// incrementally streamed model output.
//
// A Parser keeps one state machine per message id. Each call to Parse feeds
// the next increment of text for that id; tags split across chunks are
// carried until complete, and events are delivered synchronously through
// Callbacks. Parse performs no I/O and never fails: malformed or unknown
// tags are literal text, unmatched close tags are ignored and bad image
// JSON is logged and dropped.
package parser

import (
	"bytes"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pithecene-io/boltstream/log"
	"github.com/pithecene-io/boltstream/types"
)

// DefaultArtifactTitle is used when an artifact tag has no title.
const DefaultArtifactTitle = "Untitled"

// Limits bounds the per-stream buffers. Zero means unbounded.
type Limits struct {
	// MaxTagBuffer is the longest pending "<..." candidate in bytes.
	// On overflow the pending text is released as literal content.
	MaxTagBuffer int
	// MaxImageBuffer is the largest raw image block in bytes.
	// On overflow the block is closed without extraction.
	MaxImageBuffer int
}

// IDGenerator returns a fresh artifact id.
type IDGenerator func() string

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l *log.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// WithContentUpdateThreshold sets the growth required between interim
// content updates. Values <= 0 are ignored.
func WithContentUpdateThreshold(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.threshold = n
		}
	}
}

// WithLimits bounds tag and image-block buffering.
func WithLimits(l Limits) Option {
	return func(p *Parser) { p.limits = l }
}

// WithIDGenerator overrides generation of default artifact ids.
func WithIDGenerator(gen IDGenerator) Option {
	return func(p *Parser) {
		if gen != nil {
			p.newID = gen
		}
	}
}

// WithRegistry injects the stream registry.
func WithRegistry(r *Registry) Option {
	return func(p *Parser) {
		if r != nil {
			p.registry = r
		}
	}
}

// Stats is a point-in-time snapshot of parser counters.
type Stats struct {
	Chunks         int64 `json:"chunks"`
	Bytes          int64 `json:"bytes"`
	TagsRecognized int64 `json:"tags_recognized"`
	TagsLiteral    int64 `json:"tags_literal"`
	ContentUpdates int64 `json:"content_updates"`
	ImageBlocks    int64 `json:"image_blocks"`
	ImageFailures  int64 `json:"image_failures"`
	TagOverflows   int64 `json:"tag_overflows"`
	ImageOverflows int64 `json:"image_overflows"`
}

type counters struct {
	chunks         atomic.Int64
	bytes          atomic.Int64
	tagsRecognized atomic.Int64
	tagsLiteral    atomic.Int64
	contentUpdates atomic.Int64
	imageBlocks    atomic.Int64
	imageFailures  atomic.Int64
	tagOverflows   atomic.Int64
	imageOverflows atomic.Int64
}

// Parser is a streaming bolt-tag parser.
// Parse may be called concurrently for different message ids, but calls for
// the same id must be serialized by the caller.
type Parser struct {
	cb        Callbacks
	registry  *Registry
	logger    *log.Logger
	threshold int
	limits    Limits
	newID     IDGenerator
	stats     counters
}

// New creates a parser delivering events to cb. A nil cb discards events.
func New(cb Callbacks, opts ...Option) *Parser {
	if cb == nil {
		cb = NopCallbacks{}
	}
	p := &Parser{
		cb:        cb,
		registry:  NewRegistry(),
		threshold: DefaultContentUpdateThreshold,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse feeds the next increment of text for messageID.
func (p *Parser) Parse(messageID, chunk string) {
	st := p.registry.getOrCreate(messageID)
	p.stats.chunks.Add(1)
	p.stats.bytes.Add(int64(len(chunk)))

	chunk, st.runeTail = splitRuneTail(st.runeTail + chunk)

	// Literal text is chunk[textStart:] up to the next recognized tag.
	// A tag carried in from an earlier chunk that turns out to be literal
	// is kept in carry, ahead of that range.
	textStart := 0
	tagStart := 0
	carried := st.tagBuf.Len()
	var carry string

	flush := func(end int) {
		text := carry + chunk[textStart:end]
		carry = ""
		p.routeText(messageID, st, text)
	}

	for i := 0; i < len(chunk); i++ {
		c := chunk[i]

		if st.insideImageBlock {
			st.imageBuf = append(st.imageBuf, c)
			switch {
			case bytes.HasSuffix(st.imageBuf, imageCloseBytes):
				p.closeImageBlock(messageID, st)
				textStart = i + 1
			case p.limits.MaxImageBuffer > 0 && len(st.imageBuf) > p.limits.MaxImageBuffer:
				p.imageOverflow(messageID, st)
				textStart = i + 1
			}
			continue
		}

		if st.tagBuf.Len() > 0 {
			// A second '<' while a tag is pending is just tag content.
			st.tagBuf.WriteByte(c)
			if c == '>' {
				tag := st.tagBuf.String()
				st.tagBuf.Reset()
				kind := recognizeTag(tag)
				if p.accepts(st, kind) {
					flush(tagStart)
					p.stats.tagsRecognized.Add(1)
					p.handleTag(messageID, st, kind, tag)
					textStart = i + 1
				} else {
					p.stats.tagsLiteral.Add(1)
					if carried > 0 {
						carry += tag[:carried]
					}
				}
				carried = 0
				continue
			}
			if p.limits.MaxTagBuffer > 0 && st.tagBuf.Len() > p.limits.MaxTagBuffer {
				pendingLen := st.tagBuf.Len()
				if carried > 0 {
					carry += st.tagBuf.String()[:carried]
				}
				st.tagBuf.Reset()
				carried = 0
				p.stats.tagOverflows.Add(1)
				p.cb.OnParseError(types.ParseError{
					MessageID: messageID,
					Kind:      types.ParseErrorTagOverflow,
					Message:   fmt.Sprintf("pending tag exceeded %d bytes (%d buffered), released as text", p.limits.MaxTagBuffer, pendingLen),
				})
			}
			continue
		}

		if c == '<' {
			st.tagBuf.WriteByte(c)
			tagStart = i
		}
	}

	switch {
	case st.insideImageBlock:
		// Text before the block was flushed when it opened.
	case st.tagBuf.Len() > 0:
		if carried == 0 {
			flush(tagStart)
		}
	default:
		flush(len(chunk))
	}
}

// splitRuneTail cuts an incomplete UTF-8 sequence off the end of s.
// Invalid bytes are not held back; they stay in head as they are.
func splitRuneTail(s string) (head, tail string) {
	for i := len(s) - 1; i >= 0 && i >= len(s)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(s[i]) {
			continue
		}
		if !utf8.FullRuneInString(s[i:]) {
			return s[:i], s[i:]
		}
		break
	}
	return s, ""
}

// accepts reports whether a recognized tag drives a transition in the
// current state. Open tags that cannot nest are literal; close tags without
// an open are swallowed.
func (p *Parser) accepts(st *streamState, kind tagKind) bool {
	switch kind {
	case tagArtifactOpen:
		return !st.insideArtifact
	case tagActionOpen:
		return !st.insideAction
	case tagArtifactClose, tagActionClose, tagImageOpen, tagImageClose:
		return true
	default:
		return false
	}
}

func (p *Parser) handleTag(messageID string, st *streamState, kind tagKind, tag string) {
	switch kind {
	case tagImageOpen:
		st.insideImageBlock = true
		st.imageBuf = st.imageBuf[:0]

	case tagImageClose:
		// Only reachable outside an image block.

	case tagActionOpen:
		st.insideAction = true
		st.actionKind, _ = extractAttr(tag, "type")
		st.actionFilePath, _ = extractAttr(tag, "filePath")
		st.actionContent.Reset()
		st.lastContentLength = 0
		p.cb.OnActionOpen(types.ActionEvent{
			MessageID:  messageID,
			ArtifactID: st.artifactID,
			Action: types.ActionData{
				Kind:     st.actionKind,
				FilePath: st.actionFilePath,
			},
		})

	case tagActionClose:
		if !st.insideAction {
			return
		}
		event := types.ActionEvent{
			MessageID:  messageID,
			ArtifactID: st.artifactID,
			Action: types.ActionData{
				Kind:     st.actionKind,
				FilePath: st.actionFilePath,
				Content:  CleanContent(st.actionContent.String()),
			},
		}
		st.resetAction()
		p.cb.OnActionClose(event)

	case tagArtifactOpen:
		id, _ := extractAttr(tag, "id")
		if id == "" {
			id = p.newID()
		}
		title, _ := extractAttr(tag, "title")
		if title == "" {
			title = DefaultArtifactTitle
		}
		st.insideArtifact = true
		st.artifactID = id
		st.artifactTitle = title
		p.cb.OnArtifactOpen(types.ArtifactData{MessageID: messageID, ID: id, Title: title})

	case tagArtifactClose:
		if !st.insideArtifact {
			return
		}
		data := types.ArtifactData{MessageID: messageID, ID: st.artifactID, Title: st.artifactTitle}
		st.resetArtifact()
		p.cb.OnArtifactClose(data)
	}
}

// routeText delivers literal text: appended untrimmed to an open action,
// otherwise trimmed and passed to OnText when non-empty.
func (p *Parser) routeText(messageID string, st *streamState, text string) {
	if text == "" {
		return
	}
	if st.insideAction {
		st.actionContent.WriteString(text)
		p.disclose(messageID, st)
		return
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		p.cb.OnText(messageID, trimmed)
	}
}

func (p *Parser) imageOverflow(messageID string, st *streamState) {
	size := len(st.imageBuf)
	st.resetImageBlock()
	p.stats.imageOverflows.Add(1)
	p.cb.OnParseError(types.ParseError{
		MessageID: messageID,
		Kind:      types.ParseErrorImageOverflow,
		Message:   fmt.Sprintf("image block exceeded %d bytes (%d buffered), discarded", p.limits.MaxImageBuffer, size),
	})
}

// Reset drops the state for one message id.
func (p *Parser) Reset(messageID string) {
	p.registry.Delete(messageID)
}

// ResetAll drops every stream state.
func (p *Parser) ResetAll() {
	p.registry.Clear()
}

// Streams returns the number of live stream states.
func (p *Parser) Streams() int {
	return p.registry.Len()
}

// Pending reports whether messageID holds an unterminated tag, image block or
// partial UTF-8 sequence.
func (p *Parser) Pending(messageID string) bool {
	st, ok := p.registry.get(messageID)
	return ok && st.pending()
}

// Stats returns a snapshot of the parser counters.
func (p *Parser) Stats() Stats {
	return Stats{
		Chunks:         p.stats.chunks.Load(),
		Bytes:          p.stats.bytes.Load(),
		TagsRecognized: p.stats.tagsRecognized.Load(),
		TagsLiteral:    p.stats.tagsLiteral.Load(),
		ContentUpdates: p.stats.contentUpdates.Load(),
		ImageBlocks:    p.stats.imageBlocks.Load(),
		ImageFailures:  p.stats.imageFailures.Load(),
		TagOverflows:   p.stats.tagOverflows.Load(),
		ImageOverflows: p.stats.imageOverflows.Load(),
	}
}
