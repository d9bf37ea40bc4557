package parser

import (
	"strings"
	"sync"
)

// streamState is the mutable parse state of one message id.
// It is never shared between ids and never locked: callers serialize
// chunks for a given id.
type streamState struct {
	// tagBuf holds at most one in-flight "<..." candidate.
	tagBuf strings.Builder
	// runeTail holds the leading bytes of a UTF-8 sequence cut off at the
	// end of the previous chunk.
	runeTail string

	insideArtifact   bool
	insideAction     bool
	insideImageBlock bool

	artifactID    string
	artifactTitle string

	actionKind     string
	actionFilePath string
	actionContent  strings.Builder

	imageBuf []byte

	lastContentLength int
}

func (s *streamState) resetAction() {
	s.insideAction = false
	s.actionKind = ""
	s.actionFilePath = ""
	s.actionContent.Reset()
	s.lastContentLength = 0
}

func (s *streamState) resetArtifact() {
	s.insideArtifact = false
	s.artifactID = ""
	s.artifactTitle = ""
}

func (s *streamState) resetImageBlock() {
	s.insideImageBlock = false
	s.imageBuf = s.imageBuf[:0]
}

// pending reports whether the stream holds unterminated tag, image-block or
// partial rune material.
func (s *streamState) pending() bool {
	return s.tagBuf.Len() > 0 || s.insideImageBlock || s.runeTail != ""
}

// Registry maps message ids to their stream state.
// Entries are created lazily and live until Delete or Clear.
//
// The map is guarded so that distinct ids may be parsed from different
// goroutines; state for a single id is not.
type Registry struct {
	mu      sync.Mutex
	streams map[string]*streamState
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{streams: make(map[string]*streamState)}
}

func (r *Registry) getOrCreate(id string) *streamState {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.streams[id]
	if !ok {
		st = &streamState{}
		r.streams[id] = st
	}
	return st
}

func (r *Registry) get(id string) (*streamState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.streams[id]
	return st, ok
}

// Delete drops the state for one id. Unknown ids are ignored.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, id)
}

// Clear drops every stream state.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.streams)
}

// Len returns the number of live stream states.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}
