package parser

import "strings"

// tagKind classifies a complete <...> span.
type tagKind int

const (
	tagUnrecognized tagKind = iota
	tagArtifactOpen
	tagArtifactClose
	tagActionOpen
	tagActionClose
	tagImageOpen
	tagImageClose
)

func (k tagKind) String() string {
	switch k {
	case tagArtifactOpen:
		return "artifact_open"
	case tagArtifactClose:
		return "artifact_close"
	case tagActionOpen:
		return "action_open"
	case tagActionClose:
		return "action_close"
	case tagImageOpen:
		return "image_open"
	case tagImageClose:
		return "image_close"
	default:
		return "unrecognized"
	}
}

// Tag heads, case-sensitive.
const (
	artifactTag = "boltArtifact"
	actionTag   = "boltAction"
	imageTag    = "boltImageTask"
)

// imageCloseMarker is matched by suffix while capturing an image block.
const imageCloseMarker = "</" + imageTag + ">"

var imageCloseBytes = []byte(imageCloseMarker)

var tagHeads = []struct {
	prefix string
	kind   tagKind
}{
	{"</" + artifactTag, tagArtifactClose},
	{"</" + actionTag, tagActionClose},
	{"</" + imageTag, tagImageClose},
	{"<" + artifactTag, tagArtifactOpen},
	{"<" + actionTag, tagActionOpen},
	{"<" + imageTag, tagImageOpen},
}

// recognizeTag classifies a complete tag by its literal head. The head must
// be followed by whitespace, '/' or '>' so that <boltActionX> stays literal.
func recognizeTag(tag string) tagKind {
	for _, h := range tagHeads {
		if !strings.HasPrefix(tag, h.prefix) {
			continue
		}
		if len(tag) == len(h.prefix) {
			// Incomplete tags never reach the recognizer.
			return tagUnrecognized
		}
		next := tag[len(h.prefix)]
		if next == '>' || next == '/' || isSpace(next) {
			return h.kind
		}
	}
	return tagUnrecognized
}
