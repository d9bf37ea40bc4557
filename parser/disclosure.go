package parser

import (
	"regexp"
	"strings"

	"github.com/pithecene-io/boltstream/types"
)

// DefaultContentUpdateThreshold is the minimum content growth, in bytes,
// between two interim action_content_update events.
const DefaultContentUpdateThreshold = 50

// minFileUpdateLength is the content length a file action must exceed
// before interim updates are emitted.
const minFileUpdateLength = 10

// completeCommandPatterns match a shell line that looks finished even
// without a trailing newline.
var completeCommandPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^npm (install|start|run|build|test)\b`),
	regexp.MustCompile(`^yarn (install|start|dev|build|test)\b`),
	regexp.MustCompile(`^pnpm (install|start|run|dev|build|test)\b`),
	regexp.MustCompile(`^git (add|commit|push|pull|clone) \S`),
	regexp.MustCompile(`^mkdir \S`),
	regexp.MustCompile(`^cd \S`),
	regexp.MustCompile(`^ls$`),
	regexp.MustCompile(`^pwd$`),
}

// looksComplete reports whether the last line of a shell action reads like
// a finished command.
func looksComplete(content string) bool {
	line := strings.TrimSpace(content)
	if i := strings.LastIndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[i+1:])
	}
	for _, re := range completeCommandPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// disclose emits an interim content update when the current action has
// grown enough since the last one. Best-effort only.
func (p *Parser) disclose(messageID string, st *streamState) {
	content := st.actionContent.String()
	if len(content)-st.lastContentLength < p.threshold {
		return
	}

	switch st.actionKind {
	case "file":
		if st.actionFilePath == "" || len(content) <= minFileUpdateLength {
			return
		}
	case "shell":
		if !strings.Contains(content, "\n") && !looksComplete(content) {
			return
		}
	default:
		return
	}

	st.lastContentLength = len(content)
	p.stats.contentUpdates.Add(1)
	p.cb.OnActionContentUpdate(types.ActionEvent{
		MessageID:  messageID,
		ArtifactID: st.artifactID,
		Action: types.ActionData{
			Kind:     st.actionKind,
			FilePath: st.actionFilePath,
			Content:  CleanContent(content),
		},
	})
}
