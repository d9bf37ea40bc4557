package parser

import (
	"encoding/json"
	"errors"

	"github.com/pithecene-io/boltstream/types"
)

var errNoValidImages = errors.New("image block has no valid entries")

type imageBlock struct {
	Images []json.RawMessage `json:"images"`
}

// extractImageRequests parses the body of an image block (close marker
// already stripped). Each entry is checked on its own: entries that are not
// objects or lack a string path and description are dropped.
func extractImageRequests(body []byte) ([]types.ImageRequest, error) {
	var block imageBlock
	if err := json.Unmarshal([]byte(CleanContent(string(body))), &block); err != nil {
		return nil, err
	}

	var out []types.ImageRequest
	for _, raw := range block.Images {
		var entry map[string]any
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		path, _ := entry["path"].(string)
		desc, _ := entry["description"].(string)
		if path == "" || desc == "" {
			continue
		}
		out = append(out, types.ImageRequest{LocalPath: path, Description: desc})
	}
	if len(out) == 0 {
		return nil, errNoValidImages
	}
	return out, nil
}

// closeImageBlock runs once the raw buffer ends with the close marker.
// Failures are logged and counted; they never reach the caller.
func (p *Parser) closeImageBlock(messageID string, st *streamState) {
	body := st.imageBuf[:len(st.imageBuf)-len(imageCloseMarker)]
	requests, err := extractImageRequests(body)
	st.resetImageBlock()
	p.stats.imageBlocks.Add(1)

	if err != nil {
		p.stats.imageFailures.Add(1)
		p.logger.Warn("discarding image block", map[string]any{
			"message_id": messageID,
			"error":      err.Error(),
		})
		return
	}
	p.cb.OnImageGenerationRequest(messageID, requests)
}
