package policy_test

import (
	"fmt"
	"testing"

	"go.uber.org/goleak"

	"github.com/pithecene-io/boltstream/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newEvent builds a minimal envelope for policy tests.
func newEvent(seq int64, eventType types.EventType) *types.EventEnvelope {
	return &types.EventEnvelope{
		ContractVersion: types.ContractVersion,
		EventID:         fmt.Sprintf("e%d", seq),
		SessionID:       "sess-1",
		MessageID:       "m1",
		Seq:             seq,
		Type:            eventType,
		Payload:         map[string]any{"content": "x"},
	}
}
