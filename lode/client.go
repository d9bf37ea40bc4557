package lode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/boltstream/metrics"
	"github.com/pithecene-io/boltstream/types"
)

// hiveLayout lists the partition keys, outermost first. Every stored record
// carries all of them.
var hiveLayout = []string{"source", "day", "message_id", "event_type"}

// LodeClient is a real Lode-backed implementation of Client.
// Uses Lode's HiveLayout with partition keys: source/day/message_id/event_type.
type LodeClient struct {
	dataset lode.Dataset
	config  Config

	mu sync.Mutex // serializes dataset writes
}

// NewFSClient creates a new Lode client with filesystem storage.
// The root parameter is the base directory for Hive-partitioned storage.
func NewFSClient(cfg Config, root string) (*LodeClient, error) {
	return NewClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewMemoryClient creates a Lode client backed by process memory.
// Records do not outlive the process; useful for dry runs and tests.
func NewMemoryClient(cfg Config) (*LodeClient, error) {
	return NewClientWithFactory(cfg, lode.NewMemoryFactory())
}

// NewClientWithFactory creates a new Lode client with a custom store factory.
func NewClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	cfg = cfg.withDefaults()
	ds, err := newDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &LodeClient{dataset: ds, config: cfg}, nil
}

// newDataset opens a dataset with the layout and codec shared by the
// write and read paths.
func newDataset(id string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(id),
		factory,
		lode.WithHiveLayout(hiveLayout...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// Dataset returns the underlying dataset for read-back.
func (c *LodeClient) Dataset() lode.Dataset {
	return c.dataset
}

// WriteEvents writes a batch of events to Lode as one snapshot.
// Records are partitioned by message_id and event_type (included in each record).
func (c *LodeClient) WriteEvents(ctx context.Context, events []*types.EventEnvelope) error {
	if len(events) == 0 {
		return nil
	}

	records := make([]any, 0, len(events))
	for _, e := range events {
		if e.MessageID == "" {
			return fmt.Errorf("event %s: message_id is required for partitioning", e.EventID)
		}
		records = append(records, toEventRecordMap(e, c.config))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.config.Dataset)
	}
	return nil
}

// WriteMetrics writes a session metrics record under the metrics partition.
func (c *LodeClient) WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error {
	record := toMetricsRecordMap(snap, completedAt, c.config)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.config.Dataset)
	}
	return nil
}

// Close releases client resources.
func (c *LodeClient) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

// Verify LodeClient implements Client.
var _ Client = (*LodeClient)(nil)
