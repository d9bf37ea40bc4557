package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/boltstream/adapter"
	"github.com/pithecene-io/boltstream/adapter/redis"
	"github.com/pithecene-io/boltstream/adapter/webhook"
	"github.com/pithecene-io/boltstream/cli/config"
	"github.com/pithecene-io/boltstream/cli/render"
	"github.com/pithecene-io/boltstream/iox"
	"github.com/pithecene-io/boltstream/lode"
	"github.com/pithecene-io/boltstream/log"
	"github.com/pithecene-io/boltstream/metrics"
	"github.com/pithecene-io/boltstream/parser"
	"github.com/pithecene-io/boltstream/policy"
	"github.com/pithecene-io/boltstream/runtime"
	"github.com/pithecene-io/boltstream/types"
)

// Exit codes for parse.
const (
	exitSuccess       = 0
	exitStreamError   = 1
	exitConfigError   = 2
	exitPolicyFailure = 3
	exitCanceled      = 130
)

// metricsWriteTimeout bounds the metrics write after the session ends.
const metricsWriteTimeout = 30 * time.Second

// ParseCommand returns the parse command.
// This is the only command that writes; everything else is read-only.
func ParseCommand() *cli.Command {
	flags := []cli.Flag{
		configFlag(),
		formatFlag(),
		noColorFlag(),
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level: " + strings.Join(log.Levels, ", "),
			Value:   "info",
			EnvVars: env("LOG_LEVEL"),
		},
		// Input flags
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Input file, or - for stdin",
			Value:   "-",
		},
		&cli.BoolFlag{
			Name:  "frames",
			Usage: "Input is length-prefixed msgpack chunk/reset frames instead of plain text",
		},
		&cli.StringFlag{
			Name:  "message-id",
			Usage: "Message ID for plain-text input (default: generated)",
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Chunk size in bytes for plain-text input",
			Value: runtime.DefaultChunkSize,
		},
		// Session flags
		&cli.StringFlag{
			Name:  "session-id",
			Usage: "Session ID (default: generated)",
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "Source label stamped on records and partitions",
		},
		// Parser flags
		&cli.IntFlag{
			Name:  "content-update-threshold",
			Usage: "Content growth in bytes between interim action updates",
		},
		&cli.IntFlag{
			Name:  "max-tag-buffer",
			Usage: "Max pending tag bytes before release as text (0 = unbounded)",
		},
		&cli.IntFlag{
			Name:  "max-image-buffer",
			Usage: "Max image block bytes (0 = unbounded)",
		},
		// Policy flags
		&cli.StringFlag{
			Name:  "policy",
			Usage: "Ingestion policy: strict, buffered, or streaming",
			Value: "strict",
		},
		&cli.IntFlag{
			Name:  "buffer-events",
			Usage: "Max buffered events (buffered policy)",
		},
		&cli.Int64Flag{
			Name:  "buffer-bytes",
			Usage: "Max buffer size in bytes (buffered policy)",
		},
		&cli.IntFlag{
			Name:  "flush-count",
			Usage: "Flush after N events (streaming policy)",
		},
		&cli.DurationFlag{
			Name:  "flush-interval",
			Usage: "Flush every interval (streaming policy)",
		},
		&cli.BoolFlag{
			Name:  "flush-on-artifact",
			Usage: "Flush when an artifact closes (streaming policy)",
		},
		// Adapter flags
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Completion adapter: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Webhook endpoint or redis://host:port/db URL",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel",
		},
		&cli.StringFlag{
			Name:  "adapter-stream",
			Usage: "Redis stream key; events are appended with XADD instead of PUBLISH",
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Webhook header as key=value (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Adapter publish timeout",
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Adapter retry attempts",
			Value: webhook.DefaultRetries,
		},
		// Output flags
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a JSON session report to this path (- for stderr)",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Suppress the session summary",
		},
	}

	return &cli.Command{
		Name:   "parse",
		Usage:  "Parse a model response stream into structured events",
		Flags:  append(flags, StorageFlags()...),
		Action: parseAction,
	}
}

// policyChoice holds resolved policy configuration.
type policyChoice struct {
	name          string
	maxEvents     int
	maxBytes      int64
	flushCount    int
	flushInterval time.Duration
	flushArtifact bool
}

// adapterChoice holds resolved adapter configuration.
type adapterChoice struct {
	typ     string
	url     string
	channel string
	stream  string
	headers map[string]string
	timeout time.Duration
	retries int
}

// ParseSummary is the rendered result of a parse session.
type ParseSummary struct {
	SessionID         string `json:"session_id"`
	Source            string `json:"source,omitempty"`
	Outcome           string `json:"outcome"`
	Message           string `json:"message"`
	Duration          string `json:"duration"`
	MessagesCompleted int64  `json:"messages_completed"`
	Events            int64  `json:"events"`
	EventsPersisted   int64  `json:"events_persisted"`
	EventsDropped     int64  `json:"events_dropped"`
	Policy            string `json:"policy"`
	Storage           string `json:"storage"`
}

func parseAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	meta := &types.SessionMeta{
		SessionID: c.String("session-id"),
		Source:    resolveString(c, "source", configVal(cfg, func(f *config.Config) string { return f.Source })),
	}
	if meta.SessionID == "" {
		meta.SessionID = uuid.NewString()
	}

	choice := resolvePolicy(c, cfg)
	if err := validatePolicyConfig(choice); err != nil {
		return cli.Exit(fmt.Sprintf("invalid policy config: %v", err), exitConfigError)
	}

	storage := resolveStorage(c, cfg)
	if err := validateStorageConfig(storage); err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	adapterType := resolveString(c, "adapter", configVal(cfg, func(f *config.Config) string { return f.Adapter.Type }))
	var ac *adapterChoice
	if adapterType != "" {
		ac, err = parseAdapterConfigWithPrecedence(c, cfg, adapterType)
		if err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}
	}

	level, err := log.ParseLevel(c.String("log-level"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	input, err := openInput(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer iox.DiscardClose(input)

	logger := log.New(meta, os.Stderr, level)
	defer func() { _ = logger.Sync() }()

	backendName := storage.backend
	if backendName == "" {
		backendName = "stdout"
	}
	collector := metrics.NewCollector(choice.name, backendName, meta.SessionID, meta.Source)

	lodeCfg := lode.Config{
		Dataset:   storage.dataset,
		Source:    meta.Source,
		Day:       lode.DeriveDay(time.Now()),
		SessionID: meta.SessionID,
	}
	client, err := buildLodeClient(ctx, storage, lodeCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to initialize storage: %v", err), exitConfigError)
	}

	var sink policy.Sink
	if client != nil {
		sink = lode.NewSink(client)
	} else {
		sink = policy.NewWriterSink(os.Stdout)
	}
	sink = lode.NewInstrumentedSink(sink, collector)

	pol, err := buildPolicy(choice, sink, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create policy: %v", err), exitConfigError)
	}

	adp, err := buildAdapter(ac)
	if err != nil {
		_ = pol.Close()
		return cli.Exit(fmt.Sprintf("failed to create adapter: %v", err), exitConfigError)
	}
	if adp != nil {
		defer iox.DiscardClose(adp)
	}

	result, err := runtime.Run(ctx, &runtime.RunConfig{
		Input:         input,
		Meta:          meta,
		Policy:        pol,
		Adapter:       adp,
		Collector:     collector,
		Logger:        logger,
		ParserOptions: resolveParserOptions(c, cfg),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("session failed to start: %v", err), exitConfigError)
	}

	snap := collector.Snapshot()
	if client != nil {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsWriteTimeout)
		if err := client.WriteMetrics(wctx, snap, time.Now()); err != nil {
			logger.Warn("failed to write session metrics", map[string]any{"error": err.Error()})
		}
		cancel()
	}

	exitCode := outcomeToExitCode(result.Outcome.Status)

	if path := c.String("report"); path != "" {
		report := runtime.BuildSessionReport(result, &snap, choice.name, exitCode)
		if err := runtime.WriteSessionReport(report, path); err != nil {
			logger.Warn("failed to write session report", map[string]any{"error": err.Error(), "path": path})
		}
	}

	if !c.Bool("quiet") {
		// Events own stdout when no storage is configured.
		out := os.Stdout
		if client == nil {
			out = os.Stderr
		}
		r, err := render.NewRendererTo(c, out)
		if err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}
		if err := r.Render(buildParseSummary(result, choice.name, storage)); err != nil {
			return err
		}
	}

	if exitCode != exitSuccess {
		return cli.Exit(result.Outcome.Message, exitCode)
	}
	return nil
}

// openInput returns the frame stream for the session. With --frames the
// input is streamed as it arrives; plain text is read whole and framed as a
// single message split into --chunk-size chunks.
func openInput(c *cli.Context) (io.ReadCloser, error) {
	if c.Bool("frames") {
		return iox.OpenInput(c.String("input"))
	}

	if c.Int("chunk-size") <= 0 {
		return nil, fmt.Errorf("--chunk-size must be > 0, got %d", c.Int("chunk-size"))
	}
	data, err := iox.ReadInput(c.String("input"))
	if err != nil {
		return nil, err
	}
	messageID := c.String("message-id")
	if messageID == "" {
		messageID = uuid.NewString()
	}
	src := runtime.TextSource{
		MessageID: messageID,
		Text:      string(data),
		ChunkSize: c.Int("chunk-size"),
	}
	r, err := src.Reader()
	if err != nil {
		return nil, err
	}
	return io.NopCloser(r), nil
}

func resolvePolicy(c *cli.Context, cfg *config.Config) policyChoice {
	return policyChoice{
		name:          resolveString(c, "policy", configVal(cfg, func(f *config.Config) string { return f.Policy.Name })),
		maxEvents:     resolveInt(c, "buffer-events", configVal(cfg, func(f *config.Config) int { return f.Policy.BufferEvents })),
		maxBytes:      resolveInt64(c, "buffer-bytes", configVal(cfg, func(f *config.Config) int64 { return f.Policy.BufferBytes })),
		flushCount:    resolveInt(c, "flush-count", configVal(cfg, func(f *config.Config) int { return f.Policy.FlushCount })),
		flushInterval: resolveDuration(c, "flush-interval", configVal(cfg, func(f *config.Config) time.Duration { return f.Policy.FlushInterval.Duration })),
		flushArtifact: resolveBool(c, "flush-on-artifact", configVal(cfg, func(f *config.Config) bool { return f.Policy.FlushOnArtifact })),
	}
}

func resolveParserOptions(c *cli.Context, cfg *config.Config) []parser.Option {
	threshold := resolveInt(c, "content-update-threshold", configVal(cfg, func(f *config.Config) int { return f.Parser.ContentUpdateThreshold }))
	limits := parser.Limits{
		MaxTagBuffer:   resolveInt(c, "max-tag-buffer", configVal(cfg, func(f *config.Config) int { return f.Parser.MaxTagBuffer })),
		MaxImageBuffer: resolveInt(c, "max-image-buffer", configVal(cfg, func(f *config.Config) int { return f.Parser.MaxImageBuffer })),
	}
	return []parser.Option{
		parser.WithContentUpdateThreshold(threshold),
		parser.WithLimits(limits),
	}
}

func validatePolicyConfig(choice policyChoice) error {
	switch choice.name {
	case "strict":
		return nil

	case "buffered":
		if choice.maxEvents < 0 || choice.maxBytes < 0 {
			return fmt.Errorf("buffered policy limits must be >= 0")
		}
		if choice.maxEvents == 0 && choice.maxBytes == 0 {
			return fmt.Errorf("buffered policy requires --buffer-events > 0 or --buffer-bytes > 0")
		}
		return nil

	case "streaming":
		if choice.flushCount < 0 || choice.flushInterval < 0 {
			return fmt.Errorf("streaming policy triggers must be >= 0")
		}
		if choice.flushCount == 0 && choice.flushInterval == 0 && !choice.flushArtifact {
			return fmt.Errorf("streaming policy requires --flush-count > 0 or --flush-interval > 0 or --flush-on-artifact")
		}
		return nil

	default:
		return fmt.Errorf("invalid policy: %s (must be strict, buffered, or streaming)", choice.name)
	}
}

func buildPolicy(choice policyChoice, sink policy.Sink, logger *log.Logger) (policy.Policy, error) {
	switch choice.name {
	case "strict":
		return policy.NewStrictPolicy(sink), nil

	case "buffered":
		return policy.NewBufferedPolicy(sink, policy.BufferedConfig{
			MaxBufferEvents: choice.maxEvents,
			MaxBufferBytes:  choice.maxBytes,
			Logger:          logger,
		})

	case "streaming":
		return policy.NewStreamingPolicy(sink, policy.StreamingConfig{
			FlushCount:           choice.flushCount,
			FlushInterval:        choice.flushInterval,
			FlushOnArtifactClose: choice.flushArtifact,
			Logger:               logger,
		})

	default:
		return nil, fmt.Errorf("unknown policy: %s", choice.name)
	}
}

// buildLodeClient opens the lode client for the configured backend.
// Returns nil when no storage is configured.
func buildLodeClient(ctx context.Context, sc storageChoice, cfg lode.Config) (*lode.LodeClient, error) {
	switch sc.backend {
	case "":
		return nil, nil
	case "fs":
		return lode.NewFSClient(cfg, sc.path)
	case "s3":
		return lode.NewS3Client(ctx, cfg, sc.s3Config())
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (must be fs or s3)", sc.backend)
	}
}

// parseAdapterConfigWithPrecedence merges adapter flags over the config
// file. Headers from both sources are merged; flag headers win.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *config.Config, adapterType string) (*adapterChoice, error) {
	switch adapterType {
	case "webhook", "redis":
	default:
		return nil, fmt.Errorf("invalid adapter type %q (must be webhook or redis)", adapterType)
	}

	ac := &adapterChoice{
		typ:     adapterType,
		url:     resolveString(c, "adapter-url", configVal(cfg, func(f *config.Config) string { return f.Adapter.URL })),
		channel: resolveString(c, "adapter-channel", configVal(cfg, func(f *config.Config) string { return f.Adapter.Channel })),
		stream:  resolveString(c, "adapter-stream", configVal(cfg, func(f *config.Config) string { return f.Adapter.Stream })),
		timeout: resolveDuration(c, "adapter-timeout", configVal(cfg, func(f *config.Config) time.Duration { return f.Adapter.Timeout.Duration })),
		retries: c.Int("adapter-retries"),
		headers: make(map[string]string),
	}
	if !c.IsSet("adapter-retries") {
		if r := configVal(cfg, func(f *config.Config) *int { return f.Adapter.Retries }); r != nil {
			ac.retries = *r
		}
	}
	for k, v := range configVal(cfg, func(f *config.Config) map[string]string { return f.Adapter.Headers }) {
		ac.headers[k] = v
	}
	for _, h := range c.StringSlice("adapter-header") {
		k, v, ok := strings.Cut(h, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --adapter-header %q (expected key=value)", h)
		}
		ac.headers[k] = v
	}

	if ac.url == "" {
		return nil, fmt.Errorf("--adapter-url is required for the %s adapter", adapterType)
	}
	if ac.retries < 0 {
		return nil, fmt.Errorf("--adapter-retries must be >= 0, got %d", ac.retries)
	}
	return ac, nil
}

// buildAdapter constructs the adapter. A nil choice yields a nil adapter.
func buildAdapter(ac *adapterChoice) (adapter.Adapter, error) {
	if ac == nil {
		return nil, nil
	}
	switch ac.typ {
	case "webhook":
		a, err := webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case "redis":
		a, err := redis.New(redis.Config{
			URL:     ac.url,
			Channel: ac.channel,
			Stream:  ac.stream,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", ac.typ)
	}
}

func outcomeToExitCode(status types.OutcomeStatus) int {
	switch status {
	case types.OutcomeSuccess:
		return exitSuccess
	case types.OutcomeStreamError:
		return exitStreamError
	case types.OutcomePolicyFailure:
		return exitPolicyFailure
	case types.OutcomeCanceled:
		return exitCanceled
	default:
		return exitStreamError
	}
}

func buildParseSummary(result *runtime.RunResult, policyName string, sc storageChoice) *ParseSummary {
	storage := "stdout"
	switch sc.backend {
	case "s3":
		storage = sc.s3Config().URI()
	case "fs":
		storage = "fs:" + sc.path
	}
	s := &ParseSummary{
		Outcome:           string(result.Outcome.Status),
		Message:           result.Outcome.Message,
		Duration:          result.Duration.Round(time.Millisecond).String(),
		MessagesCompleted: result.MessagesCompleted,
		Events:            result.EventCount,
		EventsPersisted:   result.PolicyStats.EventsPersisted,
		EventsDropped:     result.PolicyStats.EventsDropped,
		Policy:            policyName,
		Storage:           storage,
	}
	if result.Meta != nil {
		s.SessionID = result.Meta.SessionID
		s.Source = result.Meta.Source
	}
	return s
}
