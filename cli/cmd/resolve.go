package cmd

import (
	"context"
	"fmt"
	"time"

	lodeapi "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/boltstream/cli/config"
	"github.com/pithecene-io/boltstream/lode"
)

// loadConfig loads --config, or a boltstream.yaml found in the working
// directory. A nil config means no file.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		found, ok := config.Find(".")
		if !ok {
			return nil, nil
		}
		path = found
	}
	return config.Load(path)
}

// configVal reads a field from cfg, returning the zero value for a nil config.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	if cfg == nil {
		var zero T
		return zero
	}
	return get(cfg)
}

// resolveString applies precedence: explicit flag, then config, then the
// flag's default.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	if cfgVal != "" {
		return cfgVal
	}
	return c.String(name)
}

func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Int(name)
}

func resolveInt64(c *cli.Context, name string, cfgVal int64) int64 {
	if c.IsSet(name) {
		return c.Int64(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Int64(name)
}

func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return cfgVal || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) {
		return c.Duration(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Duration(name)
}

// storageChoice holds resolved lode storage configuration.
type storageChoice struct {
	dataset   string
	backend   string // "fs", "s3", or "" for none
	path      string // fs: directory, s3: bucket/prefix
	region    string
	endpoint  string
	pathStyle bool
}

// resolveStorage merges storage flags over the config file.
func resolveStorage(c *cli.Context, cfg *config.Config) storageChoice {
	return storageChoice{
		dataset:   resolveString(c, "dataset", configVal(cfg, func(f *config.Config) string { return f.Storage.Dataset })),
		backend:   resolveString(c, "storage-backend", configVal(cfg, func(f *config.Config) string { return f.Storage.Backend })),
		path:      resolveString(c, "storage-path", configVal(cfg, func(f *config.Config) string { return f.Storage.Path })),
		region:    resolveString(c, "storage-region", configVal(cfg, func(f *config.Config) string { return f.Storage.Region })),
		endpoint:  resolveString(c, "storage-endpoint", configVal(cfg, func(f *config.Config) string { return f.Storage.Endpoint })),
		pathStyle: resolveBool(c, "storage-s3-path-style", configVal(cfg, func(f *config.Config) bool { return f.Storage.S3PathStyle })),
	}
}

// validateStorageConfig checks that backend and path are set together.
// An empty choice is valid on the write side (events go to stdout).
func validateStorageConfig(sc storageChoice) error {
	if sc.backend == "" && sc.path == "" {
		return nil
	}
	switch sc.backend {
	case "fs", "s3":
	case "":
		return fmt.Errorf("--storage-backend is required when --storage-path is set (fs or s3)")
	default:
		return fmt.Errorf("invalid --storage-backend %q (must be fs or s3)", sc.backend)
	}
	if sc.path == "" {
		return fmt.Errorf("--storage-path is required for the %s backend", sc.backend)
	}
	return nil
}

func (sc storageChoice) s3Config() lode.S3Config {
	bucket, prefix := lode.ParseS3Path(sc.path)
	return lode.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       sc.region,
		Endpoint:     sc.endpoint,
		UsePathStyle: sc.pathStyle,
	}
}

// buildReadDataset opens the configured dataset for reading.
func buildReadDataset(ctx context.Context, sc storageChoice) (lodeapi.Dataset, error) {
	if sc.backend == "" || sc.path == "" {
		return nil, fmt.Errorf("both --storage-backend and --storage-path are required for reads")
	}
	if err := validateStorageConfig(sc); err != nil {
		return nil, err
	}
	switch sc.backend {
	case "s3":
		return lode.NewReadDatasetS3(ctx, sc.dataset, sc.s3Config())
	default:
		return lode.NewReadDatasetFS(sc.dataset, sc.path)
	}
}
