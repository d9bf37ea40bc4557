// Package cmd provides CLI commands for the boltstream binary.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/boltstream/lode"
)

// envPrefix namespaces environment fallbacks for storage and config flags.
// An env value counts as an explicit flag and so beats the config file.
const envPrefix = "BOLTSTREAM_"

func env(name string) []string { return []string{envPrefix + name} }

// Flag constructors return a new value per call; urfave/cli records
// set-state on the flag itself.

func formatFlag() cli.Flag {
	return &cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format: json, table, yaml"}
}

func noColorFlag() cli.Flag {
	return &cli.BoolFlag{Name: "no-color", Usage: "Disable colored output", EnvVars: []string{"NO_COLOR"}}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to boltstream.yaml (flags override file values)",
		EnvVars: env("CONFIG"),
	}
}

// ReadOnlyFlags are the output flags of every read-only command. --tui is
// always accepted so commands without a TUI can reject it by name.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		formatFlag(),
		noColorFlag(),
		&cli.BoolFlag{Name: "tui", Usage: "Enable interactive TUI mode (inspect, stats only)"},
	}
}

// TUIReadOnlyFlags is ReadOnlyFlags for commands that do support --tui.
func TUIReadOnlyFlags() []cli.Flag {
	return ReadOnlyFlags()
}

// StorageFlags locate a lode dataset, for parse and for inspect/stats.
func StorageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "dataset", Usage: "Lode dataset ID", Value: lode.DefaultDataset, EnvVars: env("DATASET")},
		&cli.StringFlag{Name: "storage-backend", Usage: "Storage backend: fs or s3", EnvVars: env("STORAGE_BACKEND")},
		&cli.StringFlag{Name: "storage-path", Usage: "Storage path (fs: directory, s3: bucket/prefix)", EnvVars: env("STORAGE_PATH")},
		&cli.StringFlag{Name: "storage-region", Usage: "AWS region for S3 (default: SDK chain)", EnvVars: env("STORAGE_REGION")},
		&cli.StringFlag{Name: "storage-endpoint", Usage: "Custom S3 endpoint URL (R2, MinIO)", EnvVars: env("STORAGE_ENDPOINT")},
		&cli.BoolFlag{Name: "storage-s3-path-style", Usage: "Force path-style S3 addressing"},
	}
}
