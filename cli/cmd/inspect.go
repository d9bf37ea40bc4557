package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/boltstream/cli/reader"
	"github.com/pithecene-io/boltstream/cli/render"
)

// readTimeout bounds dataset reads for read-only commands.
const readTimeout = 30 * time.Second

// InspectCommand returns the inspect command with subcommands.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect a single stored entity (message)",
		Subcommands: []*cli.Command{
			inspectMessageCommand(),
		},
	}
}

func inspectMessageCommand() *cli.Command {
	flags := append(TUIReadOnlyFlags(), configFlag())
	return &cli.Command{
		Name:      "message",
		Usage:     "Inspect the stored events of a message by ID",
		ArgsUsage: "<message-id>",
		Flags:     append(flags, StorageFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.Exit("message-id required", 1)
			}
			id := c.Args().First()
			return readView(c, "inspect_message", "message", func(ctx context.Context, rd reader.Reader) (any, error) {
				return rd.InspectMessage(ctx, id)
			})
		},
	}
}

// readView runs fetch against the configured dataset and renders the result,
// as a TUI when --tui is set. A missing entity exits 1.
func readView(c *cli.Context, view, what string, fetch func(context.Context, reader.Reader) (any, error)) error {
	rd, err := newLodeReader(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, readTimeout)
	defer cancel()

	data, err := fetch(ctx, rd)
	if err != nil {
		if errors.Is(err, reader.ErrNotFound) {
			return cli.Exit(err.Error(), 1)
		}
		return fmt.Errorf("failed to read %s: %w", what, err)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return r.RenderTUI(view, data)
	}
	return r.Render(data)
}

// newLodeReader builds a reader from storage flags and --config.
func newLodeReader(c *cli.Context) (*reader.LodeReader, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfigError)
	}
	ds, err := buildReadDataset(c.Context, resolveStorage(c, cfg))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("failed to initialize storage reader: %v", err), exitConfigError)
	}
	return reader.NewLodeReader(ds), nil
}
