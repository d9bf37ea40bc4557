package cmd

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/boltstream/cli/reader"
)

// StatsCommand returns the stats command. Stats reads the metrics snapshot
// a parse run stored alongside its events.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show stored session statistics",
		Subcommands: []*cli.Command{
			{
				Name:  "session",
				Usage: "Show the metrics of the latest (or a given) session",
				Flags: append(append(TUIReadOnlyFlags(),
					configFlag(),
					&cli.StringFlag{Name: "session-id", Usage: "Read metrics for a specific session (default: latest)"},
				), StorageFlags()...),
				Action: func(c *cli.Context) error {
					id := c.String("session-id")
					return readView(c, "stats_session", "metrics", func(ctx context.Context, rd reader.Reader) (any, error) {
						return rd.StatsSession(ctx, id)
					})
				},
			},
		},
	}
}
