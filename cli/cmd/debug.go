package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/boltstream/cli/render"
	"github.com/pithecene-io/boltstream/iox"
	"github.com/pithecene-io/boltstream/ipc"
	"github.com/pithecene-io/boltstream/runtime"
	"github.com/pithecene-io/boltstream/types"
)

// DebugCommand returns the debug command with subcommands.
// Debug commands are opt-in diagnostic tools for the frame protocol.
func DebugCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Diagnostic tools (decode and encode frames)",
		Subcommands: []*cli.Command{
			debugFramesCommand(),
			debugEncodeCommand(),
		},
	}
}

// FrameRow is one decoded frame.
type FrameRow struct {
	Index     int    `json:"index"`
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	Seq       int64  `json:"seq,omitempty"`
	Bytes     int    `json:"bytes"`
	Final     bool   `json:"final,omitempty"`
}

func debugFramesCommand() *cli.Command {
	return &cli.Command{
		Name:  "frames",
		Usage: "Decode a frame stream and list its frames",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Frame stream file, or - for stdin",
				Value:   "-",
			},
		),
		Action: debugFramesAction,
	}
}

func debugFramesAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	// TUI not supported for debug commands
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", 1)
	}

	in, err := iox.OpenInput(c.String("input"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer iox.DiscardClose(in)

	rows, err := decodeFrameRows(in)
	if err != nil {
		return cli.Exit(err.Error(), exitStreamError)
	}
	return r.Render(rows)
}

// decodeFrameRows reads every frame until EOF.
func decodeFrameRows(in io.Reader) ([]FrameRow, error) {
	dec := ipc.NewFrameDecoder(in)
	rows := []FrameRow{}
	for i := 0; ; i++ {
		payload, err := dec.ReadFrame()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("frame %d: %w", i, err)
		}
		frame, err := ipc.DecodeFrame(payload)
		if err != nil {
			return rows, fmt.Errorf("frame %d: %w", i, err)
		}
		switch f := frame.(type) {
		case *types.ChunkFrame:
			rows = append(rows, FrameRow{
				Index:     i,
				Type:      f.Type,
				MessageID: f.MessageID,
				Seq:       f.Seq,
				Bytes:     len(f.Data),
				Final:     f.Final,
			})
		case *types.ResetFrame:
			rows = append(rows, FrameRow{Index: i, Type: f.Type, MessageID: f.MessageID})
		}
	}
}

func debugEncodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "Encode plain text as a chunk frame stream on stdout",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Text file, or - for stdin",
				Value:   "-",
			},
			&cli.StringFlag{
				Name:  "message-id",
				Usage: "Message ID (default: generated)",
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Chunk size in bytes",
				Value: runtime.DefaultChunkSize,
			},
		},
		Action: debugEncodeAction,
	}
}

func debugEncodeAction(c *cli.Context) error {
	text, err := iox.ReadInput(c.String("input"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	messageID := c.String("message-id")
	if messageID == "" {
		messageID = uuid.NewString()
	}
	if c.Int("chunk-size") <= 0 {
		return cli.Exit(fmt.Sprintf("--chunk-size must be > 0, got %d", c.Int("chunk-size")), exitConfigError)
	}

	src := runtime.TextSource{MessageID: messageID, Text: string(text), ChunkSize: c.Int("chunk-size")}
	frames, err := src.Reader()
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	_, err = io.Copy(c.App.Writer, frames)
	return err
}
