package cmd

import (
	"runtime"
	"runtime/debug"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/boltstream/cli/render"
	"github.com/pithecene-io/boltstream/types"
)

// VersionResponse is the payload of the version command.
type VersionResponse struct {
	Version         string `json:"version"`
	ContractVersion string `json:"contract_version"`
	Commit          string `json:"commit"`
	Go              string `json:"go"`
	Platform        string `json:"platform"`
}

// VersionCommand reports the binary and event contract versions. commit is
// the linker-injected revision; "dev" or empty falls back to VCS build info.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: ReadOnlyFlags(),
		Action: func(c *cli.Context) error {
			if c.Bool("tui") {
				return cli.Exit("--tui is not supported for version command", 1)
			}
			r, err := render.NewRenderer(c)
			if err != nil {
				return err
			}
			return r.Render(newVersionResponse(commit, debug.ReadBuildInfo))
		},
	}
}

func newVersionResponse(commit string, buildInfo func() (*debug.BuildInfo, bool)) VersionResponse {
	if commit == "" || commit == "dev" {
		commit = vcsRevision(buildInfo)
	}
	return VersionResponse{
		Version:         types.Version,
		ContractVersion: types.ContractVersion,
		Commit:          commit,
		Go:              runtime.Version(),
		Platform:        runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// vcsRevision returns the short vcs.revision build setting, "+dirty" when
// the tree was modified, or "dev" when none was recorded.
func vcsRevision(buildInfo func() (*debug.BuildInfo, bool)) string {
	info, ok := buildInfo()
	if !ok {
		return "dev"
	}
	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return "dev"
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if dirty {
		rev += "+dirty"
	}
	return rev
}
