package tui

import (
	"fmt"
	"slices"
	"sort"
)

// view runs one interactive view over a render payload.
type view func(viewType string, data any) error

var views = map[string]view{
	"inspect_message": RunInspectTUI,
	"stats_session":   RunStatsTUI,
}

// Run starts the interactive view registered for viewType.
func Run(viewType string, data any) error {
	run, ok := views[viewType]
	if !ok {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
	return run(viewType, data)
}

// IsTUISupported reports whether viewType has an interactive view.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// SupportedTUIViews lists the view types with an interactive view, sorted.
func SupportedTUIViews() []string {
	out := make([]string, 0, len(views))
	for name := range views {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
