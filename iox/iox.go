// Package iox holds small I/O helpers shared by the CLI and adapters.
package iox

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// StdinPath names standard input in --input style flags.
const StdinPath = "-"

// DiscardClose closes c, ignoring the error. For defers where a failed
// close cannot be acted on (response bodies, adapters at exit).
func DiscardClose(c io.Closer) { _ = c.Close() }

// OpenInput opens path for reading. StdinPath and "" select stdin, which is
// returned with a no-op Close so callers can always defer Close.
func OpenInput(path string) (io.ReadCloser, error) {
	if path == StdinPath || path == "" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("input file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot open input %q: %w", path, err)
	}
	return f, nil
}

// ReadInput reads all of path (or stdin).
func ReadInput(path string) ([]byte, error) {
	rc, err := OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer DiscardClose(rc)

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("cannot read input: %w", err)
	}
	return data, nil
}
