package main

import (
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

const helperEnv = "BOLTSTREAM_EXIT_HELPER"

// TestHelperExit runs exitErrHandler in a subprocess so os.Exit can be observed.
func TestHelperExit(t *testing.T) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		t.Skip("helper process only")
	}
	kind, arg, _ := strings.Cut(mode, ":")
	switch kind {
	case "exit":
		code, _ := strconv.Atoi(arg)
		exitErrHandler(nil, cli.Exit("parse failed", code))
	case "wrapped":
		exitErrHandler(nil, errors.Join(errors.New("context"), cli.Exit("inner error", 42)))
	case "plain":
		exitErrHandler(nil, errors.New("regular error"))
	}
	os.Exit(99)
}

func runHelper(t *testing.T, mode string) (int, string) {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=^TestHelperExit$")
	cmd.Env = append(os.Environ(), helperEnv+"="+mode)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	err := cmd.Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected non-zero exit, got %v", err)
	}
	return exitErr.ExitCode(), stderr.String()
}

func TestExitErrHandler_NilError(t *testing.T) {
	exitErrHandler(nil, nil)
}

func TestExitErrHandler_PreservesExitCodes(t *testing.T) {
	for _, code := range []int{1, 2, 3, 130} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			got, stderr := runHelper(t, "exit:"+strconv.Itoa(code))
			if got != code {
				t.Errorf("exit code = %d, want %d", got, code)
			}
			if !strings.Contains(stderr, "parse failed") {
				t.Errorf("stderr should carry the message, got %q", stderr)
			}
		})
	}
}

func TestExitErrHandler_WrappedExitCoder(t *testing.T) {
	got, stderr := runHelper(t, "wrapped")
	if got != 42 {
		t.Errorf("exit code = %d, want 42", got)
	}
	if !strings.Contains(stderr, "inner error") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestExitErrHandler_RegularError(t *testing.T) {
	got, stderr := runHelper(t, "plain")
	if got != 1 {
		t.Errorf("exit code = %d, want 1", got)
	}
	if !strings.Contains(stderr, "Error: regular error") {
		t.Errorf("stderr = %q", stderr)
	}
}
