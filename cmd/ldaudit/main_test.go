package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ldaudit/ldaudit/internal/cli"
	"github.com/ldaudit/ldaudit/internal/engine"
	"github.com/ldaudit/ldaudit/internal/version"
)

func TestMainComponents(t *testing.T) {
	root := cli.NewRootCmd(version.GetVersion())
	assert.NotNil(t, root)
	assert.Equal(t, "ldaudit", root.Use)
	assert.Equal(t, "dev", root.Version)
}

func TestExtractExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "generic", err: errors.New("boom"), want: 1},
		{name: "exit error", err: &cli.ExitError{Code: cli.ExitCodeStale, Reason: "stale"}, want: 2},
		{name: "wrapped exit error", err: fmt.Errorf("outer: %w", &cli.ExitError{Code: 3}), want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractExitCode(tt.err))
		})
	}
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, nil)
	assert.Empty(t, buf.String())

	err := &engine.SourceError{Kind: engine.KindAuth, Project: "web", Err: errors.New("HTTP 401")}
	reportError(&buf, err)
	assert.Contains(t, buf.String(), "Error: ")
	assert.Contains(t, buf.String(), "Hint: check that the API key is valid")
}

func TestRun_Version(t *testing.T) {
	t.Setenv("LDAUDIT_HOME", t.TempDir())
	var stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"version"}, &stderr))
	assert.Empty(t, stderr.String())
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Setenv("LDAUDIT_HOME", t.TempDir())
	var stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"no-such-command"}, &stderr))
	assert.Contains(t, stderr.String(), "unknown command")
}
