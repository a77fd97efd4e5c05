// Package logging builds the structured logger shared by every module.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	hclog "github.com/hashicorp/go-hclog"
)

type Options struct {
	Level string
	JSON  bool
	// File receives log output when set; stderr otherwise.
	File string
}

// New returns the root logger and a cleanup func closing any opened file.
func New(opts Options) (hclog.Logger, func(), error) {
	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		if opts.Level != "" {
			return nil, nil, fmt.Errorf("unknown log level %q", opts.Level)
		}
		level = hclog.Info
	}

	var out io.Writer = os.Stderr
	cleanup := func() {}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		cleanup = func() { _ = f.Close() }
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "soulshepherd",
		Level:      level,
		Output:     out,
		JSONFormat: opts.JSON,
	})
	return logger, cleanup, nil
}
