package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoSources is returned when the source glob matches nothing.
var ErrNoSources = errors.New("no Java sources found")

// FindSources expands glob and returns the matches sorted.
func FindSources(glob string) ([]string, error) {
	matches, err := filepath.Glob(glob)
	if err != nil {
		return nil, fmt.Errorf("bad source pattern %q: %w", glob, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoSources, glob)
	}
	sort.Strings(matches)
	return matches, nil
}

// Compile builds the player sources with javac before any game starts.
// A missing source set or a non-zero javac exit is returned as an error.
func Compile(ctx context.Context, javac, glob string, logger *slog.Logger) error {
	sources, err := FindSources(glob)
	if err != nil {
		return err
	}

	args := append([]string{"-encoding", "UTF-8"}, sources...)
	cmd := exec.CommandContext(ctx, javac, args...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	logger.Info("compile_started", "javac", javac, "sources", len(sources))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(output.String())
		logger.Error("compile_failed", "error", err, "output", msg)
		if msg != "" {
			return fmt.Errorf("javac failed: %w\n%s", err, msg)
		}
		return fmt.Errorf("javac failed: %w", err)
	}
	logger.Info("compile_complete", "sources", len(sources))
	return nil
}
