package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const maxPort = 65535

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing every problem found.
func Validate(cfg *Config) error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Scheduling
	if cfg.Games < 1 {
		add("games", "must be at least 1 (got %d)", cfg.Games)
	}
	if cfg.Parallel < 1 {
		add("parallel", "must be at least 1 (got %d)", cfg.Parallel)
	}
	if strings.TrimSpace(cfg.Host) == "" {
		add("host", "must not be empty")
	}
	if cfg.PortBase < 1 || cfg.PortBase > maxPort {
		add("port_base", "must be between 1 and %d (got %d)", maxPort, cfg.PortBase)
	} else if cfg.Parallel >= 1 && cfg.PortBase+cfg.Parallel-1 > maxPort {
		add("port_base", "lanes would use ports up to %d, beyond %d", cfg.PortBase+cfg.Parallel-1, maxPort)
	}

	// Match
	if cfg.MyMode == "" || strings.ContainsAny(cfg.MyMode, " \t\n") {
		add("my_mode", "must be a single non-empty word (got %q)", cfg.MyMode)
	}
	if cfg.MySeconds <= 0 {
		add("my_seconds", "must be positive")
	}
	if cfg.MonteSeconds < 1 {
		add("monte_seconds", "must be at least 1")
	}
	if cfg.ServerTimeout < 1 {
		add("server_timeout", "must be at least 1")
	}
	if cfg.WallTimeout < 1 {
		add("wall_timeout", "must be at least 1")
	}

	// Java
	if cfg.JavaPath == "" {
		add("java", "must not be empty")
	}
	if !cfg.SkipBuild {
		if cfg.JavacPath == "" {
			add("javac", "must not be empty unless --skip-build is set")
		}
		if _, err := filepath.Match(cfg.SrcGlob, ""); err != nil || cfg.SrcGlob == "" {
			add("src_glob", "invalid pattern %q", cfg.SrcGlob)
		}
	}
	for field, v := range map[string]string{
		"server_jar":      cfg.ServerJar,
		"my_classpath":    cfg.MyClasspath,
		"my_class":        cfg.MyClass,
		"monte_classpath": cfg.MonteClasspath,
		"monte_class":     cfg.MonteClass,
	} {
		if v == "" {
			add(field, "must not be empty")
		}
	}

	// Timings
	positive := []struct {
		field string
		value time.Duration
	}{
		{"ready_timeout", cfg.ReadyTimeout},
		{"exit_wait", cfg.ExitWait},
		{"kill_grace", cfg.KillGrace},
		{"poll_interval", cfg.PollInterval},
	}
	for _, p := range positive {
		if p.value <= 0 {
			add(p.field, "must be positive")
		}
	}
	if cfg.SpawnGap < 0 {
		add("spawn_gap", "must not be negative")
	}

	// Output
	if cfg.OutDir == "" {
		add("out_dir", "must not be empty")
	}

	// Log format must be valid
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		add("log_format", "must be 'json' or 'text' (got %q)", cfg.LogFormat)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
