package config

import (
	"bytes"
	"errors"
	"flag"
	"strings"
	"testing"
	"time"
)

func TestFlagType(t *testing.T) {
	testCases := []struct {
		name     string
		defValue string
		expected string
	}{
		{"bool true", "true", ""},
		{"bool false", "false", ""},
		{"int", "42", "int"},
		{"float", "3.5", "float"},
		{"string", "hello", "string"},
		{"string ending in s", "benchmarks", "string"},
		{"duration seconds", "12s", "duration"},
		{"duration millis", "300ms", "duration"},
		{"duration minutes", "5m", "duration"},
		{"empty", "", "string"},
		{"zero", "0", "int"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &flag.Flag{Name: "test", DefValue: tc.defValue}
			if got := flagType(f); got != tc.expected {
				t.Errorf("flagType(%q) = %q, want %q", tc.defValue, got, tc.expected)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Games", cfg.Games, 20},
		{"Parallel", cfg.Parallel, 10},
		{"Host", cfg.Host, "localhost"},
		{"PortBase", cfg.PortBase, 25033},
		{"MyMode", cfg.MyMode, "tt"},
		{"MySeconds", cfg.MySeconds, 3.0},
		{"MonteSeconds", cfg.MonteSeconds, 10},
		{"ServerTimeout", cfg.ServerTimeout, 12},
		{"WallTimeout", cfg.WallTimeout, 1200},
		{"Monitor", cfg.Monitor, false},
		{"NoStreamServerLog", cfg.NoStreamServerLog, false},
		{"ReadyTimeout", cfg.ReadyTimeout, 12 * time.Second},
		{"ExitWait", cfg.ExitWait, 10 * time.Second},
		{"KillGrace", cfg.KillGrace, 300 * time.Millisecond},
		{"SpawnGap", cfg.SpawnGap, 100 * time.Millisecond},
		{"PollInterval", cfg.PollInterval, 100 * time.Millisecond},
		{"OutDir", cfg.OutDir, "benchmarks"},
		{"MetricsAddr", cfg.MetricsAddr, ""},
		{"SrcGlob", cfg.SrcGlob, "Src/*.java"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parallel = 4

	if got := cfg.LanePort(3); got != 25036 {
		t.Errorf("LanePort(3) = %d, want 25036", got)
	}
	if got := cfg.MaxProcesses(); got != 12 {
		t.Errorf("MaxProcesses() = %d, want 12", got)
	}
	if got := cfg.WallTimeoutDuration(); got != 1200*time.Second {
		t.Errorf("WallTimeoutDuration() = %v, want 20m", got)
	}
}

func TestParseArgs(t *testing.T) {
	testCases := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "no arguments keeps defaults",
			args: nil,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Games != 20 || cfg.Parallel != 10 {
					t.Errorf("games=%d parallel=%d, want 20/10", cfg.Games, cfg.Parallel)
				}
			},
		},
		{
			name: "positional games",
			args: []string{"50"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Games != 50 {
					t.Errorf("Games = %d, want 50", cfg.Games)
				}
			},
		},
		{
			name: "flags before and after games",
			args: []string{"--parallel", "4", "100", "--my-mode", "mcts", "--my-seconds=2.5", "--monitor"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Games != 100 {
					t.Errorf("Games = %d, want 100", cfg.Games)
				}
				if cfg.Parallel != 4 {
					t.Errorf("Parallel = %d, want 4", cfg.Parallel)
				}
				if cfg.MyMode != "mcts" || cfg.MySeconds != 2.5 {
					t.Errorf("mode=%q seconds=%v, want mcts/2.5", cfg.MyMode, cfg.MySeconds)
				}
				if !cfg.Monitor {
					t.Error("Monitor should be set")
				}
			},
		},
		{
			name: "timings and toggles",
			args: []string{"-ready-timeout", "5s", "-kill-grace", "1s", "-no-stream-server-log", "-tui", "-metrics", "127.0.0.1:9000"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.ReadyTimeout != 5*time.Second || cfg.KillGrace != time.Second {
					t.Errorf("ready=%v grace=%v", cfg.ReadyTimeout, cfg.KillGrace)
				}
				if !cfg.NoStreamServerLog || !cfg.TUIEnabled {
					t.Error("toggles should be set")
				}
				if cfg.MetricsAddr != "127.0.0.1:9000" {
					t.Errorf("MetricsAddr = %q", cfg.MetricsAddr)
				}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := ParseArgs(tc.args)
			if err != nil {
				t.Fatalf("ParseArgs(%v) error = %v", tc.args, err)
			}
			tc.check(t, cfg)
		})
	}
}

func TestParseArgs_Errors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"non-numeric games", []string{"many"}, "games"},
		{"two positionals", []string{"10", "20"}, "unexpected arguments"},
		{"unknown flag", []string{"--bogus"}, "bogus"},
		{"bad int", []string{"--parallel", "x"}, "parallel"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := ParseArgsWithOutput(tc.args, &out)
			if err == nil {
				t.Fatalf("ParseArgs(%v) should fail", tc.args)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestParseArgs_Help(t *testing.T) {
	var out bytes.Buffer
	_, err := ParseArgsWithOutput([]string{"-h"}, &out)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("error = %v, want flag.ErrHelp", err)
	}

	usage := out.String()
	for _, want := range []string{"Usage:", "--parallel", "--wall-timeout", "--skip-build", "(default 25033)"} {
		if !strings.Contains(usage, want) {
			t.Errorf("usage should contain %q", want)
		}
	}
}

func TestValidate_Invalid(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(cfg *Config)
		field  string
	}{
		{"zero games", func(c *Config) { c.Games = 0 }, "games"},
		{"negative parallel", func(c *Config) { c.Parallel = -1 }, "parallel"},
		{"empty host", func(c *Config) { c.Host = " " }, "host"},
		{"port zero", func(c *Config) { c.PortBase = 0 }, "port_base"},
		{"lanes past 65535", func(c *Config) { c.PortBase = 65530; c.Parallel = 10 }, "port_base"},
		{"mode with space", func(c *Config) { c.MyMode = "t t" }, "my_mode"},
		{"zero my seconds", func(c *Config) { c.MySeconds = 0 }, "my_seconds"},
		{"zero monte seconds", func(c *Config) { c.MonteSeconds = 0 }, "monte_seconds"},
		{"zero server timeout", func(c *Config) { c.ServerTimeout = 0 }, "server_timeout"},
		{"zero wall timeout", func(c *Config) { c.WallTimeout = 0 }, "wall_timeout"},
		{"bad glob", func(c *Config) { c.SrcGlob = "Src/[" }, "src_glob"},
		{"empty jar", func(c *Config) { c.ServerJar = "" }, "server_jar"},
		{"zero kill grace", func(c *Config) { c.KillGrace = 0 }, "kill_grace"},
		{"negative spawn gap", func(c *Config) { c.SpawnGap = -time.Millisecond }, "spawn_gap"},
		{"empty out dir", func(c *Config) { c.OutDir = "" }, "out_dir"},
		{"bad log format", func(c *Config) { c.LogFormat = "yaml" }, "log_format"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error should wrap a ValidationError: %v", err)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error should mention %s: %v", tc.field, err)
			}
		})
	}
}

func TestValidate_SkipBuildIgnoresCompiler(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkipBuild = true
	cfg.JavacPath = ""
	cfg.SrcGlob = ""

	if err := Validate(cfg); err != nil {
		t.Errorf("--skip-build should not require javac or sources: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Games = 0
	cfg.Parallel = 0
	cfg.LogFormat = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, field := range []string{"games", "parallel", "log_format"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("joined error should mention %s: %v", field, err)
		}
	}
}

func TestValidationError(t *testing.T) {
	err := ValidationError{Field: "parallel", Message: "must be at least 1"}
	if err.Error() != "parallel: must be at least 1" {
		t.Errorf("Error() = %q", err.Error())
	}
}
