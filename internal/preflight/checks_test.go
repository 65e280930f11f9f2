package preflight

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// fakeTool writes an executable script that prints output to stderr and exits with code.
func fakeTool(t *testing.T, name, output string, code int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	script := "#!/bin/sh\necho '" + output + "' >&2\nexit " + strconv.Itoa(code) + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// freePort returns a port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func find(result *Result, name string) (Check, bool) {
	for _, c := range result.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

// layout creates a server jar and one source file and returns Options for them.
func layout(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	jar := filepath.Join(dir, "OthelloServer.jar")
	if err := os.WriteFile(jar, []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "Src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Src", "A.java"), []byte("class A {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	return Options{
		Processes: 3,
		JavaPath:  fakeTool(t, "java", `openjdk version "17.0.2" 2022-01-18`, 0),
		JavacPath: fakeTool(t, "javac", "javac 17.0.2", 0),
		SrcGlob:   filepath.Join(dir, "Src", "*.java"),
		ServerJar: jar,
		PortBase:  freePort(t),
		Lanes:     1,
	}
}

func TestCheck_String(t *testing.T) {
	t.Run("passed_with_required", func(t *testing.T) {
		s := Check{Name: "test_check", Required: 100, Actual: 200, Passed: true}.String()
		if !strings.Contains(s, "✓") || !strings.Contains(s, "200") || !strings.Contains(s, "100") {
			t.Errorf("unexpected: %s", s)
		}
	})

	t.Run("failed_check", func(t *testing.T) {
		s := Check{Name: "test_check", Required: 100, Actual: 50}.String()
		if !strings.Contains(s, "✗") {
			t.Error("Failed check should have ✗")
		}
	})

	t.Run("warning_check", func(t *testing.T) {
		s := Check{Name: "test_check", Passed: true, Warning: true, Message: "warning message"}.String()
		if !strings.Contains(s, "⚠") || !strings.Contains(s, "warning message") {
			t.Errorf("unexpected: %s", s)
		}
	})
}

func TestRunAll_AllPass(t *testing.T) {
	opts := layout(t)
	result := RunAll(opts)

	for _, name := range []string{"file_descriptors", "process_limit", "java", "javac", "sources", "server_jar", "ports"} {
		if _, ok := find(result, name); !ok {
			t.Errorf("missing check %q", name)
		}
	}
	for _, name := range []string{"java", "javac", "sources", "server_jar", "ports"} {
		if c, _ := find(result, name); !c.Passed {
			t.Errorf("%s should pass: %s", name, c.Message)
		}
	}
	if c, _ := find(result, "java"); !strings.Contains(c.Message, "17.0.2") {
		t.Errorf("java version not parsed: %s", c.Message)
	}
}

func TestRunAll_SkipBuild(t *testing.T) {
	opts := layout(t)
	opts.SkipBuild = true
	opts.JavacPath = "/nonexistent/javac"
	opts.SrcGlob = "/nonexistent/*.java"

	result := RunAll(opts)
	if _, ok := find(result, "javac"); ok {
		t.Error("javac should not be checked with SkipBuild")
	}
	if _, ok := find(result, "sources"); ok {
		t.Error("sources should not be checked with SkipBuild")
	}
}

func TestRunAll_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		check  string
		want   string
	}{
		{"missing java", func(o *Options) { o.JavaPath = "/nonexistent/java" }, "java", "failed to run"},
		{"java exits non-zero", func(o *Options) { o.JavaPath = fakeTool(t, "java", "boom", 1) }, "java", "failed to run"},
		{"missing javac", func(o *Options) { o.JavacPath = "/nonexistent/javac" }, "javac", "failed to run"},
		{"no sources", func(o *Options) { o.SrcGlob = filepath.Join(t.TempDir(), "*.java") }, "sources", "no Java sources"},
		{"missing jar", func(o *Options) { o.ServerJar = "/nonexistent/OthelloServer.jar" }, "server_jar", "missing"},
		{"jar is a directory", func(o *Options) { o.ServerJar = t.TempDir() }, "server_jar", "is a directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := layout(t)
			tt.mutate(&opts)

			result := RunAll(opts)
			if result.Passed {
				t.Error("Result should fail")
			}
			c, ok := find(result, tt.check)
			if !ok {
				t.Fatalf("missing check %q", tt.check)
			}
			if c.Passed {
				t.Errorf("%s should fail", tt.check)
			}
			if !strings.Contains(c.Message, tt.want) {
				t.Errorf("message %q should contain %q", c.Message, tt.want)
			}
		})
	}
}

func TestCheckPorts_Busy(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	c := checkPorts(port, 1)
	if c.Passed {
		t.Fatal("bound port should fail the check")
	}
	if c.Actual != 0 || c.Required != 1 {
		t.Errorf("Actual/Required = %d/%d, want 0/1", c.Actual, c.Required)
	}
	if !strings.Contains(c.Message, "in use") {
		t.Errorf("message = %q", c.Message)
	}
}

func TestCheckFileDescriptors(t *testing.T) {
	c := checkFileDescriptors(3)
	if c.Warning {
		t.Skip("rlimit unavailable")
	}
	if c.Actual <= 0 || c.Required <= 0 {
		t.Errorf("Actual/Required = %d/%d, both should be positive", c.Actual, c.Required)
	}
}

func TestCheckProcessLimit_Huge(t *testing.T) {
	c := checkProcessLimit(1_000_000)
	if c.Warning {
		t.Skip("rlimit unavailable")
	}
	if c.Passed {
		t.Error("an absurd process count should not pass")
	}
}

func TestParseJavaVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"openjdk version \"17.0.2\" 2022-01-18\nOpenJDK Runtime Environment", "17.0.2"},
		{"java version \"1.8.0_292\"", "1.8.0_292"},
		{"javac 21.0.1\n", "21.0.1"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := parseJavaVersion(tt.output); got != tt.want {
			t.Errorf("parseJavaVersion(%q) = %q, want %q", tt.output, got, tt.want)
		}
	}
}

func TestPrintResults(t *testing.T) {
	result := &Result{
		Checks: []Check{
			{Name: "java", Passed: true, Message: "found"},
			{Name: "ports", Required: 2, Actual: 1, Message: "in use: 25034"},
		},
	}
	var buf bytes.Buffer
	PrintResults(&buf, result)
	out := buf.String()

	for _, want := range []string{"Preflight checks:", "✓ java", "✗ ports", "in use: 25034", "--port-base"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(result.Failed()) != 1 {
		t.Errorf("Failed() = %d, want 1", len(result.Failed()))
	}
}

func TestSuggestFix(t *testing.T) {
	for _, name := range []string{"file_descriptors", "process_limit", "java", "javac", "sources", "server_jar", "ports", "other"} {
		if suggestFix(name) == "" {
			t.Errorf("suggestFix(%q) is empty", name)
		}
	}
}
