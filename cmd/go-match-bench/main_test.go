package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "go-match-bench dev") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-h"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(stderr.String(), "Usage:") {
		t.Errorf("usage not printed: %q", stderr.String())
	}
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--no-such-flag"}, &stdout, &stderr); code != 2 {
		t.Errorf("exit = %d, want 2", code)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--parallel", "0"}, &stdout, &stderr); code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Configuration error") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRun_PrintCmd(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--print-cmd", "--log-format", "text", "--port-base", "26000", "--monitor", "4"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{
		"lane 0 (port 26000)",
		"java -Djava.awt.headless=false -jar Server/OthelloServer.jar -port 26000 -timeout 12 -monitor",
		"java -cp Src OthelloClientBench localhost 26000 tt 3.0",
		"java -cp TestSet OthelloMonteAI localhost 26000 10",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
