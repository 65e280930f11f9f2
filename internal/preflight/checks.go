// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/randomizedcoder/go-match-bench/internal/process"
)

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// Options describes the run the checks are sized for.
type Options struct {
	// Processes is the peak number of external processes (3 per lane).
	Processes int

	JavaPath  string
	JavacPath string
	SrcGlob   string
	SkipBuild bool
	ServerJar string

	// PortBase and Lanes select the ports that must be free.
	PortBase int
	Lanes    int
}

// Each JVM runs a few dozen threads and RLIMIT_NPROC counts threads.
const threadsPerJVM = 32

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

func (r *Result) add(c Check) {
	r.Checks = append(r.Checks, c)
	if !c.Passed {
		r.Passed = false
	}
}

// RunAll executes all preflight checks.
func RunAll(opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 7),
		Passed: true,
	}

	result.add(checkFileDescriptors(opts.Processes))
	result.add(checkProcessLimit(opts.Processes))
	result.add(checkJava("java", opts.JavaPath, "-version"))
	if !opts.SkipBuild {
		result.add(checkJava("javac", opts.JavacPath, "-version"))
		result.add(checkSources(opts.SrcGlob))
	}
	result.add(checkFile("server_jar", opts.ServerJar))
	result.add(checkPorts(opts.PortBase, opts.Lanes))

	return result
}

// checkFileDescriptors verifies sufficient file descriptors are available.
func checkFileDescriptors(processes int) Check {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("unable to check: %v", err),
		}
	}

	// A log file and a pipe per process, plus the orchestrator itself.
	required := processes*4 + 64
	actual := clampLimit(limit.Cur)

	return Check{
		Name:     "file_descriptors",
		Required: required,
		Actual:   actual,
		Passed:   actual >= required,
		Message:  fmt.Sprintf("ulimit -n %d (need %d for %d processes)", actual, required, processes),
	}
}

// checkProcessLimit verifies sufficient process slots are available.
func checkProcessLimit(processes int) Check {
	required := processes*threadsPerJVM + 50

	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NPROC, &limit); err != nil {
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to determine (assuming OK)",
		}
	}
	actual := clampLimit(limit.Cur)

	return Check{
		Name:     "process_limit",
		Required: required,
		Actual:   actual,
		Passed:   actual >= required,
		Message:  fmt.Sprintf("ulimit -u %d (need %d)", actual, required),
	}
}

func clampLimit(v uint64) int {
	if v > 1_000_000 {
		return 1_000_000
	}
	return int(v)
}

// checkJava verifies a JDK tool runs and reports its version.
func checkJava(name, path string, args ...string) Check {
	// java -version writes to stderr.
	output, err := exec.Command(path, args...).CombinedOutput()
	if err != nil {
		return Check{
			Name:    name,
			Passed:  false,
			Message: fmt.Sprintf("failed to run %s: %v", path, err),
		}
	}

	return Check{
		Name:    name,
		Passed:  true,
		Message: fmt.Sprintf("found at %s (version %s)", path, parseJavaVersion(string(output))),
	}
}

// parseJavaVersion extracts the version from the first line of
// `java -version` ("openjdk version "17.0.2" 2022-01-18") or
// `javac -version` ("javac 17.0.2").
func parseJavaVersion(output string) string {
	line, _, _ := strings.Cut(output, "\n")
	if i := strings.IndexByte(line, '"'); i >= 0 {
		if j := strings.IndexByte(line[i+1:], '"'); j >= 0 {
			return line[i+1 : i+1+j]
		}
	}
	fields := strings.Fields(line)
	if len(fields) >= 2 {
		return fields[1]
	}
	return "unknown"
}

// checkSources verifies the player sources exist.
func checkSources(glob string) Check {
	sources, err := process.FindSources(glob)
	if err != nil {
		return Check{
			Name:    "sources",
			Passed:  false,
			Message: err.Error(),
		}
	}
	return Check{
		Name:    "sources",
		Passed:  true,
		Message: fmt.Sprintf("%d files match %s", len(sources), glob),
	}
}

// checkFile verifies a required file exists.
func checkFile(name, path string) Check {
	info, err := os.Stat(path)
	if err != nil {
		return Check{
			Name:    name,
			Passed:  false,
			Message: fmt.Sprintf("missing %s: %v", path, err),
		}
	}
	if info.IsDir() {
		return Check{
			Name:    name,
			Passed:  false,
			Message: fmt.Sprintf("%s is a directory", path),
		}
	}
	return Check{
		Name:    name,
		Passed:  true,
		Message: path,
	}
}

// checkPorts verifies every lane port can be bound.
func checkPorts(base, lanes int) Check {
	var busy []string
	for i := 0; i < lanes; i++ {
		port := base + i
		ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
		if err != nil {
			busy = append(busy, strconv.Itoa(port))
			continue
		}
		ln.Close()
	}

	c := Check{
		Name:     "ports",
		Required: lanes,
		Actual:   lanes - len(busy),
		Passed:   len(busy) == 0,
	}
	if len(busy) > 0 {
		c.Message = "in use: " + strings.Join(busy, ",")
	}
	return c
}

// Failed returns the checks that did not pass.
func (r *Result) Failed() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// PrintResults prints the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			if check.Message != "" && check.Required > 0 {
				fmt.Fprintf(w, "    %s\n", check.Message)
			}
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "file_descriptors":
		return "ulimit -n 8192 (or edit /etc/security/limits.conf)"
	case "process_limit":
		return "ulimit -u 16384 (or lower --parallel)"
	case "java", "javac":
		return "install a JDK (apt install default-jdk / brew install openjdk) or pass --java/--javac"
	case "sources":
		return "run from the project root or pass --src-glob"
	case "server_jar":
		return "pass --server-jar with the path to OthelloServer.jar"
	case "ports":
		return "stop the processes holding the ports or change --port-base"
	default:
		return "see --help"
	}
}
