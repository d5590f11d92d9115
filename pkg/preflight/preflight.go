// Package preflight validates the external Java runtime before the engine
// is launched: the probe must start and report a major version at or above
// the configured floor.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// DefaultMinMajor is the minimum Java major version the engine supports.
const DefaultMinMajor = 17

var (
	// ErrRuntimeUnavailable means the probe process could not start or its
	// output carried no version token.
	ErrRuntimeUnavailable = errors.New("java runtime unavailable")

	// ErrRuntimeTooOld means the detected major version is below the floor.
	ErrRuntimeTooOld = errors.New("java runtime too old")
)

// Prober runs the version probe and returns its combined output.
// `java -version` writes to stderr by JVM convention, so both streams
// are captured.
type Prober func(ctx context.Context) ([]byte, error)

// JavaProber is the default probe: a `java -version` subprocess.
func JavaProber(ctx context.Context) ([]byte, error) {
	//nolint:gosec // G204: fixed binary name, no caller input
	return exec.CommandContext(ctx, "java", "-version").CombinedOutput()
}

// Check is a process-lifetime runtime preflight. The probe runs at most
// once; every later Run returns the memoized result until Reset.
type Check struct {
	mu       sync.Mutex
	done     bool
	result   error
	minMajor int
	probe    Prober
}

// New creates a check with the given version floor. A floor <= 0 selects
// DefaultMinMajor.
func New(minMajor int) *Check {
	return NewWithProber(minMajor, JavaProber)
}

// NewWithProber creates a check with an injected probe (tests, exotic
// runtime layouts).
func NewWithProber(minMajor int, probe Prober) *Check {
	if minMajor <= 0 {
		minMajor = DefaultMinMajor
	}
	return &Check{minMajor: minMajor, probe: probe}
}

// Run performs the preflight, memoizing the outcome. Concurrent callers
// serialize on the first probe and observe its result.
func (c *Check) Run(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done {
		return c.result
	}
	c.result = c.run(ctx)
	c.done = true
	return c.result
}

// Reset discards the memoized probe result so the next Run re-probes.
func (c *Check) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = false
	c.result = nil
}

func (c *Check) run(ctx context.Context) error {
	out, err := c.probe(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}

	major, err := parseMajor(string(out))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}

	if major < c.minMajor {
		return fmt.Errorf("%w: Java %d or higher is required, found Java %d",
			ErrRuntimeTooOld, c.minMajor, major)
	}

	slog.Debug("preflight: java runtime ok", "major", major, "floor", c.minMajor)
	return nil
}

var versionRe = regexp.MustCompile(`version "([0-9]+)(?:\.([0-9]+))?[^"]*"`)

// parseMajor extracts the Java major version from probe output. The legacy
// "1.x" scheme (Java 8 and earlier) maps to x.
func parseMajor(out string) (int, error) {
	m := versionRe.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("no version token in probe output %q", firstLine(out))
	}

	major, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("unparseable version token %q", m[1])
	}
	if major == 1 && m[2] != "" {
		major, err = strconv.Atoi(m[2])
		if err != nil {
			return 0, fmt.Errorf("unparseable legacy version token %q", m[2])
		}
	}
	return major, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
