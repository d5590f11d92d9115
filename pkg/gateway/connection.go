package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/fleak-ai/zephflow-go/pkg/artifacts"
	"github.com/fleak-ai/zephflow-go/pkg/preflight"
	"github.com/fleak-ai/zephflow-go/pkg/versioning"
)

// Options configures a Connection.
type Options struct {
	// Version is the engine release to run (default versioning.DefaultEngineVersion).
	Version string

	// Artifacts configures acquisition (override, cache dir, mirror, timeouts).
	Artifacts artifacts.Options

	// MinJavaMajor is the runtime preflight floor (default 17).
	MinJavaMajor int

	// JVMArgs are extra arguments placed before -jar.
	JVMArgs []string

	// Prober overrides the runtime probe (tests).
	Prober preflight.Prober
}

// engineProcess is the running JVM behind a connection.
type engineProcess interface {
	Stop(ctx context.Context) error
}

// launchEngine is swappable in tests.
var launchEngine = launchJVM

// Connection is a handle to a launched engine process. It is created by
// Connect, reused for its lifetime, and torn down by Shutdown. Most callers
// use the process-wide Default connection instead of owning one directly.
type Connection struct {
	mu      sync.Mutex
	version string
	jarPath string
	proc    engineProcess
}

// Connect runs the runtime preflight, resolves the engine artifact, and
// launches the engine process.
func Connect(ctx context.Context, opts Options) (*Connection, error) {
	version := opts.Version
	if version == "" {
		version = versioning.DefaultEngineVersion
	}

	// 1. Runtime preflight
	probe := opts.Prober
	if probe == nil {
		probe = preflight.JavaProber
	}
	if err := preflight.NewWithProber(opts.MinJavaMajor, probe).Run(ctx); err != nil {
		return nil, err
	}

	// 2. Artifact acquisition
	acquirer, err := artifacts.NewAcquirer(ctx, opts.Artifacts)
	if err != nil {
		return nil, err
	}
	jarPath, err := acquirer.Resolve(ctx, version)
	if err != nil {
		return nil, err
	}

	// 3. Launch
	proc, err := launchEngine(jarPath, opts.JVMArgs)
	if err != nil {
		return nil, fmt.Errorf("failed to launch engine: %w", err)
	}

	slog.Info("gateway: engine connected", "version", version, "jar", jarPath)
	return &Connection{version: version, jarPath: jarPath, proc: proc}, nil
}

// Version returns the engine release this connection runs.
func (c *Connection) Version() string { return c.version }

// JarPath returns the resolved artifact path.
func (c *Connection) JarPath() string { return c.jarPath }

// Shutdown terminates the engine process. Safe to call more than once.
func (c *Connection) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc == nil {
		return nil
	}
	err := c.proc.Stop(ctx)
	c.proc = nil
	if err != nil {
		return fmt.Errorf("engine shutdown: %w", err)
	}
	return nil
}

// Process-wide default connection: lazily created on first use, reused for
// the process lifetime. ResetDefault exists for tests.
var (
	defaultMu   sync.Mutex
	defaultConn *Connection
)

// Default returns the shared connection, creating it on first use. A second
// caller blocks until the first Connect completes and then observes its
// result or creates a fresh connection if the first failed.
func Default(ctx context.Context, opts Options) (*Connection, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultConn != nil {
		return defaultConn, nil
	}
	conn, err := Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	defaultConn = conn
	return conn, nil
}

// ResetDefault shuts down and forgets the shared connection.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultConn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = defaultConn.Shutdown(ctx)
		defaultConn = nil
	}
}

// jvmProcess wraps the engine JVM subprocess.
type jvmProcess struct {
	cmd *exec.Cmd
}

func launchJVM(jarPath string, jvmArgs []string) (engineProcess, error) {
	args := append(append([]string{}, jvmArgs...), "-jar", jarPath)
	//nolint:gosec // G204: jarPath comes from verified acquisition
	cmd := exec.Command("java", args...)
	if err := cmd.Start(); err != nil {
		return nil, err //nolint:wrapcheck // caller provides context
	}
	return &jvmProcess{cmd: cmd}, nil
}

// Stop asks the JVM to exit, escalating to a kill when the context expires.
func (p *jvmProcess) Stop(ctx context.Context) error {
	if p.cmd.Process == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()

	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-ctx.Done():
		_ = p.cmd.Process.Kill()
		if err := <-done; err != nil && !isExpectedExit(err) {
			return err //nolint:wrapcheck // exit error passed through
		}
		return nil
	case err := <-done:
		if err != nil && !isExpectedExit(err) {
			return err //nolint:wrapcheck // exit error passed through
		}
		return nil
	}
}

// isExpectedExit reports whether err is the process dying to our stop
// signal rather than a genuine failure.
func isExpectedExit(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && !exitErr.Exited()
}
