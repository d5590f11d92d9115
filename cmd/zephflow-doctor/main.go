// zephflow-doctor checks a machine's readiness to run the ZephFlow engine:
// it probes the Java runtime and resolves the engine artifact, reporting
// what a real client would see.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fleak-ai/zephflow-go/pkg/artifacts"
	"github.com/fleak-ai/zephflow-go/pkg/config"
	"github.com/fleak-ai/zephflow-go/pkg/preflight"
)

func main() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

// Hooks for tests.
var (
	runPreflight    = defaultPreflight
	resolveArtifact = defaultResolve
)

// Run is the entrypoint, split out for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("zephflow-doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	version := fs.String("version", "", "engine version to check (default: configured version)")
	timeout := fs.Duration("timeout", 2*time.Minute, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *version != "" {
		cfg.EngineVersion = *version
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ok := true

	if err := runPreflight(ctx, cfg.MinJavaMajor); err != nil {
		fmt.Fprintf(stdout, "java runtime: FAIL (%v)\n", err)
		ok = false
	} else {
		fmt.Fprintf(stdout, "java runtime: OK (major >= %d)\n", cfg.MinJavaMajor)
	}

	path, err := resolveArtifact(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stdout, "engine jar %s: FAIL (%v)\n", cfg.EngineVersion, err)
		ok = false
	} else {
		fmt.Fprintf(stdout, "engine jar %s: OK (%s)\n", cfg.EngineVersion, path)
	}

	if !ok {
		return 1
	}
	return 0
}

func defaultPreflight(ctx context.Context, minMajor int) error {
	return preflight.New(minMajor).Run(ctx)
}

func defaultResolve(ctx context.Context, cfg *config.Config) (string, error) {
	a, err := artifacts.NewAcquirer(ctx, artifacts.Options{
		OverridePath: cfg.MainJarOverride,
		CacheDir:     cfg.CacheDir,
		RepoURL:      cfg.RepoURL,
		MirrorURL:    cfg.ArtifactMirror,
		HTTPTimeout:  cfg.HTTPTimeout,
	})
	if err != nil {
		return "", err //nolint:wrapcheck // surfaced verbatim to the operator
	}
	return a.Resolve(ctx, cfg.EngineVersion) //nolint:wrapcheck // surfaced verbatim
}
