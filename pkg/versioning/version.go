// Package versioning maps ZephFlow engine versions to their released artifacts.
// This package implements SemVer 2.0.0 (https://semver.org) handling for the
// client/engine version contract.
package versioning

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DefaultEngineVersion is the engine release this client was developed against.
// Callers may request any other release; compatibility is enforced at the
// major.minor level.
const DefaultEngineVersion = "0.4.0"

// DefaultRepoURL is the canonical release repository for engine artifacts.
const DefaultRepoURL = "https://github.com/fleak-ai/zephflow"

const (
	artifactBase = "zephflow-main"
	artifactExt  = "jar"
)

// Parse parses a semantic version string. A leading "v" is accepted.
func Parse(version string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return nil, fmt.Errorf("invalid engine version %q: %w", version, err)
	}
	return v, nil
}

// Compatible reports whether two versions can talk to each other.
// Client and engine must agree on major.minor; patch drift is allowed.
func Compatible(a, b *semver.Version) bool {
	return a.Major() == b.Major() && a.Minor() == b.Minor()
}

// Catalog resolves engine versions to artifact filenames and canonical
// download locations.
type Catalog struct {
	repoURL string
}

// NewCatalog creates a catalog rooted at repoURL, falling back to the
// canonical repository when repoURL is empty.
func NewCatalog(repoURL string) *Catalog {
	if repoURL == "" {
		repoURL = DefaultRepoURL
	}
	return &Catalog{repoURL: strings.TrimRight(repoURL, "/")}
}

// ArtifactName returns the release artifact filename for a version,
// e.g. "zephflow-main-0.4.0-all.jar".
func (c *Catalog) ArtifactName(version string) string {
	return fmt.Sprintf("%s-%s-all.%s", artifactBase, version, artifactExt)
}

// DownloadURL returns the canonical release download URL for a version.
func (c *Catalog) DownloadURL(version string) string {
	return fmt.Sprintf("%s/releases/download/v%s/%s", c.repoURL, version, c.ArtifactName(version))
}
