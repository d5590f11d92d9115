package artifacts

import "errors"

// Acquisition failures. All are terminal for the Resolve call that raised
// them; callers decide whether to retry the whole resolution.
var (
	// ErrOverrideNotFound means the override environment variable pointed
	// at a path that is not a regular file.
	ErrOverrideNotFound = errors.New("override jar not found")

	// ErrVersionNotFound means the requested version has no release
	// artifact (malformed version string or remote 404).
	ErrVersionNotFound = errors.New("engine version not found")

	// ErrCorruptArtifact means a downloaded artifact failed verification.
	ErrCorruptArtifact = errors.New("corrupt artifact")

	// ErrNetwork means the download failed after the bounded retry policy
	// was exhausted.
	ErrNetwork = errors.New("artifact download failed")
)
