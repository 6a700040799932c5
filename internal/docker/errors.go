// internal/docker/errors.go
package docker

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the Engine. Callers match them with errors.Is
// and decide whether to retry, re-prompt, or demote state. The adapter never
// substitutes one kind for another.
var (
	// ErrDaemonUnreachable means the Docker endpoint could not be reached at
	// all. Fatal to the current action, not to the session.
	ErrDaemonUnreachable = errors.New("docker daemon unreachable")

	// ErrNotFound means the referenced container no longer exists.
	ErrNotFound = errors.New("container not found")

	// ErrImageNotFound means the image reference does not resolve locally.
	ErrImageNotFound = errors.New("image not found")

	// ErrPortConflict means the daemon rejected the host port binding.
	ErrPortConflict = errors.New("host port already allocated")
)

// ExecError reports a command that ran inside a container and exited
// non-zero. The stderr excerpt is kept for verbatim display to the operator.
type ExecError struct {
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("command exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("command exited with code %d: %s", e.ExitCode, e.Stderr)
}
