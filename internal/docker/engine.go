// internal/docker/engine.go
package docker

import (
	"context"
	"time"
)

// Fluree server containers always listen on 8090 and keep their data under
// a fixed path; only the host side of the mapping is configurable.
const (
	ContainerPort   = 8090
	DataMountTarget = "/opt/fluree-server/data"

	// ImageRepository is the canonical repository all managed containers run.
	ImageRepository = "fluree/server"
)

// State is the daemon-reported lifecycle state of a container, reduced to
// the three cases the session cares about.
type State string

const (
	StateRunning State = "running"
	StateExited  State = "exited"
	StateMissing State = "missing"
)

// Status is a point-in-time snapshot derived from an inspect call. It is
// never cached beyond a single display cycle.
type Status struct {
	ID        string
	Name      string
	State     State
	HostPort  int
	DataDir   string // host side of the data mount, empty if none
	StartedAt string // RFC3339, empty if the container never started
}

// CreateSpec describes a container to be created. Validation happens before
// this struct is built; the engine trusts it.
type CreateSpec struct {
	Name     string
	Image    string // full reference, e.g. fluree/server:stable
	HostPort int
	DataDir  string // absolute host path to bind-mount, empty for none
}

// StatsSample is one resource usage reading from the stats stream.
type StatsSample struct {
	CPUPercent    float64
	MemoryUsage   uint64
	MemoryLimit   uint64
	MemoryPercent float64
}

// ExecResult carries the outcome of a command executed inside a container.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ImageInfo describes a locally available image.
type ImageInfo struct {
	ID      string
	Tag     string // tag only, repository is always ImageRepository
	Size    int64
	Created time.Time
}

// PullProgress is one progress event from an image pull.
type PullProgress struct {
	Status   string `json:"status"`
	Progress string `json:"progress"`
	Error    string `json:"error"`
}

// Engine is the capability set the rest of the tool needs from the Docker
// daemon. It holds no durable state; all side effects live in the daemon.
// Start, Stop and Remove are idempotent: repeating them against a container
// already in the target state is a no-op success.
type Engine interface {
	CreateContainer(ctx context.Context, spec CreateSpec) (string, error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string, grace time.Duration) error
	RemoveContainer(ctx context.Context, containerID string, force bool) error

	// InspectContainer reports StateMissing (not an error) for unknown IDs
	// so that reconciliation can branch on it directly.
	InspectContainer(ctx context.Context, containerID string) (Status, error)

	// ContainerRunning is a convenience probe used during port negotiation.
	ContainerRunning(ctx context.Context, containerID string) (bool, error)

	// StreamStats delivers samples until the container stops, the stream
	// errors, or ctx is cancelled. The channel is closed on exit.
	StreamStats(ctx context.Context, containerID string) (<-chan StatsSample, error)

	// FetchLogs returns a finite snapshot of the last tail lines.
	FetchLogs(ctx context.Context, containerID string, tail int) ([]string, error)

	// Exec runs a command inside a running container and waits for it.
	// A non-zero exit code is returned as *ExecError alongside the result.
	Exec(ctx context.Context, containerID string, cmd []string) (ExecResult, error)

	ListLocalImages(ctx context.Context) ([]ImageInfo, error)
	ImageExists(ctx context.Context, reference string) (bool, error)
	PullImage(ctx context.Context, reference string, progress chan<- PullProgress) error
}
