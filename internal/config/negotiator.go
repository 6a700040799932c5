// Package config validates a requested container configuration before the
// irreversible creation call: port parsing and range checks, conflict
// detection against tracked containers, and data-directory checks. The only
// I/O performed here is the directory stat; everything else is pure, so the
// negotiator is fully testable without a daemon.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Port bounds accepted for the host side of the mapping. Ports below 1024
// would require elevated privileges and are rejected outright.
const (
	MinPort = 1024
	MaxPort = 65535
)

// Mode selects whether the session attaches to the container output after
// creation or leaves it in the background.
type Mode string

const (
	Foreground Mode = "foreground"
	Background Mode = "background"
)

// Structured rejections. All of them are recoverable by re-prompting.
var (
	ErrPortInvalid      = errors.New("port must be a whole number")
	ErrPortOutOfRange   = fmt.Errorf("port must be between %d and %d", MinPort, MaxPort)
	ErrPortInUse        = errors.New("port is used by another tracked container")
	ErrDirectoryMissing = errors.New("data directory does not exist")
	ErrNotADirectory    = errors.New("data path is not a directory")
	ErrInvalidMode      = errors.New("mode must be foreground or background")
)

// Request is the raw operator input to negotiate.
type Request struct {
	PortRaw string
	DataDir string // optional; relative paths resolve against the cwd
	Mode    Mode
}

// TrackedContainer is the slice of a persisted record that conflict
// detection needs.
type TrackedContainer struct {
	ID       string
	Name     string
	HostPort int
}

// RunningProbe answers whether a tracked container is currently running.
// The docker engine satisfies it; tests use a fake.
type RunningProbe interface {
	ContainerRunning(ctx context.Context, containerID string) (bool, error)
}

// Validated is a configuration that passed negotiation. DataDir, when set,
// is absolute with symlinks resolved.
type Validated struct {
	HostPort int
	DataDir  string
	Mode     Mode
}

// Negotiate validates the request against the tracked containers. A port
// owned by a tracked container is only a conflict while that container runs.
// A missing data directory is reported, never created: creation is an
// explicit opt-in via EnsureDataDir.
func Negotiate(ctx context.Context, req Request, tracked []TrackedContainer, probe RunningProbe) (Validated, error) {
	port, err := parsePort(req.PortRaw)
	if err != nil {
		return Validated{}, err
	}

	for _, c := range tracked {
		if c.HostPort != port {
			continue
		}
		running, err := probe.ContainerRunning(ctx, c.ID)
		if err != nil {
			return Validated{}, fmt.Errorf("failed to check container %s: %w", c.Name, err)
		}
		if running {
			return Validated{}, fmt.Errorf("%w: %d (container %s)", ErrPortInUse, port, c.Name)
		}
	}

	dataDir, err := resolveDataDir(req.DataDir)
	if err != nil {
		return Validated{}, err
	}

	if req.Mode != Foreground && req.Mode != Background {
		return Validated{}, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}

	return Validated{HostPort: port, DataDir: dataDir, Mode: req.Mode}, nil
}

// EnsureDataDir creates the directory (and parents) after the operator has
// explicitly opted in.
func EnsureDataDir(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve data directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", abs, err)
	}
	return nil
}

func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrPortInvalid, raw)
	}
	if port < MinPort || port > MaxPort {
		return 0, fmt.Errorf("%w: got %d", ErrPortOutOfRange, port)
	}
	return port, nil
}

func resolveDataDir(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve data directory: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrDirectoryMissing, abs)
		}
		return "", fmt.Errorf("failed to stat data directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotADirectory, abs)
	}

	// Resolve symlinks so the persisted record and the daemon bind agree.
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve data directory %s: %w", abs, err)
	}
	return resolved, nil
}
