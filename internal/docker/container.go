// internal/docker/container.go
package docker

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

// CreateContainer creates a container from the spec. The container is not
// started; the caller decides when, so a failed start can still be rolled
// back by removing the created container.
func (e *engine) CreateContainer(ctx context.Context, spec CreateSpec) (string, error) {
	exposedPorts, portBindings, err := portBindings(spec.HostPort)
	if err != nil {
		return "", err
	}

	containerConfig := &container.Config{
		Image:        spec.Image,
		ExposedPorts: exposedPorts,
	}

	hostConfig := &container.HostConfig{
		PortBindings: portBindings,
	}
	if spec.DataDir != "" {
		hostConfig.Binds = []string{bindSpec(spec.DataDir)}
	}

	resp, err := e.client.docker.ContainerCreate(
		ctx,
		containerConfig,
		hostConfig,
		nil, // NetworkingConfig
		nil, // Platform
		spec.Name,
	)
	if err != nil {
		switch {
		case client.IsErrNotFound(err):
			return "", fmt.Errorf("%w: %s", ErrImageNotFound, spec.Image)
		case isPortAllocated(err):
			return "", fmt.Errorf("%w: %d", ErrPortConflict, spec.HostPort)
		case client.IsErrConnectionFailed(err):
			return "", fmt.Errorf("%w: %v", ErrDaemonUnreachable, err)
		}
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	return resp.ID, nil
}

// StartContainer starts a container. Starting an already-running container
// is a no-op success.
func (e *engine) StartContainer(ctx context.Context, containerID string) error {
	status, err := e.InspectContainer(ctx, containerID)
	if err != nil {
		return err
	}
	switch status.State {
	case StateMissing:
		return fmt.Errorf("%w: %s", ErrNotFound, containerID)
	case StateRunning:
		return nil
	}

	if err := e.client.docker.ContainerStart(ctx, containerID, types.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	return nil
}

// StopContainer stops a container, giving its process the grace period
// before the daemon escalates to SIGKILL. Stopping an already-stopped
// container is a no-op success.
func (e *engine) StopContainer(ctx context.Context, containerID string, grace time.Duration) error {
	status, err := e.InspectContainer(ctx, containerID)
	if err != nil {
		return err
	}
	switch status.State {
	case StateMissing:
		return fmt.Errorf("%w: %s", ErrNotFound, containerID)
	case StateExited:
		return nil
	}

	seconds := int(grace.Seconds())
	if err := e.client.docker.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &seconds}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}

// RemoveContainer removes a container. Removing a container that is already
// gone is a no-op success.
func (e *engine) RemoveContainer(ctx context.Context, containerID string, force bool) error {
	err := e.client.docker.ContainerRemove(ctx, containerID, types.ContainerRemoveOptions{
		Force:         force,
		RemoveVolumes: false, // keep data by default
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// InspectContainer reports the daemon's view of a container. An unknown ID
// yields StateMissing rather than an error so that reconciliation can branch
// on the snapshot alone.
func (e *engine) InspectContainer(ctx context.Context, containerID string) (Status, error) {
	inspect, err := e.client.docker.ContainerInspect(ctx, containerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return Status{ID: containerID, State: StateMissing}, nil
		}
		if client.IsErrConnectionFailed(err) {
			return Status{}, fmt.Errorf("%w: %v", ErrDaemonUnreachable, err)
		}
		return Status{}, fmt.Errorf("failed to inspect container: %w", err)
	}

	status := Status{
		ID:    inspect.ID,
		Name:  strings.TrimPrefix(inspect.Name, "/"),
		State: StateExited,
	}
	if inspect.State != nil {
		if inspect.State.Running {
			status.State = StateRunning
		}
		status.StartedAt = inspect.State.StartedAt
	}
	if inspect.HostConfig != nil {
		status.HostPort = hostPortFromBindings(inspect.HostConfig.PortBindings)
		status.DataDir = dataDirFromBinds(inspect.HostConfig.Binds)
	}

	return status, nil
}

// ContainerRunning reports whether the container currently runs. A missing
// container is simply not running.
func (e *engine) ContainerRunning(ctx context.Context, containerID string) (bool, error) {
	status, err := e.InspectContainer(ctx, containerID)
	if err != nil {
		return false, err
	}
	return status.State == StateRunning, nil
}

// FetchLogs returns the last tail lines of container output. The daemon
// multiplexes stdout and stderr into one stream; both end up in order here.
func (e *engine) FetchLogs(ctx context.Context, containerID string, tail int) ([]string, error) {
	options := types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
	}
	if tail > 0 {
		options.Tail = strconv.Itoa(tail)
	}

	reader, err := e.client.docker.ContainerLogs(ctx, containerID, options)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, containerID)
		}
		return nil, fmt.Errorf("failed to get container logs: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, reader); err != nil {
		return nil, fmt.Errorf("failed to read container logs: %w", err)
	}

	return splitLogLines(buf.String()), nil
}

// portBindings builds the exposed-port set and host binding for the fixed
// container port.
func portBindings(hostPort int) (nat.PortSet, nat.PortMap, error) {
	containerPort, err := nat.NewPort("tcp", strconv.Itoa(ContainerPort))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid container port: %w", err)
	}

	portSet := nat.PortSet{containerPort: struct{}{}}
	portMap := nat.PortMap{
		containerPort: []nat.PortBinding{
			{
				HostIP:   "0.0.0.0",
				HostPort: strconv.Itoa(hostPort),
			},
		},
	}
	return portSet, portMap, nil
}

// bindSpec renders a host directory as a bind-mount argument for the fixed
// data target. Backslashes are normalized for Docker Desktop on Windows.
func bindSpec(hostDir string) string {
	hostDir = strings.TrimRight(strings.ReplaceAll(hostDir, `\`, "/"), "/")
	return fmt.Sprintf("%s:%s:rw", hostDir, DataMountTarget)
}

// hostPortFromBindings extracts the mapped host port for the container port,
// falling back to the container port itself when no binding is recorded.
func hostPortFromBindings(bindings nat.PortMap) int {
	key := nat.Port(fmt.Sprintf("%d/tcp", ContainerPort))
	for _, binding := range bindings[key] {
		if port, err := strconv.Atoi(binding.HostPort); err == nil {
			return port
		}
	}
	return ContainerPort
}

// dataDirFromBinds returns the host side of the data mount, if present.
func dataDirFromBinds(binds []string) string {
	for _, bind := range binds {
		// host:target[:options]; the target identifies the data mount.
		parts := strings.Split(bind, ":")
		if len(parts) >= 2 && parts[1] == DataMountTarget {
			return parts[0]
		}
	}
	return ""
}

// splitLogLines splits raw log output into lines, dropping the trailing
// empty element a final newline produces.
func splitLogLines(raw string) []string {
	if raw == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// isPortAllocated matches the daemon's bind rejection message.
func isPortAllocated(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "port is already allocated") ||
		strings.Contains(msg, "address already in use")
}
