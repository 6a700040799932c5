// internal/docker/exec.go
package docker

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// Exec runs a command inside a running container and waits for it to finish.
// Stdout and stderr are demultiplexed from the attach stream; the exit code
// comes from inspecting the exec instance afterwards. A non-zero exit is
// reported as *ExecError so callers can surface code and stderr verbatim.
func (e *engine) Exec(ctx context.Context, containerID string, cmd []string) (ExecResult, error) {
	execConfig := types.ExecConfig{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	}

	execResp, err := e.client.docker.ContainerExecCreate(ctx, containerID, execConfig)
	if err != nil {
		if client.IsErrNotFound(err) {
			return ExecResult{}, fmt.Errorf("%w: %s", ErrNotFound, containerID)
		}
		return ExecResult{}, fmt.Errorf("failed to create exec: %w", err)
	}

	attach, err := e.client.docker.ContainerExecAttach(ctx, execResp.ID, types.ExecStartCheck{})
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to start exec: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return ExecResult{}, fmt.Errorf("failed to read exec output: %w", err)
	}

	inspect, err := e.client.docker.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to inspect exec: %w", err)
	}

	result := ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
	}
	if inspect.ExitCode != 0 {
		return result, &ExecError{
			ExitCode: inspect.ExitCode,
			Stderr:   strings.TrimSpace(result.Stderr),
		}
	}
	return result, nil
}
