// internal/docker/stats.go
package docker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
)

// StreamStats opens the daemon's stats stream for a container and delivers
// one StatsSample per reading. The stream ends — and the channel closes —
// when the container stops, the daemon ends the stream, or ctx is cancelled.
// Cancelling ctx affects only this stream.
func (e *engine) StreamStats(ctx context.Context, containerID string) (<-chan StatsSample, error) {
	resp, err := e.client.docker.ContainerStats(ctx, containerID, true)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, containerID)
		}
		return nil, fmt.Errorf("failed to get container stats: %w", err)
	}

	samples := make(chan StatsSample)
	go func() {
		defer close(samples)
		defer resp.Body.Close()

		decoder := json.NewDecoder(resp.Body)
		for {
			var stats types.StatsJSON
			if err := decoder.Decode(&stats); err != nil {
				return
			}
			select {
			case samples <- calculateSample(&stats):
			case <-ctx.Done():
				return
			}
		}
	}()

	return samples, nil
}

// calculateSample derives CPU and memory percentages the same way the
// docker stats command does: CPU from the delta against the previous
// reading, memory against the cgroup limit.
func calculateSample(stats *types.StatsJSON) StatsSample {
	cpuDelta := float64(stats.CPUStats.CPUUsage.TotalUsage) - float64(stats.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(stats.CPUStats.SystemUsage) - float64(stats.PreCPUStats.SystemUsage)

	cpuPercent := 0.0
	if systemDelta > 0.0 && cpuDelta > 0.0 {
		online := float64(stats.CPUStats.OnlineCPUs)
		if online == 0 {
			online = float64(len(stats.CPUStats.CPUUsage.PercpuUsage))
		}
		if online == 0 {
			online = 1
		}
		cpuPercent = (cpuDelta / systemDelta) * online * 100.0
	}

	memoryPercent := 0.0
	if stats.MemoryStats.Limit > 0 {
		memoryPercent = (float64(stats.MemoryStats.Usage) / float64(stats.MemoryStats.Limit)) * 100.0
	}

	return StatsSample{
		CPUPercent:    cpuPercent,
		MemoryUsage:   stats.MemoryStats.Usage,
		MemoryLimit:   stats.MemoryStats.Limit,
		MemoryPercent: memoryPercent,
	}
}
