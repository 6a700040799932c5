// internal/docker/client.go
package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"
)

// Client wraps the Docker SDK client with flok-specific functionality.
type Client struct {
	docker *client.Client
}

// NewClient creates a Docker client from the environment and verifies the
// daemon is reachable before returning it.
func NewClient(ctx context.Context) (*Client, error) {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	// Test connection
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnreachable, err)
	}

	return &Client{docker: cli}, nil
}

// Close closes the Docker client connection.
func (c *Client) Close() error {
	return c.docker.Close()
}

// IsDaemonRunning checks if the Docker daemon is still accessible.
func (c *Client) IsDaemonRunning(ctx context.Context) bool {
	_, err := c.docker.Ping(ctx)
	return err == nil
}

// Engine returns the capability interface backed by this client.
func (c *Client) Engine() Engine {
	return &engine{client: c}
}

// engine implements Engine against a live daemon.
type engine struct {
	client *Client
}
