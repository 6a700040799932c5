package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProbe reports a fixed set of container IDs as running.
type fakeProbe struct {
	running map[string]bool
}

func (p *fakeProbe) ContainerRunning(_ context.Context, id string) (bool, error) {
	return p.running[id], nil
}

func TestNegotiateAcceptsPlainPort(t *testing.T) {
	got, err := Negotiate(context.Background(), Request{PortRaw: "8090", Mode: Background}, nil, &fakeProbe{})
	require.NoError(t, err)
	assert.Equal(t, 8090, got.HostPort)
	assert.Empty(t, got.DataDir)
	assert.Equal(t, Background, got.Mode)
}

func TestNegotiateRejectsMalformedPort(t *testing.T) {
	_, err := Negotiate(context.Background(), Request{PortRaw: "eight thousand", Mode: Background}, nil, &fakeProbe{})
	assert.ErrorIs(t, err, ErrPortInvalid)
}

func TestNegotiateRejectsPortOutOfRange(t *testing.T) {
	for _, raw := range []string{"0", "80", "1023", "65536", "-1"} {
		_, err := Negotiate(context.Background(), Request{PortRaw: raw, Mode: Background}, nil, &fakeProbe{})
		assert.ErrorIs(t, err, ErrPortOutOfRange, "port %s", raw)
	}
}

func TestNegotiatePortInUseByRunningContainer(t *testing.T) {
	tracked := []TrackedContainer{{ID: "abc123", Name: "dev", HostPort: 8090}}
	probe := &fakeProbe{running: map[string]bool{"abc123": true}}

	_, err := Negotiate(context.Background(), Request{PortRaw: "8090", Mode: Background}, tracked, probe)
	assert.ErrorIs(t, err, ErrPortInUse)

	// A different port passes against the same tracked set.
	got, err := Negotiate(context.Background(), Request{PortRaw: "8091", Mode: Background}, tracked, probe)
	require.NoError(t, err)
	assert.Equal(t, 8091, got.HostPort)
}

func TestNegotiatePortOfStoppedContainerIsFree(t *testing.T) {
	// The record exists but its container is not running, so the port can
	// be reused.
	tracked := []TrackedContainer{{ID: "abc123", Name: "dev", HostPort: 8090}}
	probe := &fakeProbe{running: map[string]bool{}}

	got, err := Negotiate(context.Background(), Request{PortRaw: "8090", Mode: Foreground}, tracked, probe)
	require.NoError(t, err)
	assert.Equal(t, 8090, got.HostPort)
}

func TestNegotiateMissingDataDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	_, err := Negotiate(context.Background(), Request{PortRaw: "8090", DataDir: missing, Mode: Background}, nil, &fakeProbe{})
	assert.ErrorIs(t, err, ErrDirectoryMissing)
}

func TestNegotiateDataDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := Negotiate(context.Background(), Request{PortRaw: "8090", DataDir: file, Mode: Background}, nil, &fakeProbe{})
	assert.ErrorIs(t, err, ErrNotADirectory)
}

func TestNegotiateResolvesDataDir(t *testing.T) {
	dir := t.TempDir()
	got, err := Negotiate(context.Background(), Request{PortRaw: "8090", DataDir: dir, Mode: Background}, nil, &fakeProbe{})
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got.DataDir))
}

func TestNegotiateRejectsUnknownMode(t *testing.T) {
	_, err := Negotiate(context.Background(), Request{PortRaw: "8090", Mode: "detached"}, nil, &fakeProbe{})
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestEnsureDataDirCreatesPath(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "data")
	require.NoError(t, EnsureDataDir(target))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Creating it again is harmless.
	assert.NoError(t, EnsureDataDir(target))
}
