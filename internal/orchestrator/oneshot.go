package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/fluree-labs/flok/internal/docker"
	"github.com/fluree-labs/flok/internal/ledger"
	"github.com/fluree-labs/flok/internal/state"
)

// One-shot operations for the non-interactive subcommands. Each loads the
// record fresh, acts once, and persists whatever changed.

// Status returns the tracked record and its live status for one display
// cycle.
func (s *Session) Status(ctx context.Context) (state.ContainerRecord, docker.Status, error) {
	s.prefs = s.store.Load()

	rec, ok := s.prefs.LastUsedRecord()
	if !ok {
		return state.ContainerRecord{}, docker.Status{}, ErrNoTrackedContainer
	}

	status, err := s.engine.InspectContainer(ctx, rec.ID)
	if err != nil {
		return rec, docker.Status{}, fmt.Errorf("failed to inspect container %s: %w", rec.Name, err)
	}
	return rec, status, nil
}

// Stop stops the tracked container. Stopping an already-stopped container
// succeeds.
func (s *Session) Stop(ctx context.Context) (state.ContainerRecord, error) {
	s.prefs = s.store.Load()

	rec, ok := s.prefs.LastUsedRecord()
	if !ok {
		return state.ContainerRecord{}, ErrNoTrackedContainer
	}

	if err := s.engine.StopContainer(ctx, rec.ID, stopGrace); err != nil {
		return rec, fmt.Errorf("failed to stop container %s: %w", rec.Name, err)
	}
	return rec, nil
}

// Destroy stops and removes the tracked container and drops its record.
// A container already removed outside this tool still clears the record.
func (s *Session) Destroy(ctx context.Context) (state.ContainerRecord, error) {
	s.prefs = s.store.Load()

	rec, ok := s.prefs.LastUsedRecord()
	if !ok {
		return state.ContainerRecord{}, ErrNoTrackedContainer
	}

	if err := s.engine.StopContainer(ctx, rec.ID, stopGrace); err != nil && !errors.Is(err, docker.ErrNotFound) {
		return rec, fmt.Errorf("failed to stop container %s: %w", rec.Name, err)
	}
	if err := s.engine.RemoveContainer(ctx, rec.ID, true); err != nil {
		return rec, fmt.Errorf("failed to remove container %s: %w", rec.Name, err)
	}

	s.dropRecord(rec.ID)
	return rec, nil
}

// Ledgers lists the ledgers inside the tracked container, which must be
// running.
func (s *Session) Ledgers(ctx context.Context) ([]ledger.Summary, []string, error) {
	s.prefs = s.store.Load()

	rec, ok := s.prefs.LastUsedRecord()
	if !ok {
		return nil, nil, ErrNoTrackedContainer
	}

	running, err := s.engine.ContainerRunning(ctx, rec.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to inspect container %s: %w", rec.Name, err)
	}
	if !running {
		return nil, nil, fmt.Errorf("container %s is not running", rec.Name)
	}

	return s.ledgers.List(ctx, rec.ID)
}
