// Package orchestrator drives the container lifecycle state machine: it
// reconciles the persisted record against daemon-reported truth, negotiates
// configuration before creation, and is the single place mutating actions
// are authorized from. Every transition that mutates daemon state saves the
// record immediately after the daemon call succeeds, so a crash between the
// two is self-healing at the next reconcile.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fluree-labs/flok/internal/config"
	"github.com/fluree-labs/flok/internal/docker"
	"github.com/fluree-labs/flok/internal/hub"
	"github.com/fluree-labs/flok/internal/ledger"
	"github.com/fluree-labs/flok/internal/state"
)

// Phase is one state of the session state machine.
type Phase int

const (
	PhaseReconcile Phase = iota
	PhaseAwaitSelection
	PhaseAwaitResume
	PhaseCreating
	PhaseManaging
	PhaseExit
)

const (
	// DefaultContainerName seeds the name prompt.
	DefaultContainerName = "fluree-server"

	// stopGrace is how long a container gets to shut down cleanly before the
	// daemon escalates.
	stopGrace = 10 * time.Second

	logTailLines = 100
)

// ErrNoTrackedContainer is returned by the one-shot operations when the
// preferences record tracks nothing.
var ErrNoTrackedContainer = errors.New("no tracked container")

// TagLister supplies the published image tags. The hub client satisfies it.
type TagLister interface {
	Tags(ctx context.Context) ([]hub.Tag, error)
}

// createRequest carries the operator's raw choices from selection into the
// creating phase, where negotiation validates them.
type createRequest struct {
	name    string
	image   string
	portRaw string
	dataDir string
	mode    config.Mode
}

// Session is one interactive session against one daemon connection. It owns
// the only in-memory copy of the preferences record and is the sole writer
// of the store.
type Session struct {
	engine   docker.Engine
	store    *state.Store
	registry TagLister
	ledgers  *ledger.Manager
	ui       UI

	prefs   state.Preferences
	pending *createRequest
}

// NewSession wires a session from its collaborators.
func NewSession(engine docker.Engine, store *state.Store, registry TagLister, ui UI) *Session {
	return &Session{
		engine:   engine,
		store:    store,
		registry: registry,
		ledgers:  ledger.NewManager(engine),
		ui:       ui,
	}
}

// Run drives the state machine until the operator exits. The preferences
// record is persisted on the way out regardless of how the session ends.
func (s *Session) Run(ctx context.Context) error {
	s.prefs = s.store.Load()

	phase := PhaseReconcile
	for phase != PhaseExit {
		var err error
		switch phase {
		case PhaseReconcile:
			phase, err = s.reconcile(ctx)
		case PhaseAwaitSelection:
			phase, err = s.awaitSelection(ctx)
		case PhaseAwaitResume:
			phase, err = s.awaitResume(ctx)
		case PhaseCreating:
			phase, err = s.creating(ctx)
		case PhaseManaging:
			phase, err = s.managing(ctx)
		}
		if err != nil {
			s.persist()
			return err
		}
	}

	s.persist()
	return nil
}

// reconcile compares the persisted record against the daemon. A missing
// container drops the record; a running one goes straight to managing
// without prompting.
func (s *Session) reconcile(ctx context.Context) (Phase, error) {
	rec, ok := s.prefs.LastUsedRecord()
	if !ok {
		return PhaseAwaitSelection, nil
	}

	status, err := s.engine.InspectContainer(ctx, rec.ID)
	if err != nil {
		return PhaseExit, fmt.Errorf("failed to inspect container %s: %w", rec.Name, err)
	}

	switch status.State {
	case docker.StateMissing:
		s.ui.Warn("container %s no longer exists; it may have been removed outside this tool", rec.Name)
		s.dropRecord(rec.ID)
		return PhaseAwaitSelection, nil
	case docker.StateRunning:
		return PhaseManaging, nil
	default:
		return PhaseAwaitResume, nil
	}
}

// awaitResume offers resume / recreate / discard for a stopped container.
func (s *Session) awaitResume(ctx context.Context) (Phase, error) {
	rec, ok := s.prefs.LastUsedRecord()
	if !ok {
		return PhaseAwaitSelection, nil
	}

	choice, err := s.ui.SelectResume(rec)
	if err != nil {
		return s.uiPhase(err)
	}

	switch choice {
	case ResumeStart:
		if err := s.engine.StartContainer(ctx, rec.ID); err != nil {
			if errors.Is(err, docker.ErrNotFound) {
				s.ui.Warn("container %s no longer exists", rec.Name)
				s.dropRecord(rec.ID)
				return PhaseAwaitSelection, nil
			}
			s.ui.Error("failed to start %s: %v", rec.Name, err)
			return PhaseAwaitResume, nil
		}
		rec.LastStart = time.Now().UTC().Format(time.RFC3339)
		s.prefs.Put(rec)
		s.persist()
		s.ui.Success("Fluree available at http://localhost:%d", rec.HostPort)
		return PhaseManaging, nil

	case ResumeRecreate:
		if err := s.engine.RemoveContainer(ctx, rec.ID, true); err != nil {
			s.ui.Error("failed to remove %s: %v", rec.Name, err)
			return PhaseAwaitResume, nil
		}
		s.dropRecord(rec.ID)
		return PhaseAwaitSelection, nil

	default: // ResumeDiscard keeps the container, forgets the record.
		s.dropRecord(rec.ID)
		return PhaseAwaitSelection, nil
	}
}

// awaitSelection gathers name, image, port, data directory and mode. The
// raw values go to the creating phase unvalidated; negotiation happens
// there so rejections land back here for re-prompting.
func (s *Session) awaitSelection(ctx context.Context) (Phase, error) {
	defPort, defDir, defMode := s.prefs.DefaultSettings()

	name, err := s.ui.PromptContainerName(DefaultContainerName)
	if err != nil {
		return s.uiPhase(err)
	}

	image, err := s.selectImage(ctx)
	if err != nil {
		return s.uiPhase(err)
	}
	if image == "" {
		return PhaseAwaitSelection, nil
	}

	portRaw, err := s.ui.PromptPort(defPort)
	if err != nil {
		return s.uiPhase(err)
	}

	dataDir, err := s.ui.PromptDataDir(defDir)
	if err != nil {
		return s.uiPhase(err)
	}

	mode, err := s.ui.SelectMode(defMode)
	if err != nil {
		return s.uiPhase(err)
	}

	s.pending = &createRequest{
		name:    name,
		image:   image,
		portRaw: portRaw,
		dataDir: dataDir,
		mode:    mode,
	}
	return PhaseCreating, nil
}

// selectImage walks the remote-or-local image flow and returns a pullable
// reference. An empty reference with nil error means the selection failed
// recoverably and the caller should re-prompt.
func (s *Session) selectImage(ctx context.Context) (string, error) {
	source, err := s.ui.SelectImageSource()
	if err != nil {
		return "", err
	}

	if source == ImageSourceLocal {
		images, err := s.engine.ListLocalImages(ctx)
		if err != nil {
			s.ui.Error("failed to list local images: %v", err)
			return "", nil
		}
		if len(images) == 0 {
			s.ui.Warn("no local %s images found; pick a version from Docker Hub instead", docker.ImageRepository)
			return "", nil
		}
		return s.ui.SelectLocalImage(images)
	}

	tags, err := s.registry.Tags(ctx)
	if err != nil {
		s.ui.Error("failed to list published versions: %v", err)
		return "", nil
	}

	reference, err := s.ui.SelectRemoteTag(tags)
	if err != nil {
		return "", err
	}

	exists, err := s.engine.ImageExists(ctx, reference)
	if err != nil {
		s.ui.Error("failed to check for %s: %v", reference, err)
		return "", nil
	}
	if !exists {
		if err := s.pullImage(ctx, reference); err != nil {
			s.ui.Error("failed to pull %s: %v", reference, err)
			return "", nil
		}
	}
	return reference, nil
}

func (s *Session) pullImage(ctx context.Context, reference string) error {
	progress := make(chan docker.PullProgress, 64)
	done := make(chan error, 1)

	go func() {
		done <- s.engine.PullImage(ctx, reference, progress)
	}()

	s.ui.ShowPullProgress(reference, progress)
	return <-done
}

// creating validates the pending request, creates and starts the container,
// and persists the new record before surfacing success. Any rejection or
// daemon failure surfaces to the operator and demotes back to selection.
func (s *Session) creating(ctx context.Context) (Phase, error) {
	req := s.pending
	s.pending = nil
	if req == nil {
		return PhaseAwaitSelection, nil
	}

	cfg := config.Request{PortRaw: req.portRaw, DataDir: req.dataDir, Mode: req.mode}

	validated, err := config.Negotiate(ctx, cfg, s.tracked(), s.engine)
	if errors.Is(err, config.ErrDirectoryMissing) {
		create, uiErr := s.ui.ConfirmCreateDir(req.dataDir)
		if uiErr != nil {
			return s.uiPhase(uiErr)
		}
		if !create {
			s.ui.Warn("data directory %s does not exist", req.dataDir)
			return PhaseAwaitSelection, nil
		}
		if err := config.EnsureDataDir(req.dataDir); err != nil {
			s.ui.Error("%v", err)
			return PhaseAwaitSelection, nil
		}
		validated, err = config.Negotiate(ctx, cfg, s.tracked(), s.engine)
	}
	if err != nil {
		s.ui.Error("invalid configuration: %v", err)
		return PhaseAwaitSelection, nil
	}

	id, err := s.engine.CreateContainer(ctx, docker.CreateSpec{
		Name:     req.name,
		Image:    req.image,
		HostPort: validated.HostPort,
		DataDir:  validated.DataDir,
	})
	if err != nil {
		s.ui.Error("failed to create container: %v", err)
		return PhaseAwaitSelection, nil
	}

	if err := s.engine.StartContainer(ctx, id); err != nil {
		s.ui.Error("failed to start container: %v", err)
		return PhaseAwaitSelection, nil
	}

	rec := state.ContainerRecord{
		ID:        id,
		Name:      req.name,
		Image:     req.image,
		HostPort:  validated.HostPort,
		DataDir:   validated.DataDir,
		Mode:      string(validated.Mode),
		LastStart: time.Now().UTC().Format(time.RFC3339),
	}
	s.prefs.Put(rec)
	s.persist()

	s.ui.Success("Fluree available at http://localhost:%d", validated.HostPort)

	if validated.Mode == config.Foreground {
		s.showLogs(ctx, id)
	}
	return PhaseManaging, nil
}

// managing is the re-entrant loop: display actions never transition, stop
// demotes to reconcile, destroy drops the record.
func (s *Session) managing(ctx context.Context) (Phase, error) {
	rec, ok := s.prefs.LastUsedRecord()
	if !ok {
		return PhaseAwaitSelection, nil
	}

	action, err := s.ui.SelectManageAction(rec.Name)
	if err != nil {
		return s.uiPhase(err)
	}

	switch action {
	case ActionStatus:
		status, err := s.engine.InspectContainer(ctx, rec.ID)
		if err != nil {
			s.ui.Error("failed to inspect %s: %v", rec.Name, err)
			return PhaseManaging, nil
		}
		if status.State == docker.StateMissing {
			return s.demote(rec), nil
		}
		s.ui.ShowStatus(status)

	case ActionStats:
		s.showStats(ctx, rec)

	case ActionLogs:
		if demoted := s.showLogs(ctx, rec.ID); demoted {
			return s.demote(rec), nil
		}

	case ActionLedgers:
		if err := s.ledgerMenu(ctx, rec.ID); err != nil {
			return s.uiPhase(err)
		}

	case ActionStop:
		if err := s.engine.StopContainer(ctx, rec.ID, stopGrace); err != nil {
			if errors.Is(err, docker.ErrNotFound) {
				return s.demote(rec), nil
			}
			s.ui.Error("failed to stop %s: %v", rec.Name, err)
			return PhaseManaging, nil
		}
		s.persist()
		s.ui.Info("container %s stopped", rec.Name)
		return PhaseReconcile, nil

	case ActionDestroy:
		if err := s.engine.StopContainer(ctx, rec.ID, stopGrace); err != nil && !errors.Is(err, docker.ErrNotFound) {
			s.ui.Error("failed to stop %s: %v", rec.Name, err)
			return PhaseManaging, nil
		}
		if err := s.engine.RemoveContainer(ctx, rec.ID, true); err != nil {
			s.ui.Error("failed to remove %s: %v", rec.Name, err)
			return PhaseManaging, nil
		}
		s.dropRecord(rec.ID)
		s.ui.Success("container %s destroyed", rec.Name)
		return PhaseAwaitSelection, nil

	case ActionExit:
		return PhaseExit, nil
	}

	return PhaseManaging, nil
}

// showStats opens a stats stream scoped to this one display; cancelling it
// stops delivery without touching the session context.
func (s *Session) showStats(ctx context.Context, rec state.ContainerRecord) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	samples, err := s.engine.StreamStats(streamCtx, rec.ID)
	if err != nil {
		s.ui.Error("failed to stream stats for %s: %v", rec.Name, err)
		return
	}
	s.ui.ShowStats(samples)
}

// showLogs fetches and displays a log tail. It reports whether the
// container turned out to be gone.
func (s *Session) showLogs(ctx context.Context, containerID string) bool {
	lines, err := s.engine.FetchLogs(ctx, containerID, logTailLines)
	if err != nil {
		if errors.Is(err, docker.ErrNotFound) {
			return true
		}
		s.ui.Error("failed to fetch logs: %v", err)
		return false
	}
	s.ui.ShowLogs(lines)
	return false
}

// ledgerMenu is the list/describe/delete loop. Ledger failures surface and
// keep the loop alive; only UI errors propagate.
func (s *Session) ledgerMenu(ctx context.Context, containerID string) error {
	for {
		summaries, warnings, err := s.ledgers.List(ctx, containerID)
		if err != nil {
			s.ui.Error("failed to list ledgers: %v", err)
			return nil
		}
		for _, w := range warnings {
			s.ui.Warn(w)
		}
		s.ui.ShowLedgers(summaries)
		if len(summaries) == 0 {
			return nil
		}

		alias, back, err := s.ui.SelectLedger(summaries)
		if err != nil {
			return err
		}
		if back {
			return nil
		}

		action, err := s.ui.SelectLedgerAction(alias)
		if err != nil {
			return err
		}

		switch action {
		case LedgerActionDescribe:
			detail, err := s.ledgers.Describe(ctx, containerID, alias)
			if err != nil {
				s.ui.Error("failed to describe %s: %v", alias, err)
				continue
			}
			s.ui.ShowLedgerDetail(detail)

		case LedgerActionDelete:
			confirmed, err := s.ui.ConfirmLedgerDelete(alias)
			if err != nil {
				return err
			}
			if err := s.ledgers.Delete(ctx, containerID, alias, confirmed); err != nil {
				if errors.Is(err, ledger.ErrConfirmationRequired) {
					s.ui.Info("deletion cancelled")
					continue
				}
				s.ui.Error("%v", err)
				continue
			}
			s.ui.Success("ledger %s deleted", alias)
		}
	}
}

// demote handles a container that vanished underneath the session.
func (s *Session) demote(rec state.ContainerRecord) Phase {
	s.ui.Warn("container %s no longer exists; it may have been removed outside this tool", rec.Name)
	s.dropRecord(rec.ID)
	return PhaseAwaitSelection
}

// dropRecord forgets a container and persists the drop immediately so a
// stale record cannot be resurrected by the next load.
func (s *Session) dropRecord(containerID string) {
	s.prefs.Remove(containerID)
	s.persist()
}

// persist saves the record. Save failures are reported but never roll back
// the in-memory state; the next successful save reconciles.
func (s *Session) persist() {
	if err := s.store.Save(s.prefs); err != nil {
		s.ui.Warn("failed to save preferences: %v", err)
	}
}

// tracked projects the preferences into what the negotiator needs.
func (s *Session) tracked() []config.TrackedContainer {
	var tracked []config.TrackedContainer
	for _, rec := range s.prefs.Containers {
		tracked = append(tracked, config.TrackedContainer{
			ID:       rec.ID,
			Name:     rec.Name,
			HostPort: rec.HostPort,
		})
	}
	return tracked
}

// uiPhase maps a prompt error to the next phase: an interrupt is a clean
// exit, anything else propagates.
func (s *Session) uiPhase(err error) (Phase, error) {
	if errors.Is(err, ErrInterrupted) {
		return PhaseExit, nil
	}
	return PhaseExit, err
}
