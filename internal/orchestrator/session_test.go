package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluree-labs/flok/internal/config"
	"github.com/fluree-labs/flok/internal/docker"
	"github.com/fluree-labs/flok/internal/hub"
	"github.com/fluree-labs/flok/internal/ledger"
	"github.com/fluree-labs/flok/internal/state"
)

// fakeContainer is the daemon-side state of one container.
type fakeContainer struct {
	name     string
	state    docker.State
	hostPort int
}

// fakeEngine is an in-memory daemon with a call log.
type fakeEngine struct {
	containers map[string]*fakeContainer
	images     map[string]bool
	execOut    map[string]docker.ExecResult
	nextID     int

	startCalls  []string
	stopCalls   []string
	removeCalls []string
	execCalls   []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		containers: map[string]*fakeContainer{},
		images:     map[string]bool{},
		execOut:    map[string]docker.ExecResult{},
	}
}

func (f *fakeEngine) CreateContainer(_ context.Context, spec docker.CreateSpec) (string, error) {
	f.nextID++
	id := fmt.Sprintf("cid-%d", f.nextID)
	f.containers[id] = &fakeContainer{name: spec.Name, state: docker.StateExited, hostPort: spec.HostPort}
	return id, nil
}

func (f *fakeEngine) StartContainer(_ context.Context, id string) error {
	f.startCalls = append(f.startCalls, id)
	c, ok := f.containers[id]
	if !ok {
		return docker.ErrNotFound
	}
	c.state = docker.StateRunning
	return nil
}

func (f *fakeEngine) StopContainer(_ context.Context, id string, _ time.Duration) error {
	f.stopCalls = append(f.stopCalls, id)
	c, ok := f.containers[id]
	if !ok {
		return docker.ErrNotFound
	}
	c.state = docker.StateExited
	return nil
}

func (f *fakeEngine) RemoveContainer(_ context.Context, id string, _ bool) error {
	f.removeCalls = append(f.removeCalls, id)
	delete(f.containers, id)
	return nil
}

func (f *fakeEngine) InspectContainer(_ context.Context, id string) (docker.Status, error) {
	c, ok := f.containers[id]
	if !ok {
		return docker.Status{ID: id, State: docker.StateMissing}, nil
	}
	return docker.Status{ID: id, Name: c.name, State: c.state, HostPort: c.hostPort}, nil
}

func (f *fakeEngine) ContainerRunning(_ context.Context, id string) (bool, error) {
	c, ok := f.containers[id]
	return ok && c.state == docker.StateRunning, nil
}

func (f *fakeEngine) StreamStats(_ context.Context, id string) (<-chan docker.StatsSample, error) {
	if _, ok := f.containers[id]; !ok {
		return nil, docker.ErrNotFound
	}
	ch := make(chan docker.StatsSample, 1)
	ch <- docker.StatsSample{CPUPercent: 1.5, MemoryUsage: 64 << 20, MemoryLimit: 512 << 20}
	close(ch)
	return ch, nil
}

func (f *fakeEngine) FetchLogs(_ context.Context, id string, _ int) ([]string, error) {
	if _, ok := f.containers[id]; !ok {
		return nil, docker.ErrNotFound
	}
	return []string{"Fluree server started"}, nil
}

func (f *fakeEngine) Exec(_ context.Context, _ string, cmd []string) (docker.ExecResult, error) {
	key := strings.Join(cmd, " ")
	f.execCalls = append(f.execCalls, key)
	return f.execOut[key], nil
}

func (f *fakeEngine) ListLocalImages(_ context.Context) ([]docker.ImageInfo, error) {
	var images []docker.ImageInfo
	for ref := range f.images {
		images = append(images, docker.ImageInfo{Tag: ref})
	}
	return images, nil
}

func (f *fakeEngine) ImageExists(_ context.Context, reference string) (bool, error) {
	return f.images[reference], nil
}

func (f *fakeEngine) PullImage(_ context.Context, reference string, progress chan<- docker.PullProgress) error {
	close(progress)
	f.images[reference] = true
	return nil
}

// fakeTags serves a fixed tag list.
type fakeTags struct {
	tags []hub.Tag
}

func (f *fakeTags) Tags(context.Context) ([]hub.Tag, error) {
	return f.tags, nil
}

// scriptedUI pops each answer from a per-prompt script. An exhausted script
// answers ErrInterrupted, which ends the session cleanly — tests use that
// to stop the state machine wherever the scenario ends.
type scriptedUI struct {
	names         []string
	sources       []ImageSource
	tagPicks      []string
	portInputs    []string
	dirInputs     []string
	modes         []config.Mode
	resumeChoices []ResumeChoice
	manageActions []ManageAction
	createDir     []bool

	warnings  []string
	errs      []string
	successes []string
	statsSeen int
	logsSeen  int
	ledgers   [][]ledger.Summary
	prompts   []string
}

func popString(s *[]string) (string, error) {
	if len(*s) == 0 {
		return "", ErrInterrupted
	}
	v := (*s)[0]
	*s = (*s)[1:]
	return v, nil
}

func (u *scriptedUI) Info(format string, args ...interface{}) {}
func (u *scriptedUI) Warn(format string, args ...interface{}) {
	u.warnings = append(u.warnings, fmt.Sprintf(format, args...))
}
func (u *scriptedUI) Error(format string, args ...interface{}) {
	u.errs = append(u.errs, fmt.Sprintf(format, args...))
}
func (u *scriptedUI) Success(format string, args ...interface{}) {
	u.successes = append(u.successes, fmt.Sprintf(format, args...))
}

func (u *scriptedUI) SelectResume(state.ContainerRecord) (ResumeChoice, error) {
	u.prompts = append(u.prompts, "resume")
	if len(u.resumeChoices) == 0 {
		return 0, ErrInterrupted
	}
	c := u.resumeChoices[0]
	u.resumeChoices = u.resumeChoices[1:]
	return c, nil
}

func (u *scriptedUI) PromptContainerName(string) (string, error) {
	u.prompts = append(u.prompts, "name")
	return popString(&u.names)
}

func (u *scriptedUI) SelectImageSource() (ImageSource, error) {
	u.prompts = append(u.prompts, "source")
	if len(u.sources) == 0 {
		return 0, ErrInterrupted
	}
	s := u.sources[0]
	u.sources = u.sources[1:]
	return s, nil
}

func (u *scriptedUI) SelectRemoteTag([]hub.Tag) (string, error) {
	return popString(&u.tagPicks)
}

func (u *scriptedUI) SelectLocalImage(images []docker.ImageInfo) (string, error) {
	if len(images) == 0 {
		return "", ErrInterrupted
	}
	return images[0].Tag, nil
}

func (u *scriptedUI) ShowPullProgress(_ string, events <-chan docker.PullProgress) {
	for range events {
	}
}

func (u *scriptedUI) PromptPort(int) (string, error) {
	u.prompts = append(u.prompts, "port")
	return popString(&u.portInputs)
}

func (u *scriptedUI) PromptDataDir(string) (string, error) {
	return popString(&u.dirInputs)
}

func (u *scriptedUI) ConfirmCreateDir(string) (bool, error) {
	if len(u.createDir) == 0 {
		return false, ErrInterrupted
	}
	v := u.createDir[0]
	u.createDir = u.createDir[1:]
	return v, nil
}

func (u *scriptedUI) SelectMode(string) (config.Mode, error) {
	if len(u.modes) == 0 {
		return "", ErrInterrupted
	}
	m := u.modes[0]
	u.modes = u.modes[1:]
	return m, nil
}

func (u *scriptedUI) SelectManageAction(string) (ManageAction, error) {
	u.prompts = append(u.prompts, "manage")
	if len(u.manageActions) == 0 {
		return 0, ErrInterrupted
	}
	a := u.manageActions[0]
	u.manageActions = u.manageActions[1:]
	return a, nil
}

func (u *scriptedUI) ShowStatus(docker.Status) {}

func (u *scriptedUI) ShowStats(samples <-chan docker.StatsSample) {
	for range samples {
		u.statsSeen++
	}
}

func (u *scriptedUI) ShowLogs([]string) {
	u.logsSeen++
}

func (u *scriptedUI) ShowLedgers(summaries []ledger.Summary) {
	u.ledgers = append(u.ledgers, summaries)
}

func (u *scriptedUI) SelectLedger([]ledger.Summary) (string, bool, error) {
	return "", true, nil
}

func (u *scriptedUI) SelectLedgerAction(string) (LedgerAction, error) {
	return LedgerActionBack, nil
}

func (u *scriptedUI) ShowLedgerDetail(string) {}

func (u *scriptedUI) ConfirmLedgerDelete(string) (bool, error) {
	return false, nil
}

func testSession(t *testing.T, engine docker.Engine, ui UI, tags TagLister) (*Session, *state.Store) {
	t.Helper()
	store, err := state.NewStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	return NewSession(engine, store, tags, ui), store
}

func seedRecord(t *testing.T, store *state.Store, rec state.ContainerRecord) {
	t.Helper()
	prefs := state.DefaultPreferences()
	prefs.Put(rec)
	require.NoError(t, store.Save(prefs))
}

func TestReconcileRunningGoesStraightToManaging(t *testing.T) {
	engine := newFakeEngine()
	engine.containers["cid-1"] = &fakeContainer{name: "dev", state: docker.StateRunning, hostPort: 8090}

	ui := &scriptedUI{manageActions: []ManageAction{ActionExit}}
	session, store := testSession(t, engine, ui, &fakeTags{})
	seedRecord(t, store, state.ContainerRecord{ID: "cid-1", Name: "dev", HostPort: 8090})

	require.NoError(t, session.Run(context.Background()))

	// Straight to the manage menu, no resume or selection prompts.
	assert.Equal(t, []string{"manage"}, ui.prompts)
}

func TestReconcileMissingClearsRecordDurably(t *testing.T) {
	engine := newFakeEngine()

	ui := &scriptedUI{}
	session, store := testSession(t, engine, ui, &fakeTags{})
	seedRecord(t, store, state.ContainerRecord{ID: "gone", Name: "dev", HostPort: 8090})

	require.NoError(t, session.Run(context.Background()))

	require.NotEmpty(t, ui.warnings)
	assert.Contains(t, ui.warnings[0], "no longer exists")

	// A fresh load must not resurrect the stale record.
	loaded := store.Load()
	assert.Empty(t, loaded.Containers)
}

func TestStopTwiceIsIdempotent(t *testing.T) {
	engine := newFakeEngine()
	engine.containers["cid-1"] = &fakeContainer{name: "dev", state: docker.StateRunning, hostPort: 8090}

	session, store := testSession(t, engine, &scriptedUI{}, &fakeTags{})
	seedRecord(t, store, state.ContainerRecord{ID: "cid-1", Name: "dev", HostPort: 8090})

	_, err := session.Stop(context.Background())
	require.NoError(t, err)
	_, err = session.Stop(context.Background())
	require.NoError(t, err)

	assert.Equal(t, docker.StateExited, engine.containers["cid-1"].state)
}

func TestCreateFlowFromEmptyState(t *testing.T) {
	engine := newFakeEngine()
	engine.images["fluree/server:stable"] = true

	ui := &scriptedUI{
		names:         []string{"fluree-server"},
		sources:       []ImageSource{ImageSourceRemote},
		tagPicks:      []string{"fluree/server:stable"},
		portInputs:    []string{"8090"},
		dirInputs:     []string{""},
		modes:         []config.Mode{config.Foreground},
		manageActions: []ManageAction{ActionStats, ActionExit},
	}
	session, store := testSession(t, engine, ui, &fakeTags{tags: []hub.Tag{{Name: "stable"}}})

	require.NoError(t, session.Run(context.Background()))

	loaded := store.Load()
	rec, ok := loaded.LastUsedRecord()
	require.True(t, ok, "creation must persist the new record")
	assert.Equal(t, "fluree-server", rec.Name)
	assert.Equal(t, "fluree/server:stable", rec.Image)
	assert.Equal(t, 8090, rec.HostPort)
	assert.Equal(t, "foreground", rec.Mode)

	assert.Len(t, engine.startCalls, 1)
	assert.GreaterOrEqual(t, ui.statsSeen, 1, "stats stream must yield at least one sample")
	assert.Equal(t, 1, ui.logsSeen, "foreground mode attaches to the log tail")

	require.NotEmpty(t, ui.successes)
	assert.Contains(t, ui.successes[0], "http://localhost:8090")
}

func TestResumeStartsExitedContainerOnce(t *testing.T) {
	engine := newFakeEngine()
	engine.containers["cid-1"] = &fakeContainer{name: "dev", state: docker.StateExited, hostPort: 8090}

	ui := &scriptedUI{
		resumeChoices: []ResumeChoice{ResumeStart},
		manageActions: []ManageAction{ActionExit},
	}
	session, store := testSession(t, engine, ui, &fakeTags{})
	seedRecord(t, store, state.ContainerRecord{ID: "cid-1", Name: "dev", HostPort: 8090})

	require.NoError(t, session.Run(context.Background()))

	assert.Equal(t, []string{"cid-1"}, engine.startCalls)
	assert.Equal(t, docker.StateRunning, engine.containers["cid-1"].state)
	assert.Equal(t, []string{"resume", "manage"}, ui.prompts)
}

func TestDiscardKeepsContainerDropsRecord(t *testing.T) {
	engine := newFakeEngine()
	engine.containers["cid-1"] = &fakeContainer{name: "dev", state: docker.StateExited, hostPort: 8090}

	ui := &scriptedUI{resumeChoices: []ResumeChoice{ResumeDiscard}}
	session, store := testSession(t, engine, ui, &fakeTags{})
	seedRecord(t, store, state.ContainerRecord{ID: "cid-1", Name: "dev", HostPort: 8090})

	require.NoError(t, session.Run(context.Background()))

	_, exists := engine.containers["cid-1"]
	assert.True(t, exists, "discard must not touch the container")
	assert.Empty(t, store.Load().Containers)
}

func TestPortConflictSurfacesAndReprompts(t *testing.T) {
	engine := newFakeEngine()
	engine.containers["other"] = &fakeContainer{name: "other", state: docker.StateRunning, hostPort: 8090}
	engine.images["fluree/server:stable"] = true

	ui := &scriptedUI{
		names:      []string{"fluree-server"},
		sources:    []ImageSource{ImageSourceRemote},
		tagPicks:   []string{"fluree/server:stable"},
		portInputs: []string{"8090"},
		dirInputs:  []string{""},
		modes:      []config.Mode{config.Background},
	}
	session, store := testSession(t, engine, ui, &fakeTags{tags: []hub.Tag{{Name: "stable"}}})

	prefs := state.DefaultPreferences()
	prefs.Put(state.ContainerRecord{ID: "other", Name: "other", HostPort: 8090})
	prefs.LastUsed = "" // tracked for conflicts, but not the session's container
	require.NoError(t, store.Save(prefs))

	require.NoError(t, session.Run(context.Background()))

	require.NotEmpty(t, ui.errs)
	assert.Contains(t, ui.errs[0], "invalid configuration")
	assert.Empty(t, engine.startCalls)
}

func TestDestroyDropsRecordAndRemovesContainer(t *testing.T) {
	engine := newFakeEngine()
	engine.containers["cid-1"] = &fakeContainer{name: "dev", state: docker.StateRunning, hostPort: 8090}

	ui := &scriptedUI{manageActions: []ManageAction{ActionDestroy}}
	session, store := testSession(t, engine, ui, &fakeTags{})
	seedRecord(t, store, state.ContainerRecord{ID: "cid-1", Name: "dev", HostPort: 8090})

	require.NoError(t, session.Run(context.Background()))

	assert.Equal(t, []string{"cid-1"}, engine.removeCalls)
	_, exists := engine.containers["cid-1"]
	assert.False(t, exists)
	assert.Empty(t, store.Load().Containers)
}

func TestMalformedLedgerPayloadWarnsAndContinues(t *testing.T) {
	engine := newFakeEngine()
	engine.containers["cid-1"] = &fakeContainer{name: "dev", state: docker.StateRunning, hostPort: 8090}

	findKey := "find " + docker.DataMountTarget + " -type f -name *.json -not -path */commit/*"
	headPath := docker.DataMountTarget + "/broken/main.json"
	engine.execOut[findKey] = docker.ExecResult{Stdout: headPath + "\n"}
	engine.execOut["cat "+headPath] = docker.ExecResult{Stdout: "not json at all"}

	ui := &scriptedUI{manageActions: []ManageAction{ActionLedgers, ActionExit}}
	session, store := testSession(t, engine, ui, &fakeTags{})
	seedRecord(t, store, state.ContainerRecord{ID: "cid-1", Name: "dev", HostPort: 8090})

	require.NoError(t, session.Run(context.Background()))

	require.NotEmpty(t, ui.warnings)
	assert.Contains(t, ui.warnings[0], "malformed")
	require.Len(t, ui.ledgers, 1)
	assert.Empty(t, ui.ledgers[0], "malformed payload degrades to an empty listing")
}

func TestOneShotStatusWithoutRecord(t *testing.T) {
	session, _ := testSession(t, newFakeEngine(), &scriptedUI{}, &fakeTags{})

	_, _, err := session.Status(context.Background())
	assert.ErrorIs(t, err, ErrNoTrackedContainer)
}
