package orchestrator

import (
	"errors"

	"github.com/fluree-labs/flok/internal/config"
	"github.com/fluree-labs/flok/internal/docker"
	"github.com/fluree-labs/flok/internal/hub"
	"github.com/fluree-labs/flok/internal/ledger"
	"github.com/fluree-labs/flok/internal/state"
)

// ErrInterrupted is returned by a UI implementation when the operator aborts
// a prompt (Ctrl-C). The session treats it as a clean exit request.
var ErrInterrupted = errors.New("interrupted")

// ImageSource is where the operator wants to pick an image from.
type ImageSource int

const (
	ImageSourceRemote ImageSource = iota
	ImageSourceLocal
)

// ResumeChoice is the operator's decision about a stopped tracked container.
type ResumeChoice int

const (
	ResumeStart ResumeChoice = iota
	ResumeRecreate
	ResumeDiscard
)

// ManageAction is one pick from the management menu.
type ManageAction int

const (
	ActionStatus ManageAction = iota
	ActionStats
	ActionLogs
	ActionLedgers
	ActionStop
	ActionDestroy
	ActionExit
)

// LedgerAction is one pick from the per-ledger menu.
type LedgerAction int

const (
	LedgerActionDescribe LedgerAction = iota
	LedgerActionDelete
	LedgerActionBack
)

// UI is everything the session needs from the terminal: operator choices in,
// display data out. The session never formats for a terminal itself.
// Implementations return ErrInterrupted when the operator aborts a prompt.
type UI interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Success(format string, args ...interface{})

	SelectResume(rec state.ContainerRecord) (ResumeChoice, error)

	PromptContainerName(defaultName string) (string, error)
	SelectImageSource() (ImageSource, error)
	SelectRemoteTag(tags []hub.Tag) (string, error)
	SelectLocalImage(images []docker.ImageInfo) (string, error)
	ShowPullProgress(reference string, events <-chan docker.PullProgress)
	PromptPort(defaultPort int) (string, error)
	PromptDataDir(defaultDir string) (string, error)
	ConfirmCreateDir(path string) (bool, error)
	SelectMode(defaultMode string) (config.Mode, error)

	SelectManageAction(containerName string) (ManageAction, error)
	ShowStatus(status docker.Status)
	ShowStats(samples <-chan docker.StatsSample)
	ShowLogs(lines []string)

	ShowLedgers(summaries []ledger.Summary)
	SelectLedger(summaries []ledger.Summary) (alias string, back bool, err error)
	SelectLedgerAction(alias string) (LedgerAction, error)
	ShowLedgerDetail(detail string)
	ConfirmLedgerDelete(alias string) (bool, error)
}
