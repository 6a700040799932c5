// Package ledger lists, describes, and deletes the ledgers inside a running
// Fluree server container. All access goes through command execution in the
// container: ledger head files are discovered with find, read with cat, and
// removed with rm. A response that fails to parse degrades to an empty
// result plus a warning — never a crash.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/fluree-labs/flok/internal/docker"
)

var (
	// ErrConfirmationRequired guards deletion: without the confirmed flag no
	// command is issued at all.
	ErrConfirmationRequired = errors.New("ledger deletion requires explicit confirmation")

	// ErrNotFound means no tracked ledger carries the requested alias.
	ErrNotFound = errors.New("ledger not found")

	// ErrMalformedResponse marks an in-container payload that did not parse.
	ErrMalformedResponse = errors.New("malformed ledger response")
)

// DeleteError reports a delete command that failed inside the container.
type DeleteError struct {
	Alias    string
	ExitCode int
	Reason   string
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("failed to delete ledger %s (exit %d): %s", e.Alias, e.ExitCode, e.Reason)
}

// Execer is the single capability the manager needs from the daemon
// adapter.
type Execer interface {
	Exec(ctx context.Context, containerID string, cmd []string) (docker.ExecResult, error)
}

// Summary describes one ledger from its head file.
type Summary struct {
	Alias          string
	CommitCount    uint64
	Size           uint64
	LastCommitTime string
	Path           string // head file path inside the container
}

// DisplaySize renders the ledger size for terminal output.
func (s Summary) DisplaySize() string {
	return humanize.Bytes(s.Size)
}

// headFile is the slice of a ledger head document the summary needs.
type headFile struct {
	LedgerAlias string `json:"ledgerAlias"`
	Branches    []struct {
		Commit struct {
			Time string `json:"time"`
			Data struct {
				T    uint64 `json:"t"`
				Size uint64 `json:"size"`
			} `json:"data"`
		} `json:"commit"`
	} `json:"branches"`
}

// Manager performs ledger operations against one container at a time.
type Manager struct {
	exec Execer
}

// NewManager builds a manager on top of the exec capability.
func NewManager(exec Execer) *Manager {
	return &Manager{exec: exec}
}

// List returns a summary per ledger found in the container's data directory.
// Head files that fail to parse are skipped and reported as warnings; the
// listing itself still succeeds.
func (m *Manager) List(ctx context.Context, containerID string) ([]Summary, []string, error) {
	// Head files are the .json documents outside any commit directory.
	findCmd := []string{
		"find", docker.DataMountTarget,
		"-type", "f",
		"-name", "*.json",
		"-not", "-path", "*/commit/*",
	}

	result, err := m.exec.Exec(ctx, containerID, findCmd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan for ledgers: %w", err)
	}

	var (
		summaries []Summary
		warnings  []string
	)
	for _, line := range strings.Split(result.Stdout, "\n") {
		headPath := strings.TrimSpace(line)
		if headPath == "" {
			continue
		}

		content, err := m.exec.Exec(ctx, containerID, []string{"cat", headPath})
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to read %s: %v", headPath, err))
			continue
		}

		summary, err := parseSummary(headPath, content.Stdout)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%v: %s", ErrMalformedResponse, headPath))
			continue
		}
		summaries = append(summaries, summary)
	}

	return summaries, warnings, nil
}

// Describe returns the pretty-printed head document of one ledger.
func (m *Manager) Describe(ctx context.Context, containerID, alias string) (string, error) {
	summary, err := m.find(ctx, containerID, alias)
	if err != nil {
		return "", err
	}

	content, err := m.exec.Exec(ctx, containerID, []string{"cat", summary.Path})
	if err != nil {
		return "", fmt.Errorf("failed to read ledger %s: %w", alias, err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(content.Stdout), "", "  "); err != nil {
		return "", fmt.Errorf("%w: %s", ErrMalformedResponse, summary.Path)
	}
	return pretty.String(), nil
}

// Delete removes a ledger and all its data. Without confirmed it refuses
// before issuing any command. With confirmation it removes the ledger's
// directory inside the container.
func (m *Manager) Delete(ctx context.Context, containerID, alias string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	summary, err := m.find(ctx, containerID, alias)
	if err != nil {
		return err
	}

	dir := path.Dir(summary.Path)
	if _, err := m.exec.Exec(ctx, containerID, []string{"rm", "-rf", dir}); err != nil {
		var execErr *docker.ExecError
		if errors.As(err, &execErr) {
			return &DeleteError{Alias: alias, ExitCode: execErr.ExitCode, Reason: execErr.Stderr}
		}
		return fmt.Errorf("failed to delete ledger %s: %w", alias, err)
	}
	return nil
}

// find resolves an alias to its summary via a fresh listing.
func (m *Manager) find(ctx context.Context, containerID, alias string) (Summary, error) {
	summaries, _, err := m.List(ctx, containerID)
	if err != nil {
		return Summary{}, err
	}
	for _, s := range summaries {
		if s.Alias == alias {
			return s, nil
		}
	}
	return Summary{}, fmt.Errorf("%w: %s", ErrNotFound, alias)
}

// parseSummary extracts the summary fields from one head document.
func parseSummary(headPath, content string) (Summary, error) {
	var head headFile
	if err := json.Unmarshal([]byte(content), &head); err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if head.LedgerAlias == "" {
		return Summary{}, fmt.Errorf("%w: missing ledgerAlias", ErrMalformedResponse)
	}

	summary := Summary{
		Alias:          head.LedgerAlias,
		LastCommitTime: "unknown",
		Path:           headPath,
	}
	if len(head.Branches) > 0 {
		commit := head.Branches[0].Commit
		if commit.Time != "" {
			summary.LastCommitTime = commit.Time
		}
		summary.CommitCount = commit.Data.T
		summary.Size = commit.Data.Size
	}
	return summary, nil
}
