package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluree-labs/flok/internal/docker"
)

const headDoc = `{
	"ledgerAlias": "books",
	"branches": [
		{"commit": {"time": "2026-08-20T10:00:00Z", "data": {"t": 42, "size": 18432}}}
	]
}`

// fakeExecer replies from a command→result script and logs every call.
type fakeExecer struct {
	responses map[string]docker.ExecResult
	errs      map[string]error
	calls     []string
}

func (f *fakeExecer) Exec(_ context.Context, _ string, cmd []string) (docker.ExecResult, error) {
	key := strings.Join(cmd, " ")
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return docker.ExecResult{}, err
	}
	return f.responses[key], nil
}

func findKey() string {
	return "find " + docker.DataMountTarget + " -type f -name *.json -not -path */commit/*"
}

func TestListParsesHeadFiles(t *testing.T) {
	exec := &fakeExecer{responses: map[string]docker.ExecResult{
		findKey(): {Stdout: docker.DataMountTarget + "/books/main.json\n"},
		"cat " + docker.DataMountTarget + "/books/main.json": {Stdout: headDoc},
	}}

	summaries, warnings, err := NewManager(exec).List(context.Background(), "cid")
	require.NoError(t, err)
	assert.Empty(t, warnings)

	require.Len(t, summaries, 1)
	assert.Equal(t, "books", summaries[0].Alias)
	assert.Equal(t, uint64(42), summaries[0].CommitCount)
	assert.Equal(t, uint64(18432), summaries[0].Size)
	assert.Equal(t, "2026-08-20T10:00:00Z", summaries[0].LastCommitTime)
}

func TestListEmptyDataDir(t *testing.T) {
	exec := &fakeExecer{responses: map[string]docker.ExecResult{
		findKey(): {Stdout: "\n"},
	}}

	summaries, warnings, err := NewManager(exec).List(context.Background(), "cid")
	require.NoError(t, err)
	assert.Empty(t, summaries)
	assert.Empty(t, warnings)
}

func TestListMalformedHeadFileDegradesToWarning(t *testing.T) {
	exec := &fakeExecer{responses: map[string]docker.ExecResult{
		findKey(): {Stdout: docker.DataMountTarget + "/broken/main.json\n" +
			docker.DataMountTarget + "/books/main.json\n"},
		"cat " + docker.DataMountTarget + "/broken/main.json": {Stdout: `{"not": "a head file"`},
		"cat " + docker.DataMountTarget + "/books/main.json":  {Stdout: headDoc},
	}}

	summaries, warnings, err := NewManager(exec).List(context.Background(), "cid")
	require.NoError(t, err)

	// The broken file is reported, the good one still lists.
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "malformed")
	require.Len(t, summaries, 1)
	assert.Equal(t, "books", summaries[0].Alias)
}

func TestListMissingAliasIsMalformed(t *testing.T) {
	exec := &fakeExecer{responses: map[string]docker.ExecResult{
		findKey(): {Stdout: docker.DataMountTarget + "/x/main.json\n"},
		"cat " + docker.DataMountTarget + "/x/main.json": {Stdout: `{"branches": []}`},
	}}

	summaries, warnings, err := NewManager(exec).List(context.Background(), "cid")
	require.NoError(t, err)
	assert.Empty(t, summaries)
	require.Len(t, warnings, 1)
}

func TestDescribePrettyPrints(t *testing.T) {
	exec := &fakeExecer{responses: map[string]docker.ExecResult{
		findKey(): {Stdout: docker.DataMountTarget + "/books/main.json\n"},
		"cat " + docker.DataMountTarget + "/books/main.json": {Stdout: headDoc},
	}}

	detail, err := NewManager(exec).Describe(context.Background(), "cid", "books")
	require.NoError(t, err)
	assert.Contains(t, detail, `"ledgerAlias": "books"`)
}

func TestDescribeUnknownAlias(t *testing.T) {
	exec := &fakeExecer{responses: map[string]docker.ExecResult{
		findKey(): {Stdout: ""},
	}}

	_, err := NewManager(exec).Describe(context.Background(), "cid", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteWithoutConfirmationIssuesNoCommand(t *testing.T) {
	exec := &fakeExecer{}

	err := NewManager(exec).Delete(context.Background(), "cid", "books", false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Empty(t, exec.calls, "unconfirmed delete must not touch the container")
}

func TestDeleteRemovesLedgerDirectory(t *testing.T) {
	exec := &fakeExecer{responses: map[string]docker.ExecResult{
		findKey(): {Stdout: docker.DataMountTarget + "/books/main.json\n"},
		"cat " + docker.DataMountTarget + "/books/main.json": {Stdout: headDoc},
	}}

	err := NewManager(exec).Delete(context.Background(), "cid", "books", true)
	require.NoError(t, err)
	assert.Contains(t, exec.calls, "rm -rf "+docker.DataMountTarget+"/books")
}

func TestDeleteFailureCarriesExitCode(t *testing.T) {
	exec := &fakeExecer{
		responses: map[string]docker.ExecResult{
			findKey(): {Stdout: docker.DataMountTarget + "/books/main.json\n"},
			"cat " + docker.DataMountTarget + "/books/main.json": {Stdout: headDoc},
		},
		errs: map[string]error{
			"rm -rf " + docker.DataMountTarget + "/books": &docker.ExecError{ExitCode: 1, Stderr: "Permission denied"},
		},
	}

	err := NewManager(exec).Delete(context.Background(), "cid", "books", true)
	var delErr *DeleteError
	require.True(t, errors.As(err, &delErr))
	assert.Equal(t, 1, delErr.ExitCode)
	assert.Contains(t, delErr.Reason, "Permission denied")
}
