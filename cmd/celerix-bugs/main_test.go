package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-bugs/pkg/schema"
)

func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCLI_EmbeddedLifecycle(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "--actor", "tester@company.com", "create", "Crash on save",
		"-d", "editor dies", "-p", "desktop", "-s", "critical")
	require.NoError(t, err)
	var bug schema.BugReport
	require.NoError(t, json.Unmarshal([]byte(out), &bug))
	assert.Equal(t, schema.SeverityCritical, bug.Severity)
	assert.Equal(t, schema.StatusOpen, bug.Status)

	// Each invocation reopens the data directory, so state must persist.
	out, err = runCLI(t, dir, "--actor", "dev@company.com", "assign", bug.ID)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &bug))
	assert.Equal(t, schema.StatusInProgress, bug.Status)
	who, _ := bug.Assignee()
	assert.Equal(t, "dev@company.com", who)

	out, err = runCLI(t, dir, "list", "--status", "in_progress")
	require.NoError(t, err)
	var bugs []schema.BugReport
	require.NoError(t, json.Unmarshal([]byte(out), &bugs))
	require.Len(t, bugs, 1)

	out, err = runCLI(t, dir, "summary")
	require.NoError(t, err)
	var summary schema.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, schema.Summary{InProgress: 1, Total: 1}, summary)

	out, err = runCLI(t, dir, "audit", bug.ID)
	require.NoError(t, err)
	var entries []schema.AuditLog
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	// The audit trail lives in the running process only.
	assert.Len(t, entries, 0)
}

func TestCLI_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "create", "no actor")
	assert.ErrorContains(t, err, "--actor")

	_, err = runCLI(t, dir, "--actor", "dev@company.com", "create", "x", "-d", "y", "-p", "z")
	assert.ErrorIs(t, err, schema.ErrPermissionDenied)

	_, err = runCLI(t, dir, "--actor", "ghost@company.com", "whoami")
	assert.ErrorIs(t, err, schema.ErrUnknownActor)

	_, err = runCLI(t, dir, "--actor", "dev@company.com", "status", "missing", "done")
	assert.Error(t, err)

	_, err = runCLI(t, dir, "show", "missing")
	assert.ErrorIs(t, err, schema.ErrNotFound)

	_, err = runCLI(t, dir, "ping")
	assert.ErrorContains(t, err, "--addr")
}
