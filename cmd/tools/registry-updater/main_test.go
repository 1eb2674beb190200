package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangastream-workers/pkg/registry"
)

func writeRegistry(t *testing.T) string {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "activities.json")
	require.NoError(t, save(reg, path, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))
	return path
}

func TestRun_ListFiltersByCategory(t *testing.T) {
	path := writeRegistry(t)
	var out bytes.Buffer

	require.NoError(t, run("list", []string{"-path", path, "-category", "catalog"}, &out))

	assert.Contains(t, out.String(), "publish-episodes")
	assert.Contains(t, out.String(), "search-catalog")
	assert.NotContains(t, out.String(), "record-payment")
}

func TestRun_Validate(t *testing.T) {
	path := writeRegistry(t)
	var out bytes.Buffer

	require.NoError(t, run("validate", []string{"-path", path}, &out))
	assert.Contains(t, out.String(), "9 activities")

	require.NoError(t, os.WriteFile(path, []byte(`{"activities":[{"id":"Bad","taskType":"x"}]}`), 0o644))
	assert.Error(t, run("validate", []string{"-path", path}, &out))
}

func TestRun_AddAndUpdate(t *testing.T) {
	path := writeRegistry(t)
	var out bytes.Buffer

	err := run("add", []string{
		"-path", path,
		"-id", "community.comment.moderate",
		"-displayName", "Moderate Comment",
		"-category", "community",
		"-taskType", "moderate-comment",
	}, &out)
	require.NoError(t, err)

	err = run("update", []string{"-path", path, "-id", "community.comment.moderate", "-field", "retries", "-value", "2"}, &out)
	require.NoError(t, err)

	reg, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	a, ok := reg.Lookup("moderate-comment")
	require.True(t, ok)
	assert.Equal(t, 2, a.Retries)
	assert.Equal(t, "planned", a.ImplementationStatus)
	assert.NotEqual(t, "2026-01-02", reg.LastUpdated)
}

func TestAddActivity_Rejects(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)

	tests := []struct {
		name     string
		activity registry.Activity
	}{
		{"duplicate id", registry.Activity{ID: "catalog.episode.publish", TaskType: "other", ImplementationStatus: "planned", Timeout: "5s"}},
		{"duplicate task type", registry.Activity{ID: "catalog.episode.recount", TaskType: "publish-episodes", ImplementationStatus: "planned", Timeout: "5s"}},
		{"bad status", registry.Activity{ID: "catalog.episode.recount", TaskType: "recount", ImplementationStatus: "done", Timeout: "5s"}},
		{"bad timeout", registry.Activity{ID: "catalog.episode.recount", TaskType: "recount", ImplementationStatus: "planned", Timeout: "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := *reg
			snapshot.Activities = append([]registry.Activity(nil), reg.Activities...)
			assert.Error(t, addActivity(&snapshot, tt.activity))
		})
	}
}

func TestUpdateActivity_Errors(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)

	assert.Error(t, updateActivity(reg, "missing.activity.id", "status", "verified"))
	assert.Error(t, updateActivity(reg, "catalog.episode.publish", "status", "done"))
	assert.Error(t, updateActivity(reg, "catalog.episode.publish", "retries", "-1"))
	assert.Error(t, updateActivity(reg, "catalog.episode.publish", "taskType", "x"))

	require.NoError(t, updateActivity(reg, "catalog.episode.publish", "timeout", "30s"))
	a, _ := reg.Lookup("publish-episodes")
	assert.Equal(t, "30s", a.Timeout)
}

func TestRun_UnknownCommand(t *testing.T) {
	assert.Error(t, run("remove", nil, &bytes.Buffer{}))
}
