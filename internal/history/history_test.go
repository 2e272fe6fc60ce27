// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/parse-files/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func summaryAt(id string, start time.Time) types.RunSummary {
	s := types.RunSummary{
		RunID:      id,
		APIURL:     "http://api.example.com",
		InputDir:   "/in",
		OutputDir:  "/out",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
	}
	s.Add(types.FileOutcome{
		Path: "/in/A/report.pptx", RelPath: "A/report.pptx", Status: types.FileSucceeded,
		HTTPStatus: 200, JSONPath: "/out/json/A/report.json", MarkdownPath: "/out/markdown/A/report.md",
		Duration: 1500 * time.Millisecond,
	})
	s.Add(types.FileOutcome{
		Path: "/in/A/notes.txt", RelPath: "A/notes.txt", Status: types.FileFailed,
		HTTPStatus: 502, Error: "HTTP 502 Bad Gateway",
	})
	return s
}

func TestRecordAndFiles(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, summaryAt("run-1", start)))

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, 1, runs[0].Succeeded)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, 2, runs[0].Total())
	assert.True(t, start.Equal(runs[0].StartedAt))
	assert.True(t, start.Add(2*time.Second).Equal(runs[0].FinishedAt))

	files, err := s.Files(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "A/report.pptx", files[0].RelPath)
	assert.Equal(t, types.FileSucceeded, files[0].Status)
	assert.Equal(t, "/out/markdown/A/report.md", files[0].MarkdownPath)
	assert.Equal(t, 1500*time.Millisecond, files[0].Duration)
	assert.Equal(t, types.FileFailed, files[1].Status)
	assert.Equal(t, 502, files[1].HTTPStatus)
	assert.Equal(t, "HTTP 502 Bad Gateway", files[1].Error)
}

func TestRuns_NewestFirstWithLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Sub-second offsets exercise lexical ordering of stored timestamps.
	offsets := []time.Duration{0, 500 * time.Millisecond, time.Second, 90 * time.Minute}
	for i, off := range offsets {
		require.NoError(t, s.Record(ctx, summaryAt(fmt.Sprintf("run-%d", i), base.Add(off))))
	}

	runs, err := s.Runs(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-3", runs[0].RunID)
	assert.Equal(t, "run-2", runs[1].RunID)
	assert.Equal(t, "run-1", runs[2].RunID)
}

func TestRecord_DuplicateRunID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Now()

	require.NoError(t, s.Record(ctx, summaryAt("dup", start)))
	err := s.Record(ctx, summaryAt("dup", start))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting run dup")

	// The failed transaction must not leave extra file rows behind.
	files, err := s.Files(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, summaryAt("persisted", time.Now())))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, path, s2.Path())

	runs, err := s2.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "persisted", runs[0].RunID)
}

func TestFiles_UnknownRun(t *testing.T) {
	s := openTestStore(t)
	files, err := s.Files(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, files)
}
