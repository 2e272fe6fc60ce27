// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/parse-files/pkg/types"
)

// setupDirs returns a config whose input and output roots live in temp dirs.
func setupDirs(t *testing.T) types.Config {
	t.Helper()
	in := t.TempDir()
	out := t.TempDir()
	cfg := types.Config{
		InputDir:    in,
		OutputDir:   out,
		JSONDir:     filepath.Join(out, "json"),
		MarkdownDir: filepath.Join(out, "markdown"),
	}
	require.NoError(t, os.MkdirAll(cfg.JSONDir, 0o755))
	require.NoError(t, os.MkdirAll(cfg.MarkdownDir, 0o755))
	return cfg
}

func TestSafeStem(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/in/report.pptx", "report"},
		{"/in/Q3 board deck.pptx", "Q3_board_deck"},
		{"/in/two  spaces.pdf", "two__spaces"},
		{"/in/keep-dashes_and.dots.v2.docx", "keep-dashes_and.dots.v2"},
		{"/in/ünïcödé nämé.txt", "ünïcödé_nämé"},
		{"/in/tab\there.pdf", "tab\there"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeStem(tt.path))
		})
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		name   string
		data   map[string]any
		want   string
		wantOK bool
	}{
		{"string text", map[string]any{"text": "hello"}, "hello", true},
		{"empty text", map[string]any{"text": ""}, "", true},
		{"missing text", map[string]any{"summary": "ok"}, "", false},
		{"non-string text", map[string]any{"text": []any{"a"}}, "", false},
		{"null text", map[string]any{"text": nil}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Text(tt.data)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode(t *testing.T) {
	data := map[string]any{
		"zeta":  json.Number("1.50"),
		"alpha": "café <b>&</b> 日本語",
		"mid":   map[string]any{"b": true, "a": nil},
	}
	got, err := Encode(data)
	require.NoError(t, err)

	want := `{
  "alpha": "café <b>&</b> 日本語",
  "mid": {
    "a": null,
    "b": true
  },
  "zeta": 1.50
}
`
	assert.Equal(t, want, string(got))

	again, err := Encode(data)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestWrite_WithText(t *testing.T) {
	cfg := setupDirs(t)
	w := NewWriter(cfg, zerolog.Nop())

	src := filepath.Join(cfg.InputDir, "A", "sub dir", "Q3 report.pptx")
	arts, err := w.Write(src, map[string]any{"text": "# Title\n\nbody  \n", "pages": json.Number("2")})
	require.NoError(t, err)

	wantJSON := filepath.Join(cfg.JSONDir, "A", "sub dir", "Q3_report.json")
	wantMD := filepath.Join(cfg.MarkdownDir, "A", "sub dir", "Q3_report.md")
	assert.Equal(t, wantJSON, arts.JSONPath)
	assert.Equal(t, wantMD, arts.MarkdownPath)

	md, err := os.ReadFile(wantMD)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nbody  \n", string(md))

	raw, err := os.ReadFile(wantJSON)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "# Title\n\nbody  \n", decoded["text"])
	assert.Equal(t, float64(2), decoded["pages"])
}

func TestWrite_WithoutText(t *testing.T) {
	cfg := setupDirs(t)
	w := NewWriter(cfg, zerolog.Nop())

	src := filepath.Join(cfg.InputDir, "A", "notes.txt")
	arts, err := w.Write(src, map[string]any{"summary": "ok"})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(cfg.JSONDir, "A", "notes.json"))
	assert.Empty(t, arts.MarkdownPath)
	assert.NoFileExists(t, filepath.Join(cfg.MarkdownDir, "A", "notes.md"))
	assert.DirExists(t, filepath.Join(cfg.MarkdownDir, "A"), "markdown tree mirrors input even without text")
}

func TestWrite_NonStringText(t *testing.T) {
	cfg := setupDirs(t)
	w := NewWriter(cfg, zerolog.Nop())

	src := filepath.Join(cfg.InputDir, "weird.pdf")
	arts, err := w.Write(src, map[string]any{"text": json.Number("42")})
	require.NoError(t, err)
	assert.FileExists(t, arts.JSONPath)
	assert.Empty(t, arts.MarkdownPath)
	assert.NoFileExists(t, filepath.Join(cfg.MarkdownDir, "weird.md"))
}

func TestWrite_TopLevelFile(t *testing.T) {
	cfg := setupDirs(t)
	w := NewWriter(cfg, zerolog.Nop())

	arts, err := w.Write(filepath.Join(cfg.InputDir, "top.pdf"), map[string]any{"text": "t"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.JSONDir, "top.json"), arts.JSONPath)
	assert.Equal(t, filepath.Join(cfg.MarkdownDir, "top.md"), arts.MarkdownPath)
}

func TestWrite_Idempotent(t *testing.T) {
	cfg := setupDirs(t)
	w := NewWriter(cfg, zerolog.Nop())
	src := filepath.Join(cfg.InputDir, "deck.pptx")
	data := map[string]any{"text": "same", "meta": map[string]any{"k": "v"}}

	first, err := w.Write(src, data)
	require.NoError(t, err)
	j1, _ := os.ReadFile(first.JSONPath)
	m1, _ := os.ReadFile(first.MarkdownPath)

	second, err := w.Write(src, data)
	require.NoError(t, err)
	j2, _ := os.ReadFile(second.JSONPath)
	m2, _ := os.ReadFile(second.MarkdownPath)

	assert.Equal(t, j1, j2)
	assert.Equal(t, m1, m2)

	// No temp files left behind.
	entries, err := os.ReadDir(cfg.JSONDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWrite_OutsideInputDir(t *testing.T) {
	cfg := setupDirs(t)
	w := NewWriter(cfg, zerolog.Nop())

	_, err := w.Write(filepath.Join(filepath.Dir(cfg.InputDir), "elsewhere.pdf"), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside input directory")
}

func TestWrite_UnwritableOutput(t *testing.T) {
	cfg := setupDirs(t)
	// A regular file where the json subdirectory should be created.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.JSONDir, "A"), []byte("x"), 0o644))

	w := NewWriter(cfg, zerolog.Nop())
	_, err := w.Write(filepath.Join(cfg.InputDir, "A", "doc.pdf"), map[string]any{"text": "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating directory")
}
