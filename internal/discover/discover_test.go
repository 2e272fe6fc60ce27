// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldProcess(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.pptx", true},
		{"slides.PPT", true},
		{"memo.Doc", true},
		{"memo.docx", true},
		{"paper.pdf", true},
		{"notes.txt", true},
		{"archive.tar.PDF", true},
		{"skip.ini", false},
		{"image.png", false},
		{"README", false},
		{".DS_Store", false},
		{"Thumbs.db", false},
		{".gitignore", false},
		{".txt", false},
		{"trailing.", false},
		{"pdf", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldProcess(tt.name))
		})
	}
}

func TestExtAndStem(t *testing.T) {
	tests := []struct {
		name     string
		wantExt  string
		wantStem string
	}{
		{"report.pptx", ".pptx", "report"},
		{"my deck.v2.PDF", ".PDF", "my deck.v2"},
		{".txt", "", ".txt"},
		{"..txt", ".txt", "."},
		{"noext", "", "noext"},
		{"dot.", "", "dot."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantExt, Ext(tt.name))
			assert.Equal(t, tt.wantStem, Stem(tt.name))
		})
	}
}

// writeTree creates files (relative paths) under root with placeholder content.
func writeTree(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, filepath.FromSlash(r))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("content"), 0o644))
	}
}

func relAll(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out[i] = filepath.ToSlash(r)
	}
	return out
}

func TestFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"A/report.pptx",
		"A/notes.txt",
		"B/skip.ini",
		"B/deep/er/still/paper.PDF",
		"top.docx",
		".DS_Store",
		"A/Thumbs.db",
		"A/.gitignore",
	)
	// A directory whose name looks like a candidate is never selected.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "folder.pdf"), 0o755))

	files, err := Files(root, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"A/notes.txt",
		"A/report.pptx",
		"B/deep/er/still/paper.PDF",
		"top.docx",
	}, relAll(t, root, files))
}

func TestFiles_StableOrder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "z.pdf", "a.pdf", "m/b.txt", "m/a.txt")

	first, err := Files(root, zerolog.Nop())
	require.NoError(t, err)
	second, err := Files(root, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFiles_Empty(t *testing.T) {
	files, err := Files(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFiles_MissingRoot(t *testing.T) {
	_, err := Files(filepath.Join(t.TempDir(), "gone"), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning")
}

func TestFiles_Symlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeTree(t, outside, "linked.pdf", "dir/inner.pdf")

	if err := os.Symlink(filepath.Join(outside, "linked.pdf"), filepath.Join(root, "linked.pdf")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(outside, "dir"), filepath.Join(root, "dir")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "missing.pdf"), filepath.Join(root, "dangling.pdf")))

	files, err := Files(root, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"linked.pdf"}, relAll(t, root, files))
}
