// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output writes the artifacts for one processed document: the full
// API response as JSON and, when present, its extracted text as Markdown.
// Both are placed at the source file's path relative to the input root,
// mirrored under the json/ and markdown/ output roots.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/parse-files/internal/discover"
	"github.com/pdiddy/parse-files/pkg/types"
)

const (
	// TextField is the response key holding the extracted document text.
	TextField = "text"

	jsonExt     = ".json"
	markdownExt = ".md"
)

// Artifacts lists the files written for one document. MarkdownPath is empty
// when the response carried no text.
type Artifacts struct {
	JSONPath     string
	MarkdownPath string
}

// Writer mirrors source paths from InputDir into the two artifact roots.
type Writer struct {
	inputDir    string
	jsonDir     string
	markdownDir string
	logger      zerolog.Logger
}

// NewWriter returns a Writer for the directories in cfg.
func NewWriter(cfg types.Config, logger zerolog.Logger) *Writer {
	return &Writer{
		inputDir:    cfg.InputDir,
		jsonDir:     cfg.JSONDir,
		markdownDir: cfg.MarkdownDir,
		logger:      logger,
	}
}

// SafeStem returns the base name of path without its extension, with every
// space replaced by an underscore.
func SafeStem(path string) string {
	return strings.ReplaceAll(discover.Stem(filepath.Base(path)), " ", "_")
}

// Text returns the extracted text in data and whether a string text field
// was present. An empty string still counts as present.
func Text(data map[string]any) (string, bool) {
	v, ok := data[TextField]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Encode renders data as two-space indented JSON with sorted keys, literal
// non-ASCII and HTML characters, and a trailing newline. The same input
// always yields the same bytes.
func Encode(data map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Paths returns the artifact locations for srcPath without touching disk.
func (w *Writer) Paths(srcPath string) (Artifacts, error) {
	rel, err := filepath.Rel(w.inputDir, srcPath)
	if err != nil {
		return Artifacts{}, fmt.Errorf("relative path of %s: %w", srcPath, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Artifacts{}, fmt.Errorf("%s is outside input directory %s", srcPath, w.inputDir)
	}
	relDir := filepath.Dir(rel)
	stem := SafeStem(srcPath)
	return Artifacts{
		JSONPath:     filepath.Join(w.jsonDir, relDir, stem+jsonExt),
		MarkdownPath: filepath.Join(w.markdownDir, relDir, stem+markdownExt),
	}, nil
}

// Write stores the artifacts for srcPath. The JSON artifact is always
// written; the Markdown artifact only when data has a string text field,
// written verbatim. Each file is replaced atomically, but the pair is not:
// a failure after the JSON write leaves the JSON artifact in place.
func (w *Writer) Write(srcPath string, data map[string]any) (Artifacts, error) {
	paths, err := w.Paths(srcPath)
	if err != nil {
		return Artifacts{}, err
	}

	for _, dir := range []string{filepath.Dir(paths.JSONPath), filepath.Dir(paths.MarkdownPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Artifacts{}, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	encoded, err := Encode(data)
	if err != nil {
		return Artifacts{}, fmt.Errorf("encoding response for %s: %w", srcPath, err)
	}
	if err := writeFileAtomic(paths.JSONPath, encoded); err != nil {
		return Artifacts{}, fmt.Errorf("writing %s: %w", paths.JSONPath, err)
	}

	written := Artifacts{JSONPath: paths.JSONPath}

	text, ok := Text(data)
	if !ok {
		if _, present := data[TextField]; present {
			w.logger.Warn().Str("path", srcPath).Msg("text field is not a string; markdown skipped")
		}
		return written, nil
	}
	if err := writeFileAtomic(paths.MarkdownPath, []byte(text)); err != nil {
		return written, fmt.Errorf("writing %s: %w", paths.MarkdownPath, err)
	}
	written.MarkdownPath = paths.MarkdownPath
	return written, nil
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".parse-files-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
