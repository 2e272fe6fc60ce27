// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config validates command-line options and resolves them into an
// immutable types.Config: expanded, absolute, symlink-resolved directories
// with the output tree created on disk.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pdiddy/parse-files/pkg/types"
)

const (
	// JSONSubdir holds structured-data artifacts under the output root.
	JSONSubdir = "json"
	// MarkdownSubdir holds text-extract artifacts under the output root.
	MarkdownSubdir = "markdown"

	// DefaultOutputDir is used when no output directory is given.
	DefaultOutputDir = "output"
	// DefaultUserAgent is sent with every upload.
	DefaultUserAgent = "parse-files/0.1"
)

// Error reports an invalid configuration. The CLI exits before touching any
// input file when Resolve returns one.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is, or wraps, a configuration error.
func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// Options holds the raw, user-supplied settings before resolution.
type Options struct {
	APIURL      string        `json:"api_url"`
	InputDir    string        `json:"input_dir"`
	OutputDir   string        `json:"output_dir"`
	APIToken    string        `json:"api_token"`
	UserAgent   string        `json:"user_agent"`
	Timeout     time.Duration `json:"timeout"`
	Delay       time.Duration `json:"delay"`
	SummaryFile string        `json:"summary_file"`
	HistoryDB   string        `json:"history_db"`
}

// Validate checks the option values without touching the filesystem.
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.APIURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&o.InputDir, validation.Required),
		validation.Field(&o.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&o.Delay, validation.Min(time.Duration(0))),
		validation.Field(&o.SummaryFile, validation.By(summaryExt)),
	)
}

// absoluteURL accepts only URLs that carry both a scheme and a host.
func absoluteURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid URL format: %s", s)
	}
	return nil
}

func summaryExt(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	switch strings.ToLower(filepath.Ext(s)) {
	case ".yaml", ".yml", ".json":
		return nil
	}
	return fmt.Errorf("summary file must end in .yaml, .yml, or .json: %s", s)
}

// Resolve validates opts and produces the run configuration. The API URL is
// checked before any filesystem access. The input directory must exist; the
// output directory and its json/ and markdown/ children are created when
// missing. The summary and history paths get the same "~" expansion as the
// directories. Invalid options yield an *Error; failures creating the output
// tree are returned as ordinary errors.
func Resolve(opts Options) (types.Config, error) {
	if err := opts.Validate(); err != nil {
		return types.Config{}, &Error{Msg: "invalid configuration", Err: err}
	}

	inputDir, err := resolveInput(opts.InputDir)
	if err != nil {
		return types.Config{}, err
	}

	outDir := opts.OutputDir
	if outDir == "" {
		outDir = DefaultOutputDir
	}
	outputDir, err := EnsureOutputDirs(outDir)
	if err != nil {
		return types.Config{}, err
	}

	summaryFile, err := expandOptional(opts.SummaryFile)
	if err != nil {
		return types.Config{}, &Error{Msg: "invalid summary file path", Err: err}
	}
	historyDB, err := expandOptional(opts.HistoryDB)
	if err != nil {
		return types.Config{}, &Error{Msg: "invalid history database path", Err: err}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	cfg := types.Config{
		HTTPConfig: types.HTTPConfig{
			Timeout:   opts.Timeout,
			UserAgent: userAgent,
			APIToken:  opts.APIToken,
			Delay:     opts.Delay,
		},
		APIURL:      strings.TrimRight(opts.APIURL, "/"),
		InputDir:    inputDir,
		OutputDir:   outputDir,
		JSONDir:     filepath.Join(outputDir, JSONSubdir),
		MarkdownDir: filepath.Join(outputDir, MarkdownSubdir),
		SummaryFile: summaryFile,
		HistoryDB:   historyDB,
	}
	return cfg, nil
}

func resolveInput(dir string) (string, error) {
	abs, err := ExpandPath(dir)
	if err != nil {
		return "", &Error{Msg: "resolving input directory", Err: err}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &Error{Msg: fmt.Sprintf("input directory does not exist: %s", abs)}
		}
		return "", &Error{Msg: fmt.Sprintf("resolving input directory %s", abs), Err: err}
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", &Error{Msg: fmt.Sprintf("reading input directory %s", resolved), Err: err}
	}
	if !info.IsDir() {
		return "", &Error{Msg: fmt.Sprintf("input path is not a directory: %s", resolved)}
	}
	return resolved, nil
}

// EnsureOutputDirs creates dir and its json/ and markdown/ subdirectories
// if they do not exist, and returns the absolute, symlink-resolved path of
// dir. Calling it on an existing tree is a no-op.
func EnsureOutputDirs(dir string) (string, error) {
	abs, err := ExpandPath(dir)
	if err != nil {
		return "", fmt.Errorf("resolving output directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", abs, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving output directory %s: %w", abs, err)
	}
	for _, sub := range []string{JSONSubdir, MarkdownSubdir} {
		p := filepath.Join(resolved, sub)
		if err := os.MkdirAll(p, 0o755); err != nil {
			return "", fmt.Errorf("creating directory %s: %w", p, err)
		}
	}
	return resolved, nil
}

// expandOptional expands p unless it is empty, which means disabled.
func expandOptional(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	return ExpandPath(p)
}

// ExpandPath replaces a leading "~" with the user's home directory and
// returns the cleaned absolute path.
func ExpandPath(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding %s: %w", p, err)
		}
		p = filepath.Join(home, p[1:])
	}
	return filepath.Abs(p)
}
