// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds settings for the connection to the parse API.
type HTTPConfig struct {
	// Timeout is the per-request timeout. Zero leaves the transport default
	// in place.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with every upload
	// (e.g. "parse-files/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// APIToken is an optional bearer token for the parse API.
	APIToken string `json:"-" yaml:"-"`

	// Delay is the minimum spacing between consecutive uploads. Zero means
	// uploads are issued back to back.
	Delay time.Duration `json:"delay" yaml:"delay"`
}

// Config is the resolved, immutable configuration for one run. It is built
// once by config.Resolve and passed by value to every stage.
type Config struct {
	HTTPConfig `yaml:",inline"`

	// APIURL is the base URL of the parse API with trailing slashes removed.
	APIURL string `json:"api_url" yaml:"api_url"`

	// InputDir is the absolute, symlink-resolved input root.
	InputDir string `json:"input_dir" yaml:"input_dir"`

	// OutputDir is the absolute, symlink-resolved output root.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// JSONDir is OutputDir/json, the root of structured-data artifacts.
	JSONDir string `json:"json_dir" yaml:"json_dir"`

	// MarkdownDir is OutputDir/markdown, the root of text-extract artifacts.
	MarkdownDir string `json:"markdown_dir" yaml:"markdown_dir"`

	// SummaryFile, when set, receives a YAML or JSON run summary.
	SummaryFile string `json:"summary_file,omitempty" yaml:"summary_file,omitempty"`

	// HistoryDB, when set, is the SQLite database that records each run.
	HistoryDB string `json:"history_db,omitempty" yaml:"history_db,omitempty"`
}
