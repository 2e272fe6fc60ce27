// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// FileStatus is the terminal state of one candidate file in a run.
type FileStatus string

const (
	FileSucceeded FileStatus = "succeeded"
	FileFailed    FileStatus = "failed"
)

// FileOutcome records what happened to one candidate file.
type FileOutcome struct {
	// Path is the absolute path of the source file.
	Path string `json:"path" yaml:"path"`

	// RelPath is Path relative to the input root.
	RelPath string `json:"rel_path" yaml:"rel_path"`

	Status FileStatus `json:"status" yaml:"status"`

	// HTTPStatus is the response status code, or 0 when no response arrived.
	HTTPStatus int `json:"http_status,omitempty" yaml:"http_status,omitempty"`

	// Error describes the failure for failed files.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// JSONPath is the structured-data artifact written for the file.
	JSONPath string `json:"json_path,omitempty" yaml:"json_path,omitempty"`

	// MarkdownPath is the text-extract artifact, empty when the response
	// carried no text.
	MarkdownPath string `json:"markdown_path,omitempty" yaml:"markdown_path,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// RunSummary aggregates the outcomes of one run.
type RunSummary struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	APIURL     string        `json:"api_url" yaml:"api_url"`
	InputDir   string        `json:"input_dir" yaml:"input_dir"`
	OutputDir  string        `json:"output_dir" yaml:"output_dir"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	Succeeded  int           `json:"succeeded" yaml:"succeeded"`
	Failed     int           `json:"failed" yaml:"failed"`
	Files      []FileOutcome `json:"files" yaml:"files"`
}

// Total returns the number of files attempted.
func (s RunSummary) Total() int {
	return s.Succeeded + s.Failed
}

// HasFailures reports whether any file failed.
func (s RunSummary) HasFailures() bool {
	return s.Failed > 0
}

// Add appends an outcome and updates the counters.
func (s *RunSummary) Add(o FileOutcome) {
	switch o.Status {
	case FileSucceeded:
		s.Succeeded++
	case FileFailed:
		s.Failed++
	}
	s.Files = append(s.Files, o)
}
