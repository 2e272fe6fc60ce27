// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes the machine-readable summary of a run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/parse-files/pkg/types"
)

// Format selects the summary encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the encoding from the file extension: .json gives JSON,
// anything else YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Marshal encodes summary in the given format.
func Marshal(summary types.RunSummary, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML, "":
		data, err := yaml.Marshal(summary)
		if err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
}

// Write stores summary at path, creating parent directories as needed.
func Write(path string, summary types.RunSummary) error {
	data, err := Marshal(summary, FormatFor(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing summary %s: %w", path, err)
	}
	return nil
}
