// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key
// name and the file contents (trimmed) are the value.
//
// Recognized keys: parse-api-token.
package secrets

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// DefaultDir is the directory consulted when none is configured.
const DefaultDir = ".secrets"

// APIToken is the key file holding the bearer token for the parse API.
const APIToken = "parse-api-token"

// Secrets maps key names to values.
type Secrets map[string]string

// Get returns the value for key, or "" when absent.
func (s Secrets) Get(key string) string {
	return s[key]
}

// Or returns the value for key when fallback is empty. An explicit value
// always wins over a stored secret.
func (s Secrets) Or(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return s[key]
}

// Keys returns the names of the loaded secrets, never their values.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

// maxValueSize bounds how much of one key file is read.
const maxValueSize = 64 << 10

// Load reads the secrets stored in dir. An empty or missing directory is
// not an error; Load returns an empty set.
func Load(dir string, warn func(name string, err error)) (Secrets, error) {
	if dir == "" {
		return Secrets{}, nil
	}
	s, err := LoadFS(os.DirFS(dir), warn)
	if err != nil {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}
	return s, nil
}

// LoadFS reads the key files at the root of fsys. Dotfiles and directories
// are ignored, and empty values are dropped. A file that cannot be read, or
// is larger than maxValueSize, is reported through warn and skipped.
func LoadFS(fsys fs.FS, warn func(name string, err error)) (Secrets, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if errors.Is(err, fs.ErrNotExist) {
		return Secrets{}, nil
	}
	if err != nil {
		return nil, err
	}

	s := Secrets{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		value, err := readValue(fsys, name)
		switch {
		case err != nil && warn != nil:
			warn(name, err)
		case err == nil && value != "":
			s[name] = value
		}
	}
	return s, nil
}

func readValue(fsys fs.FS, name string) (string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxValueSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxValueSize {
		return "", fmt.Errorf("larger than %d bytes", maxValueSize)
	}
	return strings.TrimSpace(string(data)), nil
}
