// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover enumerates the candidate documents under an input root.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// ignoredNames are filesystem droppings that are never uploaded.
var ignoredNames = map[string]bool{
	".DS_Store":  true,
	"Thumbs.db":  true,
	".gitignore": true,
}

// allowedExts are the lower-cased extensions the parse API accepts.
var allowedExts = map[string]bool{
	".ppt":  true,
	".pptx": true,
	".doc":  true,
	".docx": true,
	".pdf":  true,
	".txt":  true,
}

// Ext returns the extension of a base name including the dot. The leading
// dot of a dotfile does not start an extension, and a trailing dot yields
// no extension: Ext(".txt") == "" and Ext("a.") == "".
func Ext(name string) string {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return ""
	}
	return name[i:]
}

// Stem returns the base name with Ext removed.
func Stem(name string) string {
	return strings.TrimSuffix(name, Ext(name))
}

// ShouldProcess reports whether a file with the given base name is a
// candidate for upload.
func ShouldProcess(name string) bool {
	if ignoredNames[name] {
		return false
	}
	return allowedExts[strings.ToLower(Ext(name))]
}

// Files walks root recursively and returns the absolute paths of every
// regular file that passes ShouldProcess, in lexical walk order.
// Directories are never returned. Symlinks to regular files are included;
// symlinked directories are not descended. Subdirectories that cannot be
// read are skipped with a warning; an unreadable root is an error.
func Files(root string, logger zerolog.Logger) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !ShouldProcess(d.Name()) {
			return nil
		}
		if !isRegular(path, d) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	logger.Debug().Str("root", root).Int("files", len(files)).Msg("discovery complete")
	return files, nil
}

func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
