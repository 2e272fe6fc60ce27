// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one batch: discover candidate files, upload each in
// order, write the artifacts for every success, and report progress line by
// line. A failed upload is reported and the batch moves on; a failure to
// write artifacts aborts the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/pdiddy/parse-files/internal/discover"
	"github.com/pdiddy/parse-files/internal/output"
	"github.com/pdiddy/parse-files/internal/report"
	"github.com/pdiddy/parse-files/internal/upload"
	"github.com/pdiddy/parse-files/pkg/types"
)

// LockFile in the output root is flocked while a batch writes to it. The
// file is left in place after the batch so every run locks the same inode.
const LockFile = ".parse-files.lock"

// ErrOutputLocked is returned when another batch holds the output root.
var ErrOutputLocked = errors.New("output directory is in use by another run")

// ArtifactWriter stores the artifacts for one successful upload.
type ArtifactWriter interface {
	Write(srcPath string, data map[string]any) (output.Artifacts, error)
}

// Recorder persists a finished run. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, summary types.RunSummary) error
}

var (
	okLabel   = color.New(color.FgGreen).SprintFunc()
	failLabel = color.New(color.FgRed).SprintFunc()
)

// Runner holds everything one batch needs. Config, Uploader, Writer, and
// Out are required.
type Runner struct {
	Config   types.Config
	Uploader upload.Uploader
	Writer   ArtifactWriter
	Out      io.Writer
	Logger   zerolog.Logger

	// History, when set, records the run after the loop.
	History Recorder

	// Progress, when set, receives a progress bar.
	Progress io.Writer
}

// Run executes the batch. Zero candidate files is a successful no-op that
// writes nothing. The returned summary covers every file attempted, even
// when Run also returns an error.
func (r *Runner) Run(ctx context.Context) (types.RunSummary, error) {
	cfg := r.Config
	fmt.Fprintf(r.Out, "Input directory: %s\n", cfg.InputDir)
	fmt.Fprintf(r.Out, "Output directory: %s\n", cfg.OutputDir)

	files, err := discover.Files(cfg.InputDir, r.Logger)
	if err != nil {
		return types.RunSummary{}, err
	}

	if len(files) == 0 {
		fmt.Fprintf(r.Out, "No processable files found in %s\n", cfg.InputDir)
		return types.RunSummary{}, nil
	}

	fmt.Fprintf(r.Out, "Found %d files to process\n", len(files))

	unlock, err := r.lockOutput()
	if err != nil {
		return types.RunSummary{}, err
	}
	defer unlock()

	summary := types.RunSummary{
		RunID:     uuid.NewString(),
		APIURL:    cfg.APIURL,
		InputDir:  cfg.InputDir,
		OutputDir: cfg.OutputDir,
		StartedAt: time.Now().UTC(),
	}
	r.Logger.Debug().Str("run_id", summary.RunID).Int("files", len(files)).Msg("batch started")

	runErr := r.processAll(ctx, files, &summary)

	fmt.Fprintf(r.Out, "\nBatch summary: %d succeeded, %d failed (total: %d)\n",
		summary.Succeeded, summary.Failed, summary.Total())

	summary.FinishedAt = time.Now().UTC()
	if err := r.finish(summary); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return summary, runErr
}

// processAll walks files strictly in order; file N+1 starts only after file
// N's upload and writes are done.
func (r *Runner) processAll(ctx context.Context, files []string, summary *types.RunSummary) error {
	bar := r.newProgressBar(len(files))
	defer func() {
		if bar != nil {
			bar.Finish()
		}
	}()

	total := len(files)
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted after %d of %d files: %w", i, total, err)
		}

		rel := r.relPath(path)
		fmt.Fprintf(r.Out, "Processing [%d/%d]: %s\n", i+1, total, rel)

		outcome, err := r.processFile(ctx, path, rel)
		summary.Add(outcome)
		if bar != nil {
			bar.Add(1)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// processFile uploads one file and writes its artifacts. Only artifact
// write failures are returned as errors; upload failures are recorded in
// the outcome.
func (r *Runner) processFile(ctx context.Context, path, rel string) (types.FileOutcome, error) {
	outcome := types.FileOutcome{Path: path, RelPath: rel}

	res := r.Uploader.Upload(ctx, path)
	outcome.HTTPStatus = res.StatusCode
	outcome.Duration = res.Duration

	if !res.OK() {
		outcome.Status = types.FileFailed
		outcome.Error = res.Err.Error()
		fmt.Fprintf(r.Out, "Error processing %s: %v\n", path, res.Err)
		fmt.Fprintf(r.Out, "%s %s\n", failLabel("Failed to process:"), rel)
		return outcome, nil
	}

	arts, err := r.Writer.Write(path, res.Data)
	if err != nil {
		outcome.Status = types.FileFailed
		outcome.Error = err.Error()
		outcome.JSONPath = arts.JSONPath
		fmt.Fprintf(r.Out, "%s %s\n", failLabel("Failed to process:"), rel)
		return outcome, fmt.Errorf("saving outputs for %s: %w", rel, err)
	}

	outcome.Status = types.FileSucceeded
	outcome.JSONPath = arts.JSONPath
	outcome.MarkdownPath = arts.MarkdownPath
	fmt.Fprintf(r.Out, "%s %s\n", okLabel("Successfully processed:"), rel)
	return outcome, nil
}

// finish runs the end-of-batch hooks. They use a fresh context so an
// interrupted batch still leaves a record of what it did.
func (r *Runner) finish(summary types.RunSummary) error {
	var errs []error
	if r.Config.SummaryFile != "" {
		if err := report.Write(r.Config.SummaryFile, summary); err != nil {
			errs = append(errs, err)
		} else {
			r.Logger.Info().Str("path", r.Config.SummaryFile).Msg("run summary written")
		}
	}
	if r.History != nil {
		if err := r.History.Record(context.Background(), summary); err != nil {
			errs = append(errs, fmt.Errorf("recording run history: %w", err))
		} else {
			r.Logger.Debug().Str("run_id", summary.RunID).Msg("run recorded")
		}
	}
	return errors.Join(errs...)
}

// lockOutput takes an exclusive, non-blocking lock on the output root. The
// returned func releases the lock.
func (r *Runner) lockOutput() (func(), error) {
	path := filepath.Join(r.Config.OutputDir, LockFile)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, r.Config.OutputDir)
	}
	r.Logger.Debug().Str("lock", path).Msg("output directory locked")
	return func() {
		if err := lock.Unlock(); err != nil {
			r.Logger.Warn().Err(err).Str("lock", path).Msg("releasing lock")
		}
	}, nil
}

func (r *Runner) relPath(path string) string {
	rel, err := filepath.Rel(r.Config.InputDir, path)
	if err != nil {
		return path
	}
	return rel
}

func (r *Runner) newProgressBar(total int) *progressbar.ProgressBar {
	if r.Progress == nil {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.Progress),
		progressbar.OptionSetDescription("uploading"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)
}
