// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/parse-files/internal/config"
	"github.com/pdiddy/parse-files/internal/history"
	"github.com/pdiddy/parse-files/pkg/types"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or the files of one run",
		Long: `History reads the run database written by --history-db. Without
arguments it lists the most recent runs, newest first. Given a run ID it
lists every file attempted in that run with its outcome.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runHistory,
	}
	cmd.Flags().Int("limit", 20, "maximum number of runs to list")
	cmd.Flags().Bool("json", false, "output as JSON")
	return cmd
}

func (a *app) runHistory(cmd *cobra.Command, args []string) error {
	path := a.v.GetString("history-db")
	if path == "" {
		return &config.Error{Msg: "history database not configured: set --history-db"}
	}
	path, err := config.ExpandPath(path)
	if err != nil {
		return &config.Error{Msg: "invalid history database path", Err: err}
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")

	if len(args) == 1 {
		files, err := store.Files(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return formatFilesOutput(a.stdout, args[0], files, jsonOutput)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return formatRunsOutput(a.stdout, runs, jsonOutput)
}

func formatRunsOutput(w io.Writer, runs []history.RunRecord, jsonOutput bool) error {
	if jsonOutput {
		if runs == nil {
			runs = []history.RunRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-20s  %9s  %6s  %5s  %s\n",
		"Run", "Started", "Succeeded", "Failed", "Total", "Input")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-20s  %9d  %6d  %5d  %s\n",
			r.RunID, r.StartedAt.Local().Format(time.DateTime),
			r.Succeeded, r.Failed, r.Total(), r.InputDir)
	}

	fmt.Fprintf(w, "\n%d runs\n", len(runs))
	return nil
}

func formatFilesOutput(w io.Writer, runID string, files []types.FileOutcome, jsonOutput bool) error {
	if jsonOutput {
		if files == nil {
			files = []types.FileOutcome{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(files)
	}

	if len(files) == 0 {
		fmt.Fprintf(w, "No files recorded for run %s.\n", runID)
		return nil
	}

	fmt.Fprintf(w, "%-9s  %4s  %-50s  %s\n", "Status", "HTTP", "File", "Error")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, f := range files {
		name := f.RelPath
		if len(name) > 50 {
			name = "..." + name[len(name)-47:]
		}
		code := "-"
		if f.HTTPStatus != 0 {
			code = fmt.Sprint(f.HTTPStatus)
		}
		fmt.Fprintf(w, "%-9s  %4s  %-50s  %s\n", f.Status, code, name, f.Error)
	}

	fmt.Fprintf(w, "\n%d files\n", len(files))
	return nil
}
