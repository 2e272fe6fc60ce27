// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the parse-files CLI. The root command
// uploads every eligible document under an input directory to a document
// parsing API and saves the responses; history and version are subcommands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/parse-files/internal/config"
	"github.com/pdiddy/parse-files/internal/history"
	"github.com/pdiddy/parse-files/internal/httputil"
	"github.com/pdiddy/parse-files/internal/logging"
	"github.com/pdiddy/parse-files/internal/output"
	"github.com/pdiddy/parse-files/internal/pipeline"
	"github.com/pdiddy/parse-files/internal/secrets"
	"github.com/pdiddy/parse-files/internal/upload"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "PARSE_FILES"

// app carries the per-invocation state shared by the commands.
type app struct {
	v       *viper.Viper
	stdout  io.Writer
	stderr  io.Writer
	secrets secrets.Secrets
	logger  zerolog.Logger
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI with args and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if config.IsConfigError(err) {
			fmt.Fprintf(stdout, "Error: %v\n", err)
		} else {
			fmt.Fprintf(stdout, "Unexpected error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "parse-files",
		Short: "Upload documents to a parsing API and save the results",
		Long: `parse-files walks an input directory, uploads every document with an
allowed extension (.ppt, .pptx, .doc, .docx, .pdf, .txt) to
<api-url>/parse_document/ppt, and saves each response under the output
directory: the full JSON response in json/ and the extracted text, when
the response has one, in markdown/. The input tree layout is mirrored.

Files are processed one at a time. A failed upload is reported and the
run moves on; the exit status is non-zero only for configuration errors
and unexpected failures.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return &config.Error{Msg: "invalid arguments", Err: err}
			}
			return nil
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runParse,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &config.Error{Msg: "invalid arguments", Err: err}
	})

	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./parse-files.yaml or ~/.config/parse-files/parse-files.yaml)")
	pf.String("history-db", "", "SQLite database recording each run (disabled when empty)")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of secret files")
	pf.String("log-level", logging.DefaultLevel, "diagnostic log level: debug, info, warn, error")
	pf.Bool("log-json", false, "write diagnostic logs as JSON")
	pf.BoolP("verbose", "v", false, "debug-level diagnostic logs")
	pf.Bool("no-color", false, "disable colored output")

	f := cmd.Flags()
	f.String("api-url", "", "base URL of the document parsing API (required)")
	f.String("input-dir", "", "directory containing documents to upload (required)")
	f.String("output-dir", config.DefaultOutputDir, "directory for json/ and markdown/ results")
	f.String("api-token", "", "bearer token for the parsing API (default: .secrets/parse-api-token)")
	f.Duration("timeout", 0, "per-request timeout, e.g. 90s (0 means no timeout)")
	f.Duration("delay", 0, "minimum delay between consecutive uploads, e.g. 500ms")
	f.String("summary-file", "", "write a run summary to this .yaml or .json file")
	f.Bool("progress", false, "show a progress bar on stderr")

	a.v.BindPFlags(pf)
	a.v.BindPFlags(f)

	cmd.AddCommand(newHistoryCmd(a), newVersionCmd(a))
	return cmd
}

// setup loads .env, the config file, secrets, and the logger. It runs
// before every command.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &config.Error{Msg: "loading .env", Err: err}
	}
	if err := a.initConfig(); err != nil {
		return err
	}

	if a.v.GetBool("no-color") {
		color.NoColor = true
	}
	a.logger = logging.New(logging.Options{
		Level:   a.v.GetString("log-level"),
		Verbose: a.v.GetBool("verbose"),
		JSON:    a.v.GetBool("log-json"),
		NoColor: color.NoColor,
		Output:  a.stderr,
	})
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Info().Str("path", used).Msg("using config file")
	}

	s, err := secrets.Load(a.v.GetString("secrets-dir"), func(name string, err error) {
		a.logger.Warn().Err(err).Str("secret", name).Msg("skipping unreadable secret")
	})
	if err != nil {
		return err
	}
	a.secrets = s
	if len(s) > 0 {
		keys := s.Keys()
		sort.Strings(keys)
		a.logger.Debug().Strs("keys", keys).Msg("loaded secrets")
	}
	return nil
}

func (a *app) initConfig() error {
	v := a.v
	cfgFile := v.GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("parse-files")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "parse-files"))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return &config.Error{Msg: "reading config file", Err: err}
	}
	return nil
}

func (a *app) runParse(cmd *cobra.Command, _ []string) error {
	v := a.v
	cfg, err := config.Resolve(config.Options{
		APIURL:      v.GetString("api-url"),
		InputDir:    v.GetString("input-dir"),
		OutputDir:   v.GetString("output-dir"),
		APIToken:    a.secrets.Or(secrets.APIToken, v.GetString("api-token")),
		Timeout:     v.GetDuration("timeout"),
		Delay:       v.GetDuration("delay"),
		SummaryFile: v.GetString("summary-file"),
		HistoryDB:   v.GetString("history-db"),
	})
	if err != nil {
		return err
	}

	httpClient := httputil.NewClient(cfg.HTTPConfig)
	runner := &pipeline.Runner{
		Config:   cfg,
		Uploader: upload.NewClient(httpClient, cfg, a.logger),
		Writer:   output.NewWriter(cfg, a.logger),
		Out:      a.stdout,
		Logger:   a.logger,
	}
	if v.GetBool("progress") {
		runner.Progress = a.stderr
	}

	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		runner.History = store
	}

	_, err = runner.Run(cmd.Context())
	return err
}
