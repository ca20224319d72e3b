package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/bft-labs/flightrec/internal/adapters/log"
	"github.com/bft-labs/flightrec/internal/adapters/sqlstore"
	"github.com/bft-labs/flightrec/internal/app"
	"github.com/bft-labs/flightrec/internal/cliconfig"
	"github.com/bft-labs/flightrec/internal/domain"
	"github.com/bft-labs/flightrec/internal/report"
)

// Exit codes.
const (
	exitOK        = 0
	exitUsage     = 1
	exitStoreOpen = 3
	exitStoreRead = 4
)

const longHelp = `Reports system crashes and downtime duration.

flights reads every record written by flight-recorder and prints the host's
history as a gapless sequence of FLIGHT (up) and DOWNTIME (down) intervals.`

var exampleUsage = strings.TrimSpace(`
  flights
  flights -f text -d /var/lib/flight-recorder/flight-recorder.db
  flights --follow
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// exitError carries the process exit status of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	cfg := cliconfig.DefaultReportConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "flights",
		Short:         "Report host uptime and downtime from a flight database",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if err := loadConfig(&cfg, cfgPath, changed); err != nil {
				return &exitError{code: exitUsage, err: err}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, stdout, stderr)
		},
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.flight-recorder/config.toml)")
	root.Flags().StringVarP(&cfg.Database, "database", "d", cfg.Database, "database path or postgres:// URL")
	root.Flags().StringVarP(&cfg.Format, "format", "f", cfg.Format, "output format (json, text)")
	root.Flags().StringVar(&cfg.TieBreak, "tie-break", cfg.TieBreak, "order of a close and an open at the same instant (closes-first, opens-first)")
	root.Flags().BoolVar(&cfg.Follow, "follow", cfg.Follow, "re-emit the report whenever the database changes")

	err := root.Execute()
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "flights: %v\n", err)

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage
}

func loadConfig(cfg *cliconfig.ReportConfig, cfgPath string, changed map[string]bool) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgPath != "" && !cliconfig.FileExists(cfgFile) {
		return fmt.Errorf("config file %s not found", cfgFile)
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cliconfig.ApplyReportFileConfig(cfg, fc, changed)
	}
	cliconfig.ApplyReportEnvConfig(cfg, changed)
	return cfg.Validate()
}

func run(ctx context.Context, cfg cliconfig.ReportConfig, stdout, stderr io.Writer) error {
	tb, err := domain.ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	enc, err := report.NewEncoder(cfg.Format)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	if cfg.Follow && sqlstore.IsPostgres(cfg.Database) {
		return &exitError{code: exitUsage, err: errors.New("--follow requires a SQLite database")}
	}

	store, err := sqlstore.Open(ctx, cfg.Database, sqlstore.Options{ReadOnly: true})
	if err != nil {
		return &exitError{code: exitStoreOpen, err: fmt.Errorf("DB connection failed: %w", err)}
	}
	defer store.Close()

	out := bufio.NewWriter(stdout)
	defer out.Flush()

	build := func(ctx context.Context) ([]domain.Event, error) {
		return app.ReconstructStore(ctx, store, tb)
	}

	if cfg.Follow {
		log := cliconfig.ConsoleLogger(stderr, false).Level(zerolog.WarnLevel)
		f := &report.Follower{
			Path:    cfg.Database,
			Build:   build,
			Encoder: enc,
			Out:     flushWriter{out},
			Logger:  logAdapter.NewZerolog(log),
		}
		if err := f.Run(ctx); err != nil {
			return &exitError{code: exitStoreRead, err: err}
		}
		return nil
	}

	events, err := build(ctx)
	if err != nil {
		return &exitError{code: exitStoreRead, err: err}
	}
	if err := report.Write(out, enc, events); err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	return nil
}

// flushWriter flushes after every write so follow output is not held back.
type flushWriter struct {
	w *bufio.Writer
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	return n, f.w.Flush()
}
