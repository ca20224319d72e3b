package main

import (
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	httpAdapter "github.com/bft-labs/flightrec/internal/adapters/http"
	logAdapter "github.com/bft-labs/flightrec/internal/adapters/log"
	"github.com/bft-labs/flightrec/internal/cliconfig"
	"github.com/bft-labs/flightrec/internal/ports"
	"github.com/bft-labs/flightrec/pkg/flightrec"
)

const longHelp = `Records how long this host stays up.

While running, flight-recorder keeps one row of its database current with the
time the process has been alive and the wall-clock time of the last heartbeat.
After a crash or power loss the row still holds the last heartbeat, so the
flights command can tell when the host went down and for how long.`

var exampleUsage = strings.TrimSpace(`
  flight-recorder
  flight-recorder -i 5 -v debug -l /var/log/flight-recorder.log
  flight-recorder -d postgres://recorder@db.internal/flights --metrics-addr :9102
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// reportedError marks a failure that run has already logged at critical
// severity.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	cfg := cliconfig.DefaultConfig()
	var cfgPath, envFile string

	root := &cobra.Command{
		Use:           "flight-recorder",
		Short:         "Record host uptime into a flight database",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if err := loadConfig(&cfg, cfgPath, envFile, changed); err != nil {
				return err
			}

			logger, closer, err := cliconfig.NewLogger(cfg.Verbosity, cfg.LogFile, stderr)
			if err != nil {
				return err
			}
			defer closer.Close()

			return run(cfg, logger)
		},
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.flight-recorder/config.toml)")
	root.Flags().StringVar(&envFile, "env-file", "", "dotenv file with FLIGHTREC_* variables")
	root.Flags().Float64VarP(&cfg.Interval, "interval", "i", cfg.Interval, "interval between flight record updates, in seconds")
	root.Flags().StringVarP(&cfg.Verbosity, "verbosity", "v", cfg.Verbosity, "logging verbosity (debug, info, warn, error, fatal, crit)")
	root.Flags().StringVarP(&cfg.LogFile, "log", "l", cfg.LogFile, "output messages to log file instead of stderr")
	root.Flags().StringVarP(&cfg.Database, "database", "d", cfg.Database, "database path or postgres:// URL")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve /metrics and /healthz on this address")

	err := root.Execute()
	if err == nil {
		return 0
	}
	var reported *reportedError
	if !errors.As(err, &reported) {
		logger := cliconfig.Logger(stderr)
		logger.WithLevel(zerolog.FatalLevel).Err(err).Msg("flight-recorder")
	}
	return 1
}

// loadConfig layers config file, environment and flags onto cfg.
func loadConfig(cfg *cliconfig.Config, cfgPath, envFile string, changed map[string]bool) error {
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
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return fmt.Errorf("config file %s: %w", cfgFile, err)
		}
	}

	if err := cliconfig.LoadEnvFile(envFile); err != nil {
		return err
	}
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func run(cfg cliconfig.Config, log zerolog.Logger) error {
	logger := logAdapter.NewZerolog(log.With().Str("component", "RECORDER").Logger())
	mainLog := logAdapter.NewZerolog(log.With().Str("component", "MAIN").Logger())

	fail := func(msg string, err error) error {
		mainLog.Critical(msg, ports.Err(err))
		return &reportedError{err: err}
	}

	mainLog.Info("starting flight recorder...")
	defer mainLog.Info("flight recorder shut down")

	opts := []flightrec.Option{flightrec.WithLogger(logger)}

	var reg *prometheus.Registry
	if cfg.MetricsAddr != "" {
		reg = prometheus.NewRegistry()
		opts = append(opts, flightrec.WithMetrics(reg, ""))
	}

	rec, err := flightrec.New(flightrec.Config{
		Database: cfg.Database,
		Interval: cfg.IntervalDuration(),
	}, opts...)
	if err != nil {
		return fail("invalid recorder configuration", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := rec.Start(ctx); err != nil {
		switch {
		case errors.Is(err, flightrec.ErrStoreOpen):
			return fail("DB connection failed", err)
		case errors.Is(err, flightrec.ErrSessionCreate):
			return fail("unable to create flight record", err)
		default:
			return fail("unable to start flight recorder", err)
		}
	}

	if reg != nil {
		srv := httpAdapter.NewStatusServer(cfg.MetricsAddr, reg, health(rec), mainLog)
		if err := srv.Start(); err != nil {
			_ = rec.Stop()
			return fail("status server failed", err)
		}
		defer srv.Shutdown(context.Background())
	}

	select {
	case sig := <-sigCh:
		mainLog.Info("received signal, stopping...", ports.String("signal", sig.String()))
	case <-rec.Done():
		if rec.Status() == flightrec.StateCrashed {
			return fail("flight recorder crashed", errors.New("heartbeat loop failed"))
		}
		return nil
	}

	if err := rec.Stop(); err != nil {
		return fail("flight recorder did not land", err)
	}
	return nil
}

func health(rec *flightrec.Recorder) httpAdapter.HealthFunc {
	return func() httpAdapter.Health {
		state := rec.Status()
		id, duration, ts := rec.Last()
		return httpAdapter.Health{
			State:     strings.ToLower(state.String()),
			Healthy:   state == flightrec.StateRunning,
			SessionID: id,
			Duration:  duration,
			LastTS:    ts,
		}
	}
}
