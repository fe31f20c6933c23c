package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"toolbroker/internal/broker"
	"toolbroker/internal/config"
	"toolbroker/internal/demo"
	"toolbroker/internal/domain"
	"toolbroker/internal/logging"
	"toolbroker/internal/records"
	"toolbroker/internal/tooling"
)

// buildMeta holds version and build metadata (injectable via ldflags).
type buildMeta struct {
	Version string
	GoOS    string
	GoArch  string
}

func newBuildMeta(version, goos, goarch string) buildMeta {
	if goos == "" {
		goos = runtime.GOOS
	}
	if goarch == "" {
		goarch = runtime.GOARCH
	}
	return buildMeta{Version: version, GoOS: goos, GoArch: goarch}
}

func (m buildMeta) String() string {
	return fmt.Sprintf("toolbroker %s %s/%s", m.Version, m.GoOS, m.GoArch)
}

func newRootCommand(bm buildMeta) *cobra.Command {
	root := &cobra.Command{
		Use:           "toolbroker",
		Short:         "Tool-call broker for LLM agents",
		Long:          "toolbroker registers tools, advertises their schemas and executes the tool calls a model emits.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), bm.String())
				return nil
			}
			return cmd.Help()
		},
	}
	root.Flags().BoolP("version", "V", false, "print version and build metadata")
	root.PersistentFlags().StringP("config", "c", "", "config file (default $"+config.EnvPath+" or "+config.DefaultPath+")")

	root.AddCommand(newToolsCommand(), newInvokeCommand(), newServeCommand(), newRecordsCommand(), newCheckCommand())
	return root
}

// app is the wiring shared by the subcommands that execute tools.
type app struct {
	cfg     *domain.Config
	logger  *slog.Logger
	level   *slog.LevelVar
	invoker *broker.Invoker
	store   *records.Store // nil when records are disabled
	closers []func() error
}

func (a *app) Close() {
	a.invoker.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

// loadConfig resolves and loads the config file. A missing file yields the defaults.
func loadConfig(cmd *cobra.Command) (*domain.Config, error) {
	flag, _ := cmd.Flags().GetString("config")
	path := config.ResolvePath(flag)
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp builds the registry, the invoker and, when configured, the call recorder.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, level := logging.NewLeveled(cfg.Infra, cmd.ErrOrStderr())

	reg := tooling.NewToolRegistry()
	if err := demo.Register(reg); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, level: level}
	opts := append(broker.OptionsFromConfig(*cfg), broker.WithLogger(logger))
	if url := cfg.Records.DatabaseURL; url != "" {
		db, err := records.Connect(url)
		if err != nil {
			return nil, err
		}
		store, err := records.NewStore(db)
		if err == nil {
			err = store.Migrate(cmd.Context())
		}
		if err != nil {
			db.Close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.store = store
		opts = append(opts, broker.WithRecorder(store))
	}
	a.invoker = broker.NewInvoker(reg, opts...)
	return a, nil
}

func getVersion() string {
	if version != "" {
		return version
	}
	b, err := os.ReadFile("VERSION")
	if err != nil {
		return "dev"
	}
	return strings.TrimSpace(string(b))
}

// version is set at build time via ldflags for build metadata, e.g.:
//
//	go build -ldflags "-X main.version=1.0.0" -o toolbroker ./cmd/toolbroker
var version string

// stderr is where runApp reports errors; tests replace it.
var stderr io.Writer = os.Stderr

// exitCodeErr carries an exit code for the process. When returned from a command, runApp exits with that code.
type exitCodeErr int

func (e exitCodeErr) Error() string { return fmt.Sprintf("exit %d", int(e)) }
func (e exitCodeErr) ExitCode() int { return int(e) }

// runApp runs the root command with the given args and returns the exit code.
func runApp(args []string) int {
	bm := newBuildMeta(version, "", "")
	if bm.Version == "" {
		bm.Version = getVersion()
	}
	root := newRootCommand(bm)
	root.SetArgs(args[1:])
	if err := root.Execute(); err != nil {
		var ec interface{ ExitCode() int }
		if errors.As(err, &ec) {
			return ec.ExitCode()
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
