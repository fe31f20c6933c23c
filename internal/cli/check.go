// Package cli implements the diagnostics behind "toolbroker check".
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"toolbroker/internal/config"
	"toolbroker/internal/demo"
	"toolbroker/internal/records"
	"toolbroker/internal/tokenizer"
	"toolbroker/internal/tooling"
)

// Function variables for dependency injection in tests.
var (
	configWriteDefault = config.WriteDefault
	recordsConnect     = records.Connect
	newTikToken        = func(enc string) error {
		_, err := tokenizer.NewTikToken(enc)
		return err
	}
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	ConfigPath string // resolved config path
	Fix        bool   // if true, write default config when missing
}

// RunCheck checks config, records database, tokenizer and tool registry;
// optionally writes a default config. Returns the process exit code.
func RunCheck(opts CheckOptions, stdout, stderr io.Writer) int {
	cfgPath := config.ResolvePath(opts.ConfigPath)
	note := func(section, message string) {
		fmt.Fprintf(stdout, "  [%s] %s\n", section, message)
	}

	cfg, err := config.Load(cfgPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		note("Config", fmt.Sprintf("No config at %s.", cfgPath))
		if !opts.Fix {
			note("Config", "Run with --fix to create a default config.")
			cfg = config.Default()
			break
		}
		if writeErr := configWriteDefault(cfgPath); writeErr != nil {
			fmt.Fprintf(stderr, "  failed to write default config: %v\n", writeErr)
			return 1
		}
		note("Config", fmt.Sprintf("Wrote default config to %s.", cfgPath))
		cfg = config.Default()
	case err != nil:
		note("Config", err.Error())
		return 1
	default:
		note("Config", fmt.Sprintf("Loaded %s.", cfgPath))
	}

	if err := config.Validate(cfg); err != nil {
		note("Config", err.Error())
		return 1
	}

	note("Broker", fmt.Sprintf("maxConcurrency=%d callTimeoutMs=%d maxRetries=%d",
		cfg.Broker.MaxConcurrency, cfg.Broker.CallTimeoutMs, cfg.Retry.MaxRetries))
	if cfg.Broker.CallTimeoutMs == 0 {
		note("Broker", "No per-call timeout set; the default applies.")
	}

	note("Gateway", fmt.Sprintf("port=%d auth=%t", cfg.Gateway.Port, cfg.Gateway.AuthToken != ""))
	if cfg.Gateway.AuthToken == "" {
		note("Gateway", "Auth is disabled. Consider setting gateway.authToken for production.")
	}

	failed := false
	if url := cfg.Records.DatabaseURL; url == "" {
		note("Records", "Call recording disabled.")
	} else if db, err := recordsConnect(url); err != nil {
		note("Records", err.Error())
		failed = true
	} else {
		db.Close()
		note("Records", "Database reachable.")
	}

	if err := newTikToken(cfg.Tokenizer.Encoding); err != nil {
		note("Tokenizer", err.Error())
		failed = true
	} else {
		note("Tokenizer", fmt.Sprintf("encoding %q ok.", encodingName(cfg.Tokenizer.Encoding)))
	}

	reg := tooling.NewToolRegistry()
	if err := demo.Register(reg); err != nil {
		note("Tools", err.Error())
		failed = true
	} else {
		note("Tools", fmt.Sprintf("%d tools registered: %v", reg.Len(), reg.Names()))
	}

	if failed {
		fmt.Fprintln(stdout, "  Check found problems.")
		return 1
	}
	fmt.Fprintln(stdout, "  Check complete.")
	return 0
}

func encodingName(enc string) string {
	if enc == "" {
		return tokenizer.DefaultEncoding
	}
	return enc
}
