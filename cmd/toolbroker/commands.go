package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"toolbroker/internal/cli"
	"toolbroker/internal/config"
	"toolbroker/internal/domain"
	"toolbroker/internal/gateway"
	"toolbroker/internal/logging"
	"toolbroker/internal/tokenizer"
	"toolbroker/internal/wire"
)

func newToolsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool definitions advertised to the model",
		Args:  cobra.NoArgs,
		RunE:  runTools,
	}
	cmd.Flags().Bool("tokens", false, "print the prompt token cost of each definition instead")
	return cmd
}

func runTools(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	defs := a.invoker.Definitions()

	if withTokens, _ := cmd.Flags().GetBool("tokens"); withTokens {
		tok, err := tokenizer.NewTikToken(a.cfg.Tokenizer.Encoding)
		if err != nil {
			return err
		}
		costs, total, err := tokenizer.DefinitionTokens(tok, defs)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "TOOL\tTOKENS\n")
		for _, c := range costs {
			fmt.Fprintf(tw, "%s\t%d\n", c.Name, c.Tokens)
		}
		fmt.Fprintf(tw, "total (%s)\t%d\n", tok.Encoding(), total)
		return tw.Flush()
	}
	return printJSON(cmd.OutOrStdout(), wire.OpenAITools(defs))
}

func newInvokeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Execute a JSON array of tool calls and print the results",
		Long: `Reads a JSON array of {"callId","toolName","arguments"} objects from --file
or stdin, executes them as one batch and prints the results in request order.
Calls without a callId get a generated one.`,
		Args: cobra.NoArgs,
		RunE: runInvoke,
	}
	cmd.Flags().StringP("file", "f", "", "read requests from file instead of stdin")
	cmd.Flags().StringArray("context", nil, "tool context entry as key=value (repeatable)")
	return cmd
}

func runInvoke(cmd *cobra.Command, _ []string) error {
	var in io.Reader = cmd.InOrStdin()
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open requests: %w", err)
		}
		defer f.Close()
		in = f
	}
	var reqs []domain.ToolCallRequest
	if err := json.NewDecoder(in).Decode(&reqs); err != nil {
		return fmt.Errorf("decode requests: %w", err)
	}
	for i := range reqs {
		if reqs[i].CallID == "" {
			reqs[i].CallID = "call_" + uuid.NewString()
		}
	}

	pairs, _ := cmd.Flags().GetStringArray("context")
	values, err := parseContext(pairs)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	results := a.invoker.InvokeAll(cmd.Context(), reqs, domain.NewToolContext(values))
	return printJSON(cmd.OutOrStdout(), results)
}

// parseContext turns key=value pairs into tool context values.
func parseContext(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --context %q: want key=value", p)
		}
		values[k] = v
	}
	return values, nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve tools over HTTP and WebSocket until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := gateway.NewServer(&a.cfg.Gateway, a.invoker, gateway.WithLogger(a.logger))
	if err != nil {
		return err
	}

	flag, _ := cmd.Flags().GetString("config")
	if path := config.ResolvePath(flag); fileExists(path) {
		w := config.NewWatcher(path, a.logger)
		if err := w.Start(applyReload(a, srv)); err != nil {
			a.logger.Warn("config reload disabled", "path", path, "error", err)
		} else {
			defer w.Stop()
		}
	}

	stop, release := shutdownSignal()
	defer release()
	return srv.Run(stop)
}

// applyReload returns the callback that applies a reloaded config to a
// serving process. Only the log level and the gateway token change live;
// other sections take effect on restart.
func applyReload(a *app, srv *gateway.Server) func(*domain.Config) {
	return func(cfg *domain.Config) {
		a.level.Set(logging.ParseLevel(cfg.Infra.LogLevel))
		srv.SetAuthToken(cfg.Gateway.AuthToken)
		a.logger.Info("config applied", "logLevel", a.level.Level().String(), "auth", cfg.Gateway.AuthToken != "")
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func newRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Show recorded tool calls",
		Long: `Prints recorded tool calls from the records database, newest first.
With --call-id, prints the latest record for that call.`,
		Args: cobra.NoArgs,
		RunE: runRecords,
	}
	cmd.Flags().IntP("limit", "n", 20, "maximum number of records to print")
	cmd.Flags().String("call-id", "", "print the latest record for this call id")
	return cmd
}

func runRecords(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.store == nil {
		return errors.New("records are disabled: set records.databaseUrl in the config")
	}

	if id, _ := cmd.Flags().GetString("call-id"); id != "" {
		rec, err := a.store.ByCallID(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rec)
	}
	limit, _ := cmd.Flags().GetInt("limit")
	recs, err := a.store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []domain.CallRecord{}
	}
	return printJSON(cmd.OutOrStdout(), recs)
}

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check config, records database, tokenizer and tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fix, _ := cmd.Flags().GetBool("fix")
			path, _ := cmd.Flags().GetString("config")
			code := cli.RunCheck(cli.CheckOptions{ConfigPath: path, Fix: fix}, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code != 0 {
				return exitCodeErr(code)
			}
			return nil
		},
	}
	cmd.Flags().Bool("fix", false, "write default config if missing")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
