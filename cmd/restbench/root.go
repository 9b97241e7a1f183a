package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/restbench/internal/app"
	"github.com/unkn0wn-root/restbench/internal/config"
	"github.com/unkn0wn-root/restbench/internal/errdef"
	"github.com/unkn0wn-root/restbench/internal/httpclient"
	"github.com/unkn0wn-root/restbench/internal/store"
	"github.com/unkn0wn-root/restbench/internal/telemetry"
)

const envWorkspace = "RESTBENCH_WORKSPACE"

type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	getenv func(string) string

	workspace string
	configDir string
	logLevel  string
	logFormat string
	noColor   bool
	telemetry telemetry.Config

	logger *slog.Logger
	store  store.Store
	instr  telemetry.Instrumenter
	svc    *app.Service
	styles styles
	handle config.SettingsHandle
}

func newCLI(in io.Reader, out, errOut io.Writer, getenv func(string) string) *cli {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	return &cli{
		in:        in,
		out:       out,
		errOut:    errOut,
		getenv:    getenv,
		telemetry: telemetry.ConfigFromEnv(getenv),
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "restbench",
		Short: "Build, send and share HTTP requests from the terminal",
		Long: `restbench keeps collections of HTTP requests in a local workspace.
Requests can be imported from Postman, OpenAPI or curl, executed against the
active environment, exported as OpenAPI and turned into code snippets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			c.styles = newStyles(c.out, c.noColor)
		},
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.workspace, "workspace", c.getenv(envWorkspace),
		"Workspace location: a .db/.sqlite file, a directory of JSON files, or \"memory\"")
	flags.StringVar(&c.configDir, "config-dir", "", "Directory holding settings.toml (defaults to the user config dir)")
	flags.StringVar(&c.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	flags.StringVar(&c.logFormat, "log-format", "text", "Log format: text or json")
	flags.BoolVar(&c.noColor, "no-color", false, "Disable colored output")
	flags.StringVar(&c.telemetry.Endpoint, "trace-otel-endpoint", c.telemetry.Endpoint, "OTLP collector endpoint for request spans")
	flags.BoolVar(&c.telemetry.Insecure, "trace-otel-insecure", c.telemetry.Insecure, "Disable TLS for the OTLP exporter")
	flags.StringVar(&c.telemetry.ServiceName, "trace-otel-service", c.telemetry.ServiceName, "service.name reported with spans")

	root.AddCommand(
		c.runCmd(),
		c.importCmd(),
		c.exportCmd(),
		c.snippetCmd(),
		c.listCmd(),
		c.envCmd(),
		c.historyCmd(),
		c.settingsCmd(),
		c.versionCmd(),
	)
	return root
}

// service opens the workspace on first use so commands like version never
// touch the disk.
func (c *cli) service(ctx context.Context) (*app.Service, error) {
	if c.svc != nil {
		return c.svc, nil
	}
	logger, err := newLogger(c.errOut, c.logLevel, c.logFormat)
	if err != nil {
		return nil, err
	}
	c.logger = logger

	dir := c.configDir
	if dir == "" {
		dir = config.Dir()
	}
	loc := c.workspace
	if strings.TrimSpace(loc) == "" {
		loc = filepath.Join(dir, "workspace.db")
	}
	st, err := store.Open(ctx, loc)
	if err != nil {
		return nil, err
	}
	c.store = st
	ws := store.NewWorkspace(st)

	settings, handle, err := config.LoadSettings(dir)
	if err != nil {
		return nil, err
	}
	c.handle = handle
	// a settings file on disk wins over what the workspace last saw
	if _, statErr := os.Stat(handle.Path); statErr == nil {
		if err := ws.SetSettings(ctx, settings); err != nil {
			return nil, err
		}
	}

	client := httpclient.NewClient(nil)
	client.SetLogger(logger)
	c.telemetry.Version = version
	instr, err := telemetry.New(c.telemetry)
	if err != nil {
		if c.telemetry.Enabled() {
			logger.Warn("telemetry init error", "error", err)
		}
	} else {
		c.instr = instr
		client.SetTelemetry(instr)
	}

	c.svc = app.New(ws, app.WithLogger(logger), app.WithClient(client))
	logger.Debug("workspace opened", "location", loc)
	return c.svc, nil
}

func (c *cli) close() {
	if c.instr != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.instr.Shutdown(ctx); err != nil && c.logger != nil {
			c.logger.Warn("telemetry shutdown", "error", err)
		}
		cancel()
		c.instr = nil
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil && c.logger != nil {
			c.logger.Warn("close workspace", "error", err)
		}
		c.store = nil
	}
	c.svc = nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, errdef.New(errdef.CodeConfig, "invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, errdef.New(errdef.CodeConfig, "invalid log format %q", format)
	}
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "restbench %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
