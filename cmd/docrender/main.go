package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/docrender/internal/config"
	"github.com/vango-dev/docrender/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

// globals are the flags shared by every command.
type globals struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "docrender",
		Short: "Render template pages with deferred module and component fragments",
		Long: `docrender renders page templates that reference positions, modules and a
main component. Templates leave placeholders behind; every fragment is produced
after the page is parsed and substituted in one pass.

Configuration is read from docrender.yaml (or .json/.toml) in the working
directory, or from --config. Every key can be overridden with a DOCRENDER_*
environment variable, e.g. DOCRENDER_SERVER_ADDR=:9090.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (default: ./docrender.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override logging.level")

	rootCmd.AddCommand(
		serveCmd(g),
		renderCmd(g),
		modulesCmd(g),
		versionCmd(),
	)
	return rootCmd
}

// load reads the configuration and builds its logger, writing logs to w.
func (g *globals) load(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	return cfg, cfg.NewLogger(w), nil
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
