package main

import (
	"fmt"
	"os"

	"github.com/danmuck/rawlog/internal/catalog"
	"github.com/danmuck/rawlog/internal/config"
	"github.com/danmuck/rawlog/internal/logging"
	"github.com/danmuck/rawlog/internal/observability"
	"github.com/danmuck/rawlog/internal/protocol"
	"github.com/danmuck/rawlog/internal/rawlog"
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	logLevel   string

	cfg      config.Config
	registry *protocol.Registry
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rawlogctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "rawlogctl",
		Short:         "Inspect, convert and record rawlog files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Close()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "TOML config file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override: trace|debug|info|warn|error|disabled")

	root.AddCommand(
		newInfoCmd(a),
		newListCmd(a),
		newTypesCmd(a),
		newFilterCmd(a),
		newConvertCmd(a),
		newExportGPSCmd(a),
		newSendCmd(a),
		newRecordCmd(a),
		newConfigCmd(),
	)
	return root
}

// setup loads configuration, installs the logger and builds the registry.
func (a *app) setup() error {
	a.cfg = config.Default()
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	logCfg := a.cfg.LoggingConfig()
	logging.ApplyEnv(&logCfg)
	if a.logLevel != "" {
		lvl, ok := logging.ParseLevel(a.logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q", a.logLevel)
		}
		logCfg.Level = lvl
	}
	observability.InitLogger("rawlogctl", logCfg)

	registry, err := catalog.New()
	if err != nil {
		return fmt.Errorf("build type registry: %w", err)
	}
	a.registry = registry
	return nil
}

func (a *app) readerOptions() rawlog.Options {
	return a.cfg.ReaderOptions(a.registry)
}
