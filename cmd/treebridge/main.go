package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petervdpas/treebridge/internal/config"
	"github.com/petervdpas/treebridge/internal/logx"
)

// appVersion is set at build time via -ldflags "-X main.appVersion=x.y.z"
var appVersion = "dev"

type options struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "treebridge",
		Short:         "Lazy file tree served to an editor shell",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "treebridge.json", "config file (created with defaults if missing)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "override log.format")

	root.AddCommand(newServeCmd(opts), newBrowseCmd(opts))
	return root
}

// load reads the config, applies the logging flags and sets up logging.
func (o *options) load() (config.Config, error) {
	cfg, created, err := config.Ensure(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if err := logx.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return config.Config{}, err
	}
	if created {
		fmt.Fprintf(os.Stderr, "wrote default config to %s\n", o.configPath)
	}
	return cfg, nil
}
