package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:           "reportgen",
		Short:         "Build 18-page launcher/receiver inspection reports from photos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML config file (default: ./reportgen.yaml when present)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override logging.level: debug|info|warn|error")

	root.AddCommand(generateCmd(g), serveCmd(g), slotsCmd(g), suggestCmd(g))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
