// Command defencectl runs document analysis and knowledge lookups from the
// shell, without the HTTP API or a database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/defence-assistant/internal/observability/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	logLevel string
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.NewJSONLoggerTo(cmd.ErrOrStderr(), "defencectl", o.logLevel)
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "defencectl",
		Short:         "Analyse claim documents and search the defence knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(
		newAnalyzeCommand(opts),
		newKnowledgeCommand(opts),
	)
	return root
}
