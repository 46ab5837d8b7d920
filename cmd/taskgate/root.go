package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/viant/taskgate"
	"github.com/viant/taskgate/internal/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "taskgate",
		Short:         "Policy-gated task orchestration",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringP("config", "c", "", "configuration file (any afs URL)")
	cmd.AddCommand(newServeCmd(), newApprovalsCmd(), newAuditCmd())
	return cmd
}

func loadConfig(cmd *cobra.Command) (*taskgate.Config, error) {
	location, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return taskgate.LoadConfig(cmd.Context(), location)
}

// openService builds the runtime without starting its loops. Operator
// commands use it to reach the configured stores.
func openService(cmd *cobra.Command) (*taskgate.Service, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Backend == taskgate.BackendMemory {
		cmd.PrintErrln("warning: memory storage backend holds no state between runs")
	}
	cfg.Notifier.Providers = nil
	l, _ := logger.NewWithWriter(cmd.ErrOrStderr(), logger.Config{Level: "warn", Format: "text"})
	return taskgate.New(cmd.Context(), cfg, taskgate.WithLogger(l))
}

func closeService(ctx context.Context, srv *taskgate.Service) {
	_ = srv.Shutdown(ctx)
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
