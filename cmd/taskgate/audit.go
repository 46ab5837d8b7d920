package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viant/taskgate/internal/clock"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit trail",
	}
	summary := &cobra.Command{
		Use:   "summary",
		Short: "Print today's audit summary",
		Args:  cobra.NoArgs,
		RunE:  runAuditSummary,
	}
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Verify the hash chain of a day partition",
		Args:  cobra.NoArgs,
		RunE:  runAuditVerify,
	}
	verify.Flags().String("day", "", "day to verify (2006-01-02), defaults to today")
	cmd.AddCommand(summary, verify)
	return cmd
}

func runAuditSummary(cmd *cobra.Command, _ []string) error {
	srv, err := openService(cmd)
	if err != nil {
		return err
	}
	defer closeService(cmd.Context(), srv)

	summary, err := srv.Auditor().DailySummary(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), summary)
}

func runAuditVerify(cmd *cobra.Command, _ []string) error {
	day, _ := cmd.Flags().GetString("day")
	if day == "" {
		day = clock.Today()
	}
	srv, err := openService(cmd)
	if err != nil {
		return err
	}
	defer closeService(cmd.Context(), srv)

	if err := srv.Auditor().Verify(cmd.Context(), day); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "audit %s: hash chain intact\n", day)
	return err
}
