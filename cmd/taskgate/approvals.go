package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viant/taskgate/service/approval"
)

func newApprovalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approvals",
		Short: "Inspect and decide approval requests",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List pending approval requests",
		Args:  cobra.NoArgs,
		RunE:  runApprovalsList,
	}
	list.Flags().String("category", "", "only requests of this category")
	list.Flags().String("type", "", "only requests of this approval type")

	respond := &cobra.Command{
		Use:   "respond <taskID>",
		Short: "Approve or reject the pending request of a task",
		Args:  cobra.ExactArgs(1),
		RunE:  runApprovalsRespond,
	}
	respond.Flags().Bool("approve", false, "approve the request")
	respond.Flags().Bool("reject", false, "reject the request")
	respond.Flags().String("notes", "", "decision notes")
	respond.MarkFlagsMutuallyExclusive("approve", "reject")
	respond.MarkFlagsOneRequired("approve", "reject")

	cmd.AddCommand(list, respond)
	return cmd
}

func runApprovalsList(cmd *cobra.Command, _ []string) error {
	srv, err := openService(cmd)
	if err != nil {
		return err
	}
	defer closeService(cmd.Context(), srv)

	var filters []approval.PendingFilter
	if category, _ := cmd.Flags().GetString("category"); category != "" {
		filters = append(filters, approval.WithCategory(category))
	}
	if approvalType, _ := cmd.Flags().GetString("type"); approvalType != "" {
		filters = append(filters, approval.WithApprovalType(approvalType))
	}
	pending, err := approval.ListPending(cmd.Context(), srv.Approvals(), filters...)
	if err != nil {
		return err
	}
	if pending == nil {
		pending = []*approval.Request{}
	}
	return printJSON(cmd.OutOrStdout(), pending)
}

func runApprovalsRespond(cmd *cobra.Command, args []string) error {
	approve, _ := cmd.Flags().GetBool("approve")
	reject, _ := cmd.Flags().GetBool("reject")
	if approve == reject {
		return errors.New("exactly one of --approve or --reject is required")
	}
	notes, _ := cmd.Flags().GetString("notes")

	srv, err := openService(cmd)
	if err != nil {
		return err
	}
	defer closeService(cmd.Context(), srv)

	response, err := srv.Approvals().Respond(cmd.Context(), args[0], approve, notes)
	if err != nil {
		return fmt.Errorf("respond %s: %w", args[0], err)
	}
	return printJSON(cmd.OutOrStdout(), response)
}
