package main

import (
	"context"
	"fmt"
	"io"

	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/spf13/cobra"
)

func issueCmd() *cobra.Command {
	var req biz.IssueRequest
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a single-use download code for a stored file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUseCase(cmd.Context(), func(ctx context.Context, uc *biz.DownloadUseCase, caller identity.Caller) error {
				return runIssue(ctx, cmd.OutOrStdout(), uc, caller, req)
			})
		},
	}
	cmd.Flags().StringVar(&req.FileKey, "file-key", "", "Object key of the file")
	cmd.Flags().StringVar(&req.RecipientEmail, "recipient", "", "Only this employee may redeem the code")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Free-form notes stored with the code")
	cmd.Flags().StringVar(&actAs, "as", "", "Administrator email the action is recorded under")
	_ = cmd.MarkFlagRequired("file-key")
	return cmd
}

func runIssue(ctx context.Context, out io.Writer, uc *biz.DownloadUseCase, caller identity.Caller, req biz.IssueRequest) error {
	res, err := uc.Issue(ctx, caller, req)
	if err != nil {
		return err
	}

	recipient := res.Recipient
	if recipient == "" {
		recipient = "anyone"
	}
	fmt.Fprintf(out, "code:      %s\n", res.Code)
	fmt.Fprintf(out, "file:      %s (%d bytes)\n", res.FileName, res.FileSize)
	fmt.Fprintf(out, "recipient: %s\n", recipient)
	return nil
}
