package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/spf13/cobra"
)

func filesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List stored files, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUseCase(cmd.Context(), func(ctx context.Context, uc *biz.DownloadUseCase, caller identity.Caller) error {
				return runFiles(ctx, cmd.OutOrStdout(), uc, caller)
			})
		},
	}
	cmd.Flags().StringVar(&actAs, "as", "", "Administrator email to act as")
	return cmd
}

func runFiles(ctx context.Context, out io.Writer, uc *biz.DownloadUseCase, caller identity.Caller) error {
	files, err := uc.ListFiles(ctx, caller)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSIZE\tUPLOADED")
	for _, f := range files {
		uploaded := "-"
		if !f.UploadedAt.IsZero() {
			uploaded = f.UploadedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Key, f.SizeHuman, uploaded)
	}
	return w.Flush()
}
