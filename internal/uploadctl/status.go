package uploadctl

import (
	"context"
	"fmt"
	"time"

	uploaderv1 "github.com/Yulian302/lfusys-services-recordings/api/uploader/v1"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <upload-id>",
		Short: "Show upload progress",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := newUploaderClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	st, err := client.GetUploadStatus(ctx, &uploaderv1.UploadID{UploadId: args[0]})
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	fmt.Printf("Status:   %s\n", st.Status)
	fmt.Printf("Progress: %d%% (%d/%d chunks)\n", st.Progress, st.ReceivedChunks, st.TotalChunks)
	if len(st.MissingChunks) > 0 {
		fmt.Printf("Missing:  %v\n", st.MissingChunks)
	}
	return nil
}

func newAbortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abort <upload-id>",
		Short: "Abort an upload and discard its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newUploaderClient()
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if _, err := client.AbortUpload(ctx, &uploaderv1.UploadID{UploadId: args[0]}); err != nil {
				return fmt.Errorf("failed to abort upload: %w", err)
			}
			fmt.Printf("Upload %s aborted\n", args[0])
			return nil
		},
	}
}
