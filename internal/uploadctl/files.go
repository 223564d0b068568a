package uploadctl

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	uploaderv1 "github.com/Yulian302/lfusys-services-recordings/api/uploader/v1"
	"github.com/spf13/cobra"
)

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List uploaded recordings",
		Args:  cobra.NoArgs,
		RunE:  runFiles,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <file-id>",
		Short: "Delete a recording",
		Args:  cobra.ExactArgs(1),
		RunE:  runFilesRm,
	})
	return cmd
}

func runFiles(cmd *cobra.Command, _ []string) error {
	client, err := newUploaderClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	resp, err := client.GetFiles(ctx, &uploaderv1.Empty{})
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}
	if len(resp.Files) == 0 {
		fmt.Println("No files found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tCREATED")
	for _, f := range resp.Files {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.Id, f.Name, f.Size, f.CreatedAt.Format(time.DateTime))
	}
	return w.Flush()
}

func runFilesRm(cmd *cobra.Command, args []string) error {
	client, err := newUploaderClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	if _, err := client.DeleteFile(ctx, &uploaderv1.FileID{FileId: args[0]}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	fmt.Printf("File %s deleted\n", args[0])
	return nil
}
