package uploadctl

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	uploaderv1 "github.com/Yulian302/lfusys-services-recordings/api/uploader/v1"
	"github.com/gabriel-vasile/mimetype"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type uploadOptions struct {
	chunkSize   int64
	parallel    int
	mimeType    string
	keepOnError bool
}

func newUploadCmd() *cobra.Command {
	opts := &uploadOptions{}
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a recording in chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().Int64Var(&opts.chunkSize, "chunk-size", 0, "Chunk size in bytes (0 = server default)")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 4, "Chunks sent concurrently")
	cmd.Flags().StringVar(&opts.mimeType, "mime-type", "", "MIME type (detected from content when empty)")
	cmd.Flags().BoolVar(&opts.keepOnError, "keep-on-error", false, "Leave the session open when a chunk fails")

	return cmd
}

func runUpload(ctx context.Context, path string, opts *uploadOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	mimeType := opts.mimeType
	if mimeType == "" {
		detected, err := mimetype.DetectReader(f)
		if err != nil {
			return fmt.Errorf("detect mime type: %w", err)
		}
		mimeType, _, _ = strings.Cut(detected.String(), ";")
	}

	client, err := newUploaderClient()
	if err != nil {
		return err
	}
	defer client.Close()

	started, err := client.StartUpload(ctx, &uploaderv1.StartUploadRequest{
		Filename:  filepath.Base(path),
		FileSize:  info.Size(),
		MimeType:  mimeType,
		ChunkSize: opts.chunkSize,
	})
	if err != nil {
		return fmt.Errorf("failed to start upload: %w", err)
	}
	fmt.Printf("Upload %s started: %d chunks of %d bytes\n", started.UploadId, started.TotalChunks, started.ChunkSize)

	bar := progressbar.NewOptions64(
		info.Size(),
		progressbar.OptionSetDescription(filepath.Base(path)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.parallel, 1))
	for n := uint32(1); n <= started.TotalChunks; n++ {
		g.Go(func() error {
			offset := int64(n-1) * started.ChunkSize
			size := min(started.ChunkSize, info.Size()-offset)
			buf := make([]byte, size)
			if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
				return fmt.Errorf("read chunk %d: %w", n, err)
			}

			if _, err := client.UploadChunk(gctx, &uploaderv1.UploadChunkRequest{
				UploadId:    started.UploadId,
				ChunkNumber: n,
				Data:        buf,
			}); err != nil {
				return fmt.Errorf("chunk %d: %w", n, err)
			}
			return bar.Add64(size)
		})
	}
	if err := g.Wait(); err != nil {
		_ = bar.Exit()
		if !opts.keepOnError {
			_, _ = client.AbortUpload(context.WithoutCancel(ctx), &uploaderv1.UploadID{UploadId: started.UploadId})
		}
		return err
	}
	_ = bar.Finish()

	done, err := client.CompleteUpload(ctx, &uploaderv1.UploadID{UploadId: started.UploadId})
	if err != nil {
		return fmt.Errorf("failed to complete upload %s: %w", started.UploadId, err)
	}
	fmt.Printf("\n%s\nfile id: %s\nkey:     %s\nsize:    %d bytes\n", done.Message, done.FileId, done.Key, done.FileSize)
	return nil
}
