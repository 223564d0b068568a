package uploadctl

import (
	"context"
	"fmt"
	"strings"

	uploaderv1 "github.com/Yulian302/lfusys-services-recordings/api/uploader/v1"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// maxSendMsgSize bounds a single UploadChunk or UploadAudio request.
const maxSendMsgSize = 256 * 1024 * 1024

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:           "uploadctl",
	Short:         "Recordings upload client",
	Long:          "Command line client for the recordings upload service: chunked uploads, status, abort and file listing",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("server", "s", "localhost:50051", "Server address in format host:port")
	rootCmd.PersistentFlags().String("token", "", "Bearer token (env UPLOADCTL_TOKEN)")

	v.SetEnvPrefix("UPLOADCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newAbortCmd())
	rootCmd.AddCommand(newFilesCmd())
	rootCmd.AddCommand(newTokenCmd())
}

type bearerToken string

func (t bearerToken) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + string(t)}, nil
}

func (bearerToken) RequireTransportSecurity() bool { return false }

type uploaderConn struct {
	uploaderv1.UploaderClient
	conn *grpc.ClientConn
}

func (c *uploaderConn) Close() error {
	return c.conn.Close()
}

func newUploaderClient() (*uploaderConn, error) {
	token := v.GetString("token")
	if token == "" {
		return nil, fmt.Errorf("no token: pass --token or set UPLOADCTL_TOKEN")
	}

	conn, err := grpc.NewClient(v.GetString("server"),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(bearerToken(token)),
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(maxSendMsgSize)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &uploaderConn{UploaderClient: uploaderv1.NewUploaderClient(conn), conn: conn}, nil
}
