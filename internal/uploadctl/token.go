package uploadctl

import (
	"fmt"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/auth"
	"github.com/spf13/cobra"
)

// newTokenCmd mints a token with the server's shared secret. Dev only.
func newTokenCmd() *cobra.Command {
	var (
		secret string
		issuer string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <owner-id>",
		Short: "Issue a development access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = v.GetString("jwt_secret")
			}
			if secret == "" {
				return fmt.Errorf("no secret: pass --secret or set UPLOADCTL_JWT_SECRET")
			}
			token, err := auth.NewTokenManager(secret, issuer, ttl).Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 signing secret")
	cmd.Flags().StringVar(&issuer, "issuer", "lfusys", "Token issuer")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
