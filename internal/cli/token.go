package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iieadb/eventboard/internal/adapters/http/api"
	"github.com/iieadb/eventboard/internal/domain/session"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	UserID   int64
	Username string
}

// TokenResult is the JSON output of the token command.
type TokenResult struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().Int64Var(&opts.UserID, "user-id", 0, "user id carried by the token")
	cmd.Flags().StringVar(&opts.Username, "username", "", "username carried by the token")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func runToken(cmd *cobra.Command, rootOpts *RootOptions, opts *TokenOptions) error {
	cfg := rootOpts.Config
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("jwt_secret is not configured (set EVENTBOARD_JWT_SECRET)")
	}
	auth, err := api.NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	token, err := auth.Issue(session.Identity{ID: opts.UserID, Username: opts.Username})
	if err != nil {
		return err
	}

	if rootOpts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), TokenResult{
			Token:     token,
			TokenType: "Bearer",
			ExpiresIn: int64(cfg.TokenTTL.Seconds()),
		})
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
