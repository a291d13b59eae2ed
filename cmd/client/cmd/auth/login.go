package auth

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vgsync/cmd/client/cmd/types"
	"vgsync/internal/app/client"
)

var tokenFlag string

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with an access token",
	Long: `Stores the access token issued by the marketplace auth service.

The token is persisted locally and used for API requests and the
realtime connection.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok {
			return fmt.Errorf("app not initialized")
		}

		token := tokenFlag
		if token == "" {
			fmt.Print("Access token: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			if err != nil {
				return fmt.Errorf("read token: %w", err)
			}
			fmt.Println()
			token = strings.TrimSpace(string(raw))
		}
		if token == "" {
			return fmt.Errorf("empty token")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := app.SetToken(ctx, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}

		// Validate the token with a profile fetch when the server is
		// reachable; offline, accept it and reconcile later.
		res := app.LoadProfile(ctx)
		if res.Data != nil {
			fmt.Printf("✅ Logged in as %s\n", res.Data.Name)
		} else {
			fmt.Println("✅ Token stored (validation deferred until the server is reachable)")
		}
		return nil
	},
}

func init() {
	LoginCmd.Flags().StringVarP(&tokenFlag, "token", "t", "", "access token (prompted if omitted)")
}
