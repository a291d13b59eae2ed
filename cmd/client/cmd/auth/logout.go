package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"vgsync/cmd/client/cmd/types"
	"vgsync/internal/app/client"
)

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear cached data",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok {
			return fmt.Errorf("app not initialized")
		}

		if pending := app.Queue().Pending(); pending > 0 {
			fmt.Printf("⚠️  %d queued actions have not been synchronized and will be kept\n", pending)
		}

		if err := app.Logout(cmd.Context()); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		fmt.Println("✅ Logged out")
		return nil
	},
}
