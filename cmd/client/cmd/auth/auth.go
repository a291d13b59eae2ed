package auth

import (
	"github.com/spf13/cobra"
)

// AuthCmd is the parent command for session management.
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the session",
	Long:  `Log in with an access token and log out.`,
}

func init() {
	AuthCmd.AddCommand(LoginCmd)
	AuthCmd.AddCommand(LogoutCmd)
}
