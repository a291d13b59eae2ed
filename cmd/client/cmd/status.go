package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vgsync/cmd/client/cmd/types"
	"vgsync/internal/app/client"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity, sync and realtime status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok {
			return fmt.Errorf("app not initialized")
		}

		fmt.Println("=== Status ===")
		if app.Monitor().Online() {
			fmt.Println("Network:   online")
		} else {
			fmt.Println("Network:   offline")
		}
		fmt.Printf("Realtime:  %s\n", app.Channel().State())
		fmt.Printf("Pending:   %d queued actions\n", app.Queue().Pending())
		if last := app.Queue().LastSync(); !last.IsZero() {
			fmt.Printf("Last sync: %s\n", last.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Println("Last sync: never")
		}
		if rooms := app.Channel().Rooms(); len(rooms) > 0 {
			fmt.Printf("Rooms:     %v\n", rooms)
		}
		return nil
	},
}
