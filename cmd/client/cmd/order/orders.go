package order

import (
	"fmt"

	"github.com/spf13/cobra"

	"vgsync/cmd/client/cmd/types"
	"vgsync/internal/app/client"
)

// OrdersCmd lists the user's orders.
var OrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List your orders",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok {
			return fmt.Errorf("app not initialized")
		}

		res := app.LoadMyOrders(cmd.Context())
		if res.Source == client.SourceCache {
			fmt.Println("(offline: showing cached orders)")
		}
		if len(res.Data) == 0 {
			fmt.Println("No orders yet")
			return nil
		}
		for _, o := range res.Data {
			fmt.Printf("%-12s %-10s %8d XAF  %s\n", o.ID, o.Status, o.Amount, o.CreatedAt.Format("2006-01-02"))
		}
		return nil
	},
}

var trackCmd = &cobra.Command{
	Use:   "track <order-id>",
	Short: "Subscribe to live updates for an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok {
			return fmt.Errorf("app not initialized")
		}

		app.Channel().JoinOrderUpdates(cmd.Context(), args[0])
		fmt.Printf("✅ Subscribed to updates for %s\n", args[0])
		if !app.Channel().Connected() {
			fmt.Println("   (offline: subscription will activate on reconnect)")
		}
		return nil
	},
}

func init() {
	OrdersCmd.AddCommand(trackCmd)
}
