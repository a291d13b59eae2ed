package product

import (
	"fmt"

	"github.com/spf13/cobra"

	"vgsync/cmd/client/cmd/types"
	"vgsync/internal/app/client"
)

var FavoriteCmd = &cobra.Command{
	Use:   "favorite <product-id>",
	Short: "Toggle a listing as favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok {
			return fmt.Errorf("app not initialized")
		}

		added, err := app.ToggleFavorite(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("toggle favorite: %w", err)
		}
		if added {
			fmt.Printf("✅ %s added to favorites\n", args[0])
		} else {
			fmt.Printf("✅ %s removed from favorites\n", args[0])
		}
		return nil
	},
}

var FavoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "List favorite listings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok {
			return fmt.Errorf("app not initialized")
		}

		res := app.LoadFavorites(cmd.Context())
		if res.Source == client.SourceCache {
			fmt.Println("(offline: showing cached favorites)")
		}
		if len(res.Data) == 0 {
			fmt.Println("No favorites yet")
			return nil
		}
		for _, p := range res.Data {
			fmt.Printf("%-12s %-30s %8d XAF\n", p.ID, p.Title, p.Price)
		}
		return nil
	},
}
