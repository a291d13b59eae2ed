package product

import (
	"github.com/spf13/cobra"
)

// ProductsCmd is the parent command for listing operations.
var ProductsCmd = &cobra.Command{
	Use:   "products",
	Short: "Browse and manage listings",
	Long:  `List marketplace listings, create new ones and manage favorites.`,
}

func init() {
	ProductsCmd.AddCommand(ListCmd)
	ProductsCmd.AddCommand(CreateCmd)
	ProductsCmd.AddCommand(FavoriteCmd)
	ProductsCmd.AddCommand(FavoritesCmd)
}
