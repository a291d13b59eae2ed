package product

import (
	"fmt"

	"github.com/spf13/cobra"

	"vgsync/cmd/client/cmd/types"
	"vgsync/internal/app/client"
	"vgsync/internal/domain/catalog"
)

var (
	category string
	seller   string
	search   string
	minPrice int64
	maxPrice int64
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List marketplace listings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok {
			return fmt.Errorf("app not initialized")
		}

		filter := catalog.Filter{
			Category: category,
			SellerID: seller,
			Search:   search,
			MinPrice: minPrice,
			MaxPrice: maxPrice,
		}

		res := app.LoadProducts(cmd.Context(), filter)
		if res.Source == client.SourceCache {
			fmt.Println("(offline: showing cached listings)")
		}

		if len(res.Data) == 0 {
			fmt.Println("No listings found")
			return nil
		}
		for _, p := range res.Data {
			marker := ""
			if p.IsTemp {
				marker = " (pending sync)"
			}
			fmt.Printf("%-12s %-30s %8d XAF  %s%s\n", p.ID, p.Title, p.Price, p.Category, marker)
		}
		return nil
	},
}

func init() {
	ListCmd.Flags().StringVar(&category, "category", "", "filter by category")
	ListCmd.Flags().StringVar(&seller, "seller", "", "filter by seller id")
	ListCmd.Flags().StringVar(&search, "search", "", "substring search in title and description")
	ListCmd.Flags().Int64Var(&minPrice, "min-price", 0, "minimum price in XAF")
	ListCmd.Flags().Int64Var(&maxPrice, "max-price", 0, "maximum price in XAF")
}
