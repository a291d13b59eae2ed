package product

import (
	"fmt"

	"github.com/spf13/cobra"

	"vgsync/cmd/client/cmd/types"
	"vgsync/internal/app/client"
	"vgsync/internal/domain/catalog"
)

var (
	title       string
	description string
	listCat     string
	price       int64
)

var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a listing",
	Long: `Creates a listing. Offline, the listing appears immediately with a
placeholder id and is published on the next synchronization.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok {
			return fmt.Errorf("app not initialized")
		}
		if title == "" || price <= 0 {
			return fmt.Errorf("--title and a positive --price are required")
		}

		p, err := app.CreateProduct(cmd.Context(), catalog.Product{
			Title:       title,
			Description: description,
			Category:    listCat,
			Price:       price,
		})
		if err != nil {
			return fmt.Errorf("create listing: %w", err)
		}

		fmt.Printf("✅ Listing created: %s\n", p.ID)
		if !app.Monitor().Online() {
			fmt.Println("   (offline: it will be published on the next sync)")
		}
		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVar(&title, "title", "", "listing title")
	CreateCmd.Flags().StringVar(&description, "description", "", "listing description")
	CreateCmd.Flags().StringVar(&listCat, "category", "", "listing category")
	CreateCmd.Flags().Int64Var(&price, "price", 0, "price in XAF")
}
