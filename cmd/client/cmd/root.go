package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	authCmd "vgsync/cmd/client/cmd/auth"
	chatCmd "vgsync/cmd/client/cmd/chat"
	orderCmd "vgsync/cmd/client/cmd/order"
	productCmd "vgsync/cmd/client/cmd/product"
	syncCmd "vgsync/cmd/client/cmd/sync"
	"vgsync/cmd/client/cmd/types"
	"vgsync/internal/app/client"
	"vgsync/internal/app/client/config"
	"vgsync/internal/utils/logger"
)

var (
	cfg       *config.Config
	log       *slog.Logger
	app       *client.App
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "vgsync",
	Short: "Offline-first client for the vide-grenier marketplace",
	Long: `vgsync is the offline-first client for the vide-grenier marketplace.

Listings, orders, chats and favorites are cached locally; writes made
while offline are queued and synchronized automatically once the
connection returns.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if app != nil {
		app.Close()
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg = config.MustLoad()
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}

	log = logger.New(cfg.Env)

	var err error
	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	app.Start(cmd.Context())

	cmd.SetContext(context.WithValue(cmd.Context(), types.ClientAppKey, app))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "marketplace server address")

	rootCmd.AddCommand(authCmd.AuthCmd)
	rootCmd.AddCommand(productCmd.ProductsCmd)
	rootCmd.AddCommand(orderCmd.OrdersCmd)
	rootCmd.AddCommand(chatCmd.ChatCmd)
	rootCmd.AddCommand(syncCmd.SyncCmd)
	rootCmd.AddCommand(statusCmd)
}
