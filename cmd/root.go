package cmd

import (
	"context"
	"fmt"

	"github.com/aymshop/storefront/internal/app"
	"github.com/aymshop/storefront/internal/config"
	"github.com/aymshop/storefront/internal/logger"
	"github.com/aymshop/storefront/internal/repo/airtable"
	"github.com/aymshop/storefront/internal/server"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "AYM storefront catalog proxy and session API",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run:           runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog proxy and session API",
	Run:   runServe,
}

var fetchCatalogCmd = &cobra.Command{
	Use:   "fetch-catalog",
	Short: "Fetch and normalize the catalog once, printing it as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := logger.Setup(cfg.Log.Level, cfg.Log.Dev); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Catalog.FetchTimeout)
		defer cancel()

		products, err := airtable.NewFetcher(airtable.NewClient(cfg)).FetchCatalog(ctx)
		if err != nil {
			return fmt.Errorf("fetch catalog: %w", err)
		}
		out, err := json.MarshalIndent(map[string]any{
			"success":  true,
			"count":    len(products),
			"products": products,
		}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	},
}

func runServe(cmd *cobra.Command, args []string) {
	app.Invoke(
		server.StartServer,
	).Run()
}

func init() {
	rootCmd.AddCommand(serveCmd, fetchCatalogCmd)
}

func Execute() {
	defer logger.Sync()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.MustNamed("cmd").Fatalw("command failed", "error", err)
	}
}
