package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hypd/urlshortener/cmd"
	"github.com/hypd/urlshortener/internal/app"
	"github.com/hypd/urlshortener/internal/models"
)

// ProductCmd groups the product metadata commands.
var ProductCmd = &cobra.Command{
	Use:   "product",
	Short: "Inspect and refresh product metadata of a short URL",
}

func productSubcommand(use, short string, action func(ctx context.Context, a *app.App, code string) (*models.ProductMetadata, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [short-code]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			a, err := cmd.OpenApp()
			if err != nil {
				return err
			}
			defer a.Close()

			meta, err := action(c.Context(), a, args[0])
			if err != nil {
				return fmt.Errorf("short code %q: %w", args[0], err)
			}
			printProduct(c.OutOrStdout(), meta)
			return nil
		},
	}
}

var productDeleteCmd = &cobra.Command{
	Use:   "delete [short-code]",
	Short: "Delete stored product metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := cmd.OpenApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Products.Delete(c.Context(), args[0]); err != nil {
			return fmt.Errorf("short code %q: %w", args[0], err)
		}
		fmt.Fprintf(c.OutOrStdout(), "Deleted product metadata of %s\n", args[0])
		return nil
	},
}

func printProduct(out io.Writer, meta *models.ProductMetadata) {
	printOptional(out, "Name", meta.ProductName)
	printOptional(out, "Price", meta.Price)
	printOptional(out, "Brand", meta.BrandName)
	printOptional(out, "Image", meta.FeaturedImageURL)
	fmt.Fprintf(out, "Scraped: %s\n", meta.ScrapedAt.Format(time.RFC3339))
}

func init() {
	ProductCmd.AddCommand(
		productSubcommand("get", "Show stored product metadata", func(ctx context.Context, a *app.App, code string) (*models.ProductMetadata, error) {
			return a.Products.Get(ctx, code)
		}),
		productSubcommand("scrape", "Show product metadata, scraping it when stale", func(ctx context.Context, a *app.App, code string) (*models.ProductMetadata, error) {
			return a.Products.GetOrScrape(ctx, code)
		}),
		productSubcommand("refresh", "Scrape product metadata now", func(ctx context.Context, a *app.App, code string) (*models.ProductMetadata, error) {
			return a.Products.ForceRefresh(ctx, code)
		}),
		productDeleteCmd,
	)
	cmd.RootCmd.AddCommand(ProductCmd)
}
