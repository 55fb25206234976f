package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hypd/urlshortener/cmd"
	"github.com/hypd/urlshortener/internal/services"
)

var (
	longURLFlag   string
	expiresInFlag time.Duration
)

// CreateCmd shortens a URL from the command line.
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates a short URL from a long URL.",
	Long: `Shortens the given URL and prints the generated code. Product URLs are
classified and their metadata is scraped once.

Example:
  urlshortener create --url="https://www.hypd.store/hypd_store/product/abc123?title=Shoe"`,
	RunE: func(c *cobra.Command, args []string) error {
		var expiresAt *time.Time
		if expiresInFlag > 0 {
			t := time.Now().UTC().Add(expiresInFlag)
			expiresAt = &t
		}

		a, err := cmd.OpenApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Shortener.Create(c.Context(), services.CreateRequest{URL: longURLFlag, ExpiresAt: expiresAt})
		if err != nil {
			return fmt.Errorf("failed to create short link: %w", err)
		}

		out := c.OutOrStdout()
		fmt.Fprintln(out, "Short URL created:")
		fmt.Fprintf(out, "Code: %s\n", res.Link.ShortCode)
		fmt.Fprintf(out, "Short URL: %s/%s\n", a.Config.Server.BaseURL, res.Link.ShortCode)
		if res.Link.ExpiresAt != nil {
			fmt.Fprintf(out, "Expires: %s\n", res.Link.ExpiresAt.Format(time.RFC3339))
		}
		if res.Classification.IsProduct {
			fmt.Fprintf(out, "Product: %s\n", res.Classification.ProviderID)
			if res.Product != nil {
				printProduct(out, res.Product)
			} else {
				fmt.Fprintln(out, "Metadata: not available yet")
			}
		}
		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVar(&longURLFlag, "url", "", "The long URL to shorten")
	CreateCmd.Flags().DurationVar(&expiresInFlag, "expires-in", 0, "Optional lifetime of the link, e.g. 72h")
	_ = CreateCmd.MarkFlagRequired("url")

	cmd.RootCmd.AddCommand(CreateCmd)
}
