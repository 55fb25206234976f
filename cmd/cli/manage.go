package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hypd/urlshortener/cmd"
)

var (
	listLimit  int
	listOffset int
	topLimit   int
)

// DeactivateCmd switches a short link off. It cannot be reactivated.
var DeactivateCmd = &cobra.Command{
	Use:   "deactivate [short-code]",
	Short: "Deactivate a short URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := cmd.OpenApp()
		if err != nil {
			return err
		}
		defer a.Close()

		link, err := a.Links.DeactivateByCode(c.Context(), args[0])
		if err != nil {
			return fmt.Errorf("short code %q: %w", args[0], err)
		}
		fmt.Fprintf(c.OutOrStdout(), "Deactivated %s (%s)\n", link.ShortCode, link.LongURL)
		return nil
	},
}

// ListCmd pages through short links, newest first.
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List short URLs",
	RunE: func(c *cobra.Command, args []string) error {
		a, err := cmd.OpenApp()
		if err != nil {
			return err
		}
		defer a.Close()

		links, err := a.Links.List(c.Context(), listLimit, listOffset)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tCLICKS\tLIVE\tPRODUCT\tURL")
		for i := range links {
			l := &links[i]
			fmt.Fprintf(w, "%s\t%d\t%t\t%t\t%s\n", l.ShortCode, l.ClickCount, a.Links.Live(l), l.IsProduct, l.LongURL)
		}
		return w.Flush()
	},
}

// TopCmd ranks active links by click count.
var TopCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the most clicked short URLs",
	RunE: func(c *cobra.Command, args []string) error {
		a, err := cmd.OpenApp()
		if err != nil {
			return err
		}
		defer a.Close()

		limit := topLimit
		if limit == 0 {
			limit = a.Config.Analytics.TopDefaultLimit
		}
		links, err := a.Analytics.TopByClicks(c.Context(), limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tCODE\tCLICKS\tURL")
		for i, l := range links {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", i+1, l.ShortCode, l.ClickCount, l.LongURL)
		}
		return w.Flush()
	},
}

func init() {
	ListCmd.Flags().IntVar(&listLimit, "limit", 50, "Number of links to show (1-100)")
	ListCmd.Flags().IntVar(&listOffset, "offset", 0, "Number of links to skip")
	TopCmd.Flags().IntVar(&topLimit, "limit", 0, "Number of links to show (default from config)")

	cmd.RootCmd.AddCommand(DeactivateCmd, ListCmd, TopCmd)
}
