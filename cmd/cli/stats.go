package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hypd/urlshortener/cmd"
)

// StatsCmd prints the click statistics of a short code.
var StatsCmd = &cobra.Command{
	Use:   "stats [short-code]",
	Short: "Get statistics for a short URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := cmd.OpenApp()
		if err != nil {
			return err
		}
		defer a.Close()

		link, err := a.Links.Get(c.Context(), args[0])
		if err != nil {
			return fmt.Errorf("short code %q: %w", args[0], err)
		}
		summary, err := a.Analytics.GetByURLID(c.Context(), link.ID)
		if err != nil {
			return err
		}

		out := c.OutOrStdout()
		fmt.Fprintf(out, "Statistics for short code: %s\n", link.ShortCode)
		fmt.Fprintf(out, "Long URL: %s\n", link.LongURL)
		fmt.Fprintf(out, "Active: %t\n", a.Links.Live(link))
		fmt.Fprintf(out, "Total clicks: %d\n", summary.TotalClicks)
		fmt.Fprintf(out, "First click: %s\n", formatTime(summary.FirstClickAt))
		fmt.Fprintf(out, "Last click: %s\n", formatTime(summary.LastClickAt))
		fmt.Fprintf(out, "Created: %s\n", link.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(StatsCmd)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func printOptional(out io.Writer, label string, v *string) {
	if v == nil {
		fmt.Fprintf(out, "%s: -\n", label)
		return
	}
	fmt.Fprintf(out, "%s: %s\n", label, *v)
}
