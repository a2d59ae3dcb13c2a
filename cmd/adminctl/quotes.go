package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"drravalement/site/internal/authz"
	"drravalement/site/internal/gate"
)

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Review quote requests",
}

var quotesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quote requests",
	RunE:  gated(gate.RequirePermission(authz.QuotesRead), runQuotesList),
}

var quotesStatusCmd = &cobra.Command{
	Use:   "status <id> <contacted|accepted|rejected>",
	Short: "Move a quote request forward",
	Args:  cobra.ExactArgs(2),
	RunE:  gated(gate.RequirePermission(authz.QuotesWrite), runQuotesStatus),
}

func init() {
	quotesListCmd.Flags().String("status", "", "filter by status (pending, contacted, accepted, rejected)")

	quotesCmd.AddCommand(quotesListCmd, quotesStatusCmd)
	rootCmd.AddCommand(quotesCmd)
}

func runQuotesList(cmd *cobra.Command, _ []string, a *app) error {
	status, _ := cmd.Flags().GetString("status")

	quotes, err := a.client.ListQuotes(cmd.Context(), status)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]any{"quotes": quotes, "count": len(quotes)})
	}
	if len(quotes) == 0 {
		fmt.Println("No quote requests found")
		return nil
	}

	w := newTable()
	printTableHeader(w, "ID", "RECEIVED", "NAME", "PHONE", "SERVICE", "M²", "STATUS")
	for _, q := range quotes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.0f\t%s\n",
			q.ID,
			q.CreatedAt.Local().Format(time.DateTime),
			q.Name,
			q.Phone,
			q.Service,
			q.SurfaceM2,
			q.Status,
		)
	}
	return w.Flush()
}

func runQuotesStatus(cmd *cobra.Command, args []string, a *app) error {
	quote, err := a.client.UpdateQuoteStatus(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(quote)
	}
	fmt.Printf("Quote %s is now %s\n", quote.ID, quote.Status)
	return nil
}
