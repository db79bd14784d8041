package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tradrx/pkg/tradrx"
)

func newTradeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "trade SYMBOL {buy|sell} QUANTITY PRICE",
		Short: "Place a trade",
		Long: `Book a buy or sell trade and print the server's response.

Example:
  tradrx-cli trade AAPL buy 10 150.25`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, action := args[0], args[1]
			if action != tradrx.Buy && action != tradrx.Sell {
				return fmt.Errorf("action must be %q or %q, got %q", tradrx.Buy, tradrx.Sell, action)
			}
			quantity, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[2], err)
			}
			price, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", args[3], err)
			}

			trade, err := opts.client().PlaceTrade(cmd.Context(), symbol, action, quantity, price)
			if err != nil {
				return requestFailed(err)
			}
			return printJSON(cmd, map[string]any{"status": "success", "trade": trade})
		},
	}
}

func newCancelCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel an active trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := opts.client().CancelTrade(cmd.Context(), id); err != nil {
				return requestFailed(err)
			}
			return printJSON(cmd, map[string]any{"status": "success", "id": id})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid trade id %q", s)
	}
	return id, nil
}
