package cmd

import (
	"github.com/spf13/cobra"
)

func newPositionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "Show net positions per symbol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			positions, err := opts.client().ListPositions(cmd.Context())
			if err != nil {
				return requestFailed(err)
			}
			return printJSON(cmd, positions)
		},
	}
}

func newTradesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "trades",
		Short: "List active trades in placement order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			trades, err := opts.client().ListTrades(cmd.Context())
			if err != nil {
				return requestFailed(err)
			}
			return printJSON(cmd, trades)
		},
	}
}

func newTradeInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "trade-info ID",
		Short: "Show a single active trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			trade, err := opts.client().GetTrade(cmd.Context(), id)
			if err != nil {
				return requestFailed(err)
			}
			return printJSON(cmd, trade)
		},
	}
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-symbol trade statistics",
		Long: `Show, for every symbol with active trades, the trade count, the
average price, the sum of prices and a naive predicted next price
(average * 1.01, rounded to cents).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := opts.client().Stats(cmd.Context())
			if err != nil {
				return requestFailed(err)
			}
			return printJSON(cmd, stats)
		},
	}
}
