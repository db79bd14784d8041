// Package cmd implements the tradrx-cli commands.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"tradrx/pkg/tradrx"
)

// options holds the flags shared by every command.
type options struct {
	apiURL string
}

func (o *options) client() *tradrx.Client {
	return tradrx.NewClient(o.apiURL)
}

// requestError marks a failure talking to the server, as opposed to a usage
// error.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func requestFailed(err error) error {
	if err == nil {
		return nil
	}
	return &requestError{err: err}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "tradrx-cli",
		Short: "Command line client for the tradrx trade ledger",
		Long: `tradrx-cli talks to a running tradrx-server over HTTP.

It can:
  - Place buy and sell trades
  - List active trades and net positions
  - Inspect or cancel a single trade
  - Show per-symbol statistics
  - Export the active trades to a Parquet archive and list it back

The server address is taken from --api, then the API_URL environment
variable, then ` + tradrx.DefaultURL + `.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := os.Getenv("API_URL")
	if defaultURL == "" {
		defaultURL = tradrx.DefaultURL
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api", defaultURL, "API base URL (overrides API_URL)")

	root.AddCommand(
		newTradeCmd(opts),
		newPositionsCmd(opts),
		newTradesCmd(opts),
		newTradeInfoCmd(opts),
		newCancelCmd(opts),
		newStatsCmd(opts),
		newExportCmd(opts),
		newArchiveCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI with the process arguments and returns the exit code.
func Execute() int {
	return Run(os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes the command line args, writing results to stdout and errors
// to stderr. Failed requests are reported as "Request failed: ...".
func Run(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		fmt.Fprintf(stderr, "Request failed: %v\n", reqErr.err)
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
