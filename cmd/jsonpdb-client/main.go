package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/spf13/cobra"

	"jsonpdb/internal/client"
)

type rootOptions struct {
	URL     string
	Timeout time.Duration
}

func main() {
	defer exitwithstatus.Handler()

	if err := newRootCommand().Execute(); err != nil {
		exitwithstatus.Message("Error: %s\n", err)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "jsonpdb-client",
		Short:         "Read and write a jsonpdb server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.URL, "url", "u", "http://localhost:8085", "server base URL, including any path prefix")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 20*time.Second, "request timeout")

	cmd.AddCommand(newGetCommand(opts))
	cmd.AddCommand(newPutCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	return cmd
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(opts.URL, opts.Timeout)
			v, found, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("key %q not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newPutCommand(opts *rootOptions) *cobra.Command {
	var modKey string
	cmd := &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store value under key and print the modification key, if any",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(opts.URL, opts.Timeout)
			token, err := c.Put(cmd.Context(), args[0], args[1], modKey)
			if err != nil {
				return err
			}
			if token != "" {
				fmt.Fprintln(cmd.OutOrStdout(), token)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&modKey, "modification-key", "k", "", "key returned when the entry was created")
	return cmd
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <prefix>",
		Short: "List key suffixes under prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(opts.URL, opts.Timeout)
			keys, err := c.ListPrefix(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(keys) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(keys, "\n"))
			}
			return nil
		},
	}
}
