package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"jsonpdb/internal/storage"
)

var validFormats = []string{"text", "json", "yaml"}

type report struct {
	Store   string           `json:"store" yaml:"store"`
	Count   int              `json:"count" yaml:"count"`
	Bytes   uint64           `json:"bytes" yaml:"bytes"`
	Records []storage.Record `json:"records" yaml:"records"`
}

func main() {
	defer exitwithstatus.Handler()

	if err := newRootCommand().Execute(); err != nil {
		exitwithstatus.Message("Error: %s\n", err)
	}
}

func newRootCommand() *cobra.Command {
	var storeURL, format string
	cmd := &cobra.Command{
		Use:           "jsonpdb-dbcheck",
		Short:         "Dump the records held by a jsonpdb store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(format) {
				return fmt.Errorf("invalid format %q: must be one of %v", format, validFormats)
			}
			store, err := storage.Open(storeURL, 0)
			if err != nil {
				return err
			}
			defer store.Close()

			rep, err := collect(storeURL, store)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), format, rep)
		},
	}
	cmd.Flags().StringVar(&storeURL, "store", "sqlite://./data/jsonp_db.db", "backend URL")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text|json|yaml)")
	return cmd
}

func collect(storeURL string, store storage.Store) (report, error) {
	records, err := store.All()
	if err != nil {
		return report{}, err
	}
	rep := report{Store: storeURL, Count: len(records), Records: records}
	for _, r := range records {
		rep.Bytes += uint64(len(r.Key) + len(r.Value))
	}
	return rep, nil
}

func write(w io.Writer, format string, rep report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(rep)
	}
	fmt.Fprintf(w, "Store: %s\n", rep.Store)
	fmt.Fprintf(w, "Records: %d (%s)\n", rep.Count, humanize.Bytes(rep.Bytes))
	for _, r := range rep.Records {
		fmt.Fprintf(w, " - %s = %s\n", r.Key, r.Value)
	}
	return nil
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}
