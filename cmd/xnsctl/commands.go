package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/emperorhan/xns-resolver/internal/domain/model"
	"github.com/spf13/cobra"
)

func newResolveCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Find the account that holds a domain, e.g. alice.xrp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.build(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			rec, err := res.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), rec)
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}
}

func newReverseCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <address>",
		Short: "List the domains held by an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.build(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			recs, err := res.ReverseLookup(ctx, args[0])
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), recs)
			}

			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintf(out, "%s holds no domains\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "%s holds %d domain(s)\n", args[0], len(recs))
			fmt.Fprintf(out, "-----------------------\n")
			for _, rec := range recs {
				fmt.Fprintf(out, "%-24s %-11s %s\n", rec.Name, rec.Service, rec.NFTokenID)
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRecord(w io.Writer, rec model.DomainRecord) {
	fmt.Fprintf(w, "%-12s %s\n", "name:", rec.Name)
	fmt.Fprintf(w, "%-12s %s\n", "owner:", rec.Owner)
	fmt.Fprintf(w, "%-12s %s (%s)\n", "service:", rec.Service, rec.Issuer)
	fmt.Fprintf(w, "%-12s %s\n", "nft:", rec.NFTokenID)
	fmt.Fprintf(w, "%-12s %s\n", "metadata:", rec.Source)
	if rec.ExpiresAt != nil {
		fmt.Fprintf(w, "%-12s %s\n", "expires:", rec.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if rec.Description != "" {
		fmt.Fprintf(w, "%-12s %s\n", "description:", rec.Description)
	}
	printMap(w, "addresses:", rec.Addresses)
	printMap(w, "records:", rec.TextRecords)
}

func printMap(w io.Writer, label string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s\n", label)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-10s %s\n", k, m[k])
	}
}
