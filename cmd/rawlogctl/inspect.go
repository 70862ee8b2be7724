package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/danmuck/rawlog/internal/catalog"
	"github.com/danmuck/rawlog/internal/rawlog"
	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	var skipBad bool
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Summarise the records of a rawlog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.readerOptions()
			if skipBad {
				opts.OnUnknown, opts.OnCorrupt = rawlog.PolicySkip, rawlog.PolicySkip
			}
			r, err := rawlog.Open(args[0], opts)
			if err != nil {
				return err
			}
			defer r.Close()

			sum, err := rawlog.Scan(r)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "file:        %s\n", args[0])
			fmt.Fprintf(out, "compression: %s\n", r.Compression())
			fmt.Fprintf(out, "records:     %d\n", sum.Records)
			fmt.Fprintf(out, "nulls:       %d\n", sum.Nulls)
			fmt.Fprintf(out, "skipped:     %d\n", sum.Skipped)
			fmt.Fprintf(out, "bytes:       %d\n", sum.Bytes)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tCOUNT\tBYTES\tVERSIONS")
			for _, st := range sum.SortedTypes() {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", st.Name, st.Count, st.Bytes, formatVersions(st.Versions))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&skipBad, "skip-bad", false, "skip unknown and corrupt records instead of aborting")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <file>",
		Short: "Print one line per record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.readerOptions()
			opts.OnUnknown, opts.OnCorrupt = rawlog.PolicySkip, rawlog.PolicySkip
			r, err := rawlog.Open(args[0], opts)
			if err != nil {
				return err
			}
			defer r.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tTYPE\tVERSION\tSIZE\tSTATUS")
			seen := 0
			for {
				rec, err := r.Next()
				for skipped := r.Skipped(); seen < len(skipped); seen++ {
					s := skipped[seen]
					fmt.Fprintf(tw, "%d\t%s\t%d\t%d\tskipped: %v\n", s.Record.Index, s.Record.TypeName, s.Record.Version, s.Record.Size, errors.Unwrap(s.Err))
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					_ = tw.Flush()
					return err
				}
				if rec.IsNull() {
					fmt.Fprintf(tw, "%d\t-\t-\t%d\tnull\n", rec.Index, rec.Size)
					continue
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\tok\n", rec.Index, rec.TypeName, rec.Version, rec.Size)
			}
			return tw.Flush()
		},
	}
}

func newTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered types and their current versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tVERSION\tMODULE")
			for _, desc := range a.registry.List() {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", desc.Name, desc.CurrentVersion, catalog.ModuleOf(desc.Name))
			}
			return tw.Flush()
		},
	}
}

func formatVersions(versions map[uint8]int64) string {
	keys := make([]int, 0, len(versions))
	for v := range versions {
		keys = append(keys, int(v))
	}
	sort.Ints(keys)
	parts := make([]string, 0, len(keys))
	for _, v := range keys {
		parts = append(parts, fmt.Sprintf("v%d:%d", v, versions[uint8(v)]))
	}
	return strings.Join(parts, " ")
}
