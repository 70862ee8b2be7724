package main

import (
	"fmt"
	"io"
	"os"

	"github.com/danmuck/rawlog/internal/rawlog"
	"github.com/danmuck/rawlog/internal/transport"
	"github.com/spf13/cobra"
)

func newFilterCmd(a *app) *cobra.Command {
	var (
		types       []string
		from, to    int64
		dropNulls   bool
		compression string
	)
	cmd := &cobra.Command{
		Use:   "filter <in> <out>",
		Short: "Copy selected records into a new rawlog in current versions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := rawlog.Selection{Types: types, From: from, To: to, DropNulls: dropNulls}
			return a.rewrite(cmd.OutOrStdout(), args[0], args[1], compression, sel)
		},
	}
	cmd.Flags().StringArrayVar(&types, "type", nil, "keep only this type name (repeatable)")
	cmd.Flags().Int64Var(&from, "from", 0, "first record index to keep")
	cmd.Flags().Int64Var(&to, "to", -1, "last record index to keep (-1 for no limit)")
	cmd.Flags().BoolVar(&dropNulls, "drop-nulls", false, "discard null records")
	cmd.Flags().StringVar(&compression, "compression", "auto", "output compression: auto|none|gzip|snappy")
	return cmd
}

func newConvertCmd(a *app) *cobra.Command {
	var compression string
	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Rewrite a rawlog in current versions, optionally recompressed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.rewrite(cmd.OutOrStdout(), args[0], args[1], compression, rawlog.All())
		},
	}
	cmd.Flags().StringVar(&compression, "compression", "auto", "output compression: auto|none|gzip|snappy")
	return cmd
}

func (a *app) rewrite(out io.Writer, inPath, outPath, compression string, sel rawlog.Selection) (err error) {
	c, err := transport.ParseCompression(compression)
	if err != nil {
		return err
	}
	in, err := rawlog.Open(inPath, a.readerOptions())
	if err != nil {
		return err
	}
	defer in.Close()

	wopts := a.readerOptions()
	wopts.Compression = c
	w, err := rawlog.Create(outPath, wopts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	stats, err := rawlog.Filter(in, w, sel)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "read %d, wrote %d, dropped %d, skipped %d -> %s\n",
		stats.Read, stats.Written, stats.Dropped, len(in.Skipped()), outPath)
	return nil
}

func newExportGPSCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export-gps <in> <out>",
		Short: "Export GPS paths as KML or text (out '-' writes to stdout)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			f, err := rawlog.ParseGPSFormat(format)
			if err != nil {
				return err
			}
			r, err := rawlog.Open(args[0], a.readerOptions())
			if err != nil {
				return err
			}
			defer r.Close()

			if args[1] == "-" {
				return rawlog.ExportGPS(r, cmd.OutOrStdout(), f, args[0])
			}
			file, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("create %s: %w", args[1], err)
			}
			defer func() {
				if cerr := file.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()
			return rawlog.ExportGPS(r, file, f, args[0])
		},
	}
	cmd.Flags().StringVar(&format, "format", "kml", "output format: kml|txt")
	return cmd
}
