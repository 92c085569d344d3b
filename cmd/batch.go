package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addrmap/internal/batch"
	"github.com/sells-group/addrmap/internal/export"
	"github.com/sells-group/addrmap/internal/model"
	"github.com/sells-group/addrmap/internal/sheet"
)

var (
	batchFile   string
	batchOutput string
	batchFormat string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Geocode every address in a spreadsheet and write map markers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		format, err := export.ParseFormat(batchFormat)
		if err != nil {
			return err
		}

		rows, err := sheet.ReadFile(batchFile)
		if err != nil {
			return err
		}

		resolver, closer, err := initResolver(ctx, cfg)
		if err != nil {
			return err
		}
		defer closer.Close() //nolint:errcheck

		opts := []batch.Option{
			batch.WithLogger(zap.L().With(zap.String("file", batchFile))),
			batch.WithPacing(cfg.Batch.PauseEvery, cfg.Batch.Pause()),
		}
		bar := newProgressBar(len(rows))
		if bar != nil {
			opts = append(opts, batch.WithProgress(func(done, _ int) {
				_ = bar.Set(done)
			}))
		}

		res, err := batch.NewAggregator(resolver, opts...).Aggregate(ctx, rows)
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return eris.Wrap(err, "batch")
		}

		report := &export.Report{
			RunID:   res.RunID,
			Summary: res.Summary(len(rows)),
			Markers: res.Markers,
		}
		if err := writeReport(cmd.OutOrStdout(), format, report); err != nil {
			return err
		}
		printSummary(cmd.ErrOrStderr(), report.Summary)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "spreadsheet to process (.xlsx or .csv)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "write markers to this file instead of stdout")
	batchCmd.Flags().StringVar(&batchFormat, "format", "json", "output format: json, yaml or geojson")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// newProgressBar returns nil when stderr is not a terminal.
func newProgressBar(total int) *progressbar.ProgressBar {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("geocoding"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func writeReport(stdout io.Writer, format export.Format, report *export.Report) error {
	if batchOutput == "" {
		return export.Write(stdout, format, report)
	}

	f, err := os.Create(batchOutput)
	if err != nil {
		return eris.Wrapf(err, "create %s", batchOutput)
	}
	if err := export.Write(f, format, report); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "close %s", batchOutput)
}

func printSummary(w io.Writer, s model.Summary) {
	fmt.Fprintf(w, "total: %d  placed: %d  failed: %d\n", s.TotalAddresses, s.SuccessCount, len(s.FailedAddresses))
	for _, f := range s.FailedAddresses {
		fmt.Fprintf(w, "  row %d: %q (%s)\n", f.Row, f.OriginalAddress, f.Reason)
	}
}
