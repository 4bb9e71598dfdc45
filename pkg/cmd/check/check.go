package check

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/sessionreplay/pkg/cmd/util"
	"github.com/mpapenbr/sessionreplay/pkg/config"
	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/processing"
	"github.com/mpapenbr/sessionreplay/pkg/processing/procerr"
)

func NewCheckCmd() *cobra.Command {
	cfg := config.Config{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "runs the pipeline for a session and prints a summary",
		Long: `Runs the processing pipeline and prints a summary of the result.
The command fails on any validation or invariant error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), &cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&cfg.Source, "source", util.SourceFile,
		"where to load the session from (file, db, cache)")
	cmd.Flags().StringVarP(&cfg.File, "file", "f", "", "capture file (source file)")
	util.AddSelectionFlags(cmd, &cfg)
	return cmd
}

func runCheck(ctx context.Context, cfg *config.Config, w io.Writer) error {
	_, sqlLogger, err := util.SetupLogger()
	if err != nil {
		return err
	}
	sel, err := util.Selection(cfg)
	if err != nil {
		return err
	}
	h, err := util.OpenSource(ctx, cfg.Source, cfg, sqlLogger)
	if err != nil {
		return err
	}
	defer h.Close()

	input, err := h.Source.Load(ctx, sel)
	if err != nil {
		return err
	}
	state, report, err := processing.NewProcessor().ProcessWithReport(ctx, input)
	if err != nil {
		return describe(err)
	}
	return PrintSummary(w, state, report)
}

func describe(err error) error {
	var ve *procerr.ValidationError
	var iv *procerr.InvariantViolation
	switch {
	case errors.As(err, &ve):
		fmt.Fprintf(os.Stderr, "validation failed: source=%s row=%d field=%s\n",
			ve.Source, ve.Row, ve.Field)
	case errors.As(err, &iv):
		fmt.Fprintf(os.Stderr, "invariant %s failed: driver=%s tick=%d\n",
			iv.Check, iv.DriverID, iv.Tick)
	}
	return err
}

// PrintSummary writes a human readable summary of a pipeline run
func PrintSummary(w io.Writer, state *model.RaceState, report *processing.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	skipped := "none"
	if len(report.Skipped) > 0 {
		skipped = strings.Join(report.Skipped, ",")
	}
	fmt.Fprintf(tw, "session:\t%s\n", state.Selection)
	fmt.Fprintf(tw, "drivers:\t%d (without telemetry: %s)\n", len(state.Drivers), skipped)
	fmt.Fprintf(tw, "total laps:\t%d\n", state.TotalLaps)
	fmt.Fprintf(tw, "tick span:\t%d\n", state.TickSpan)
	fmt.Fprintf(tw, "rows:\t%d\n", len(state.Rows))
	if t, ok := state.EndOfRaceTime.Get(); ok {
		fmt.Fprintf(tw, "end of race:\t%.3fs (tick %d)\n",
			float64(t)/1000, report.FrozenFromTick)
	} else {
		fmt.Fprintf(tw, "end of race:\t-\n")
	}
	fmt.Fprintf(tw, "gaps:\t%d\n", len(report.Gaps))
	for _, g := range report.Gaps {
		fmt.Fprintf(tw, "\t%s\n", g)
	}
	fmt.Fprintf(tw, "track status:\t%d intervals\n", len(state.TrackStatus))
	for _, ts := range state.TrackStatus {
		fmt.Fprintf(tw, "\t[%d-%d] %s\n", ts.StartTick, ts.EndTick, ts.Label)
	}
	stages := make([]string, 0, len(report.StageDurations))
	for k := range report.StageDurations {
		stages = append(stages, k)
	}
	sort.Strings(stages)
	for _, k := range stages {
		fmt.Fprintf(tw, "stage %s:\t%v\n", k, report.StageDurations[k])
	}
	return tw.Flush()
}
