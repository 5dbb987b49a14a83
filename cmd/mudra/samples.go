package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

func newSamplesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "samples",
		Short: "Inspect recorded calibration samples",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "report",
		Short: "Score the gesture classifier against recorded samples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.New(opts.config.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			report, err := samplesReport(st, opts.config)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	})
	return cmd
}

// samplesReport scores the saved tuning profile, falling back to cfg.
func samplesReport(st *store.Store, cfg *config.Config) (gesture.Report, error) {
	tuning, err := st.Tuning()
	switch {
	case errors.Is(err, store.ErrNotFound):
		tuning = cfg.Tuning()
	case err != nil:
		return gesture.Report{}, err
	}
	return app.SampleReport(st, gesture.NewClassifier(tuning.Gesture))
}

func printReport(out io.Writer, r gesture.Report) error {
	if r.Total == 0 {
		_, err := fmt.Fprintln(out, "No samples recorded.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tSAMPLES\tCORRECT\tACCURACY")
	for _, s := range r.PerLabel {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\n", s.Label, s.Total, s.Correct, s.Accuracy*100)
	}
	fmt.Fprintf(w, "total\t%d\t%d\t%.1f%%\n", r.Total, r.Correct, r.Accuracy*100)
	if err := w.Flush(); err != nil {
		return err
	}

	if r.SeparablePinch {
		_, err := fmt.Fprintf(out, "\nSuggested gesture.pinch_threshold: %.3f\n", r.SuggestedPinch)
		return err
	}
	_, err := fmt.Fprintln(out, "\nNo pinch threshold separates the click samples from the rest.")
	return err
}
