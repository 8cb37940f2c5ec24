package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/suito/internal/cli"
	"github.com/Veraticus/suito/internal/engine"
	"github.com/Veraticus/suito/internal/model"
)

func predictCmd() *cobra.Command {
	var (
		layerID string
		ids     []string
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "predict [polygon_uuid...]",
		Short: "Predict heading and maturity dates",
		Long: `Ask the growth prediction service for the heading and maturity dates of
parcels. Parcels are predicted one at a time in the order given; a failure is
reported for that parcel and the run continues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ids = append(ids, args...)
			if len(ids) == 0 && !all {
				return fmt.Errorf("give polygon_uuid arguments, --ids or --all")
			}

			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := loadLayer(ctx, s.ws, layerID); err != nil {
				return err
			}
			if err := selectParcels(s.ws, ids, all); err != nil {
				return err
			}

			if len(s.ws.Layer().Selection()) == 1 {
				result, err := s.ws.PredictSelected(ctx)
				if err != nil {
					return err
				}
				printPrediction(result)
				return nil
			}

			progress, err := predictSelection(ctx, s.ws)
			if err != nil {
				return err
			}
			fmt.Println(progress.Summary())
			for _, id := range s.ws.Layer().Selection() {
				if r, ok := s.ws.Results()[id]; ok && r.OK() {
					printPrediction(r)
				}
			}
			return nil
		},
	}

	addLayerFlag(cmd, &layerID)
	addSelectionFlags(cmd, &ids, &all)
	return cmd
}

// predictSelection streams predictions for the selection behind a progress
// bar. An interrupt stops the run; results received so far stay recorded.
func predictSelection(ctx context.Context, ws *engine.Workspace) (*cli.PredictionProgress, error) {
	handler := cli.NewInterruptHandler(os.Stderr)
	ctx, stop := handler.HandleInterrupts(ctx)
	defer stop()

	seq, total, err := ws.PredictSelection(ctx)
	if err != nil {
		return nil, err
	}

	progress := cli.NewPredictionProgress(os.Stderr, total)
	handler.SetStatus(func() string {
		return fmt.Sprintf("%d of %d parcels predicted", progress.Done(), total)
	})

	for _, result := range seq {
		progress.Record(result)
	}
	return progress, nil
}

func printPrediction(r model.EnrichmentResult) {
	if !r.OK() {
		fmt.Println(cli.FormatError(fmt.Sprintf("%s: %s", r.ParcelID, r.ErrorMessage)))
		return
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s: heading %s, maturity %s", r.ParcelID, r.HeadingDate, r.MaturityDate)))
}
