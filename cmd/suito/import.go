package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/suito/internal/cli"
	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/config"
	"github.com/Veraticus/suito/internal/csvimport"
	"github.com/Veraticus/suito/internal/model"
)

func importCmd() *cobra.Command {
	var (
		layerID string
		field   string
	)

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Overlay a CSV of parcel results and color by predicted date",
		Long: `Read a CSV with a polygon_uuid column (for example an earlier export),
fetch only those parcels from the layer and color them along a gradient of the
predicted heading or maturity date. Imported values are not saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			gradientField := model.FieldPredictedHeading
			switch field {
			case "heading":
			case "maturity":
				gradientField = model.FieldPredictedMaturity
			default:
				return fmt.Errorf("unknown field %q (heading, maturity)", field)
			}

			f, err := os.Open(config.ExpandPath(args[0])) // #nosec G304
			if err != nil {
				return fmt.Errorf("failed to open CSV: %w", err)
			}
			defer func() { _ = f.Close() }()

			records, err := csvimport.ReadCSV(f)
			if err != nil {
				return err
			}

			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.ws.ImportCSV(ctx, layerID, records, gradientField)
			if errors.Is(err, common.ErrNoUsableIDs) {
				fmt.Println(cli.FormatWarning(err.Error()))
				return nil
			}
			var notice *common.EmptyResultNotice
			if errors.As(err, &notice) {
				fmt.Println(cli.FormatWarning(notice.Error()))
				return nil
			}
			if err != nil {
				return err
			}

			summary := fmt.Sprintf("  • Rows used: %d\n", len(res.Import.Records)) +
				fmt.Sprintf("  • Rows without polygon_uuid: %d\n", res.Import.Dropped) +
				fmt.Sprintf("  • Parcels found: %d\n", res.Load.Features)
			fmt.Println(cli.RenderBox("CSV Import", summary))
			printLegend(res.Legend)

			rows := make([][]string, 0, res.Load.Features)
			for _, feat := range s.ws.Layer().Features() {
				var swatch string
				if st, ok := s.ws.Layer().Style(feat.ID); ok {
					swatch = cli.FormatSwatch(st.FillColor)
				}
				rows = append(rows, []string{feat.ID, orDash(s.ws.Attributes().Field(feat.ID, gradientField)), swatch})
			}
			if len(rows) > 0 {
				fmt.Println(cli.RenderTable([]string{"polygon_uuid", gradientField, "color"}, rows))
			}
			return nil
		},
	}

	addLayerFlag(cmd, &layerID)
	cmd.Flags().StringVar(&field, "field", "heading", "date used for coloring (heading, maturity)")

	return cmd
}

func printLegend(l model.LegendInfo) {
	if l.NoData {
		fmt.Println(cli.FormatInfo(l.Title + ": no dates to color by"))
		return
	}
	fmt.Printf("%s  %s %s → %s %s\n",
		cli.TitleStyle.UnsetMargins().Render(l.Title),
		cli.FormatSwatch(l.StartColor), l.MinLabel,
		cli.FormatSwatch(l.EndColor), l.MaxLabel)
}
