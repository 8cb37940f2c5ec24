package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/suito/internal/cli"
	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/config"
	"github.com/Veraticus/suito/internal/engine"
	"github.com/Veraticus/suito/internal/export"
	"github.com/Veraticus/suito/internal/sheets"
)

func exportCmd() *cobra.Command {
	var (
		layerID string
		ids     []string
		all     bool
		format  string
		output  string
		predict bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export parcels as CSV, GeoJSON or a Google Sheet",
		Long: `Export the chosen parcels with their attributes. With --predict the
prediction service is called first and the dates are included.`,
		Example: `  # CSV for Excel, with predictions
  suito export --all --predict --format csv --output parcels.csv

  # GeoJSON of two parcels
  suito export --ids a,b --format geojson --output parcels.geojson

  # Replace the configured Google Sheet
  suito export --all --format sheet`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if format != "csv" && format != "geojson" && format != "sheet" {
				return fmt.Errorf("unknown format %q (csv, geojson, sheet)", format)
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
			if predict {
				progress, err := predictSelection(ctx, s.ws)
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stderr, progress.Summary())
			}

			switch format {
			case "sheet":
				return exportSheet(cmd, s.ws)
			default:
				return writeExport(s.ws, format, output)
			}
		},
	}

	addLayerFlag(cmd, &layerID)
	addSelectionFlags(cmd, &ids, &all)
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format (csv, geojson, sheet)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&predict, "predict", false, "predict the parcels before exporting")

	return cmd
}

func writeExport(ws *engine.Workspace, format, output string) error {
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(config.ExpandPath(output)) // #nosec G304
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	var count int
	switch format {
	case "geojson":
		fc, err := ws.ExportGeoJSON()
		if err != nil {
			return err
		}
		if err := export.WriteGeoJSON(w, fc); err != nil {
			return err
		}
		count = len(fc.Features)
	default:
		rows, err := ws.ExportTable()
		if err != nil {
			return err
		}
		if err := export.WriteCSV(w, rows); err != nil {
			return err
		}
		count = len(rows)
	}

	if output != "" {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d parcel(s) to %s", count, output)))
	}
	return nil
}

func exportSheet(cmd *cobra.Command, ws *engine.Workspace) error {
	ctx := cmd.Context()
	cfg, err := config.LoadSheetsConfig(nil)
	if err != nil {
		return common.NewUserError("Google Sheets is not configured. Run `suito sheets auth` or set sheets.service_account_path", err)
	}

	writer, err := sheets.NewWriter(ctx, *cfg, nil)
	if err != nil {
		return err
	}

	n, err := ws.ExportToSheet(ctx, writer)
	if err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Wrote %d parcel(s) to sheet %q", n, cfg.SheetName)))
	return nil
}
