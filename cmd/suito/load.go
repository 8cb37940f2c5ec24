package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/suito/internal/cli"
	"github.com/Veraticus/suito/internal/model"
)

func loadCmd() *cobra.Command {
	var layerID string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a layer and show its parcels with their attributes",
		Example: `  # Show the parcels of Tsukuba
  suito load --layer 2025_082201`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := loadLayer(ctx, s.ws, layerID); err != nil {
				return err
			}

			features := s.ws.Layer().Features()
			rows := make([][]string, 0, len(features))
			for _, f := range features {
				a, _ := s.ws.Attributes().Get(f.ID)
				fill := model.Color{}
				if st, ok := s.ws.Layer().Style(f.ID); ok {
					fill = st.FillColor
				}
				rows = append(rows, []string{
					f.ID,
					orDash(a.Name),
					orDash(a.Variety),
					orDash(a.TransplantDate),
					cli.FormatSwatch(fill),
				})
			}

			title := layerID
			if m, ok := model.LookupMunicipality(layerID); ok {
				title = fmt.Sprintf("%s (%s)", m.Label, m.LayerID)
			}
			fmt.Println(cli.FormatTitle(fmt.Sprintf("%s: %d parcels", title, len(features))))
			if len(rows) > 0 {
				fmt.Println(cli.RenderTable([]string{"polygon_uuid", "name", "variety", "transplantDate", "color"}, rows))
			}
			return nil
		},
	}

	addLayerFlag(cmd, &layerID)
	return cmd
}
