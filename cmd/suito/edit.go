package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/suito/internal/cli"
)

func editCmd() *cobra.Command {
	var (
		layerID        string
		ids            []string
		all            bool
		name           string
		variety        string
		transplantDate string
	)

	cmd := &cobra.Command{
		Use:   "edit [polygon_uuid]",
		Short: "Edit parcel attributes",
		Long: `Edit one parcel, or apply a variety and transplant date to many.

With a single polygon_uuid argument the name, variety and transplant date are
written together; flags that are not given keep their current value and an
explicitly empty flag clears the field. With --ids or --all only the variety
and transplant date are applied, and empty values are ignored.`,
		Example: `  # Name a parcel and set its variety
  suito edit 6f1c... --name 北の田 --variety コシヒカリ --transplant-date 2025-05-10

  # Set the transplant date of every parcel in the layer
  suito edit --all --transplant-date 2025-05-12`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 1 && (len(ids) > 0 || all) {
				return fmt.Errorf("give either a polygon_uuid argument or --ids/--all")
			}

			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := loadLayer(ctx, s.ws, layerID); err != nil {
				return err
			}

			if len(args) == 1 {
				id := args[0]
				if _, ok := s.ws.Layer().Feature(id); !ok {
					return fmt.Errorf("parcel %s is not in layer %s", id, layerID)
				}
				attrs, _ := s.ws.Attributes().Get(id)
				if cmd.Flags().Changed("name") {
					attrs.Name = name
				}
				if cmd.Flags().Changed("variety") {
					attrs.Variety = variety
				}
				if cmd.Flags().Changed("transplant-date") {
					attrs.TransplantDate = transplantDate
				}
				if err := s.ws.SaveParcel(ctx, id, attrs); err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess("Saved " + id))
				return nil
			}

			if err := selectParcels(s.ws, ids, all); err != nil {
				return err
			}
			results, err := s.ws.BulkSave(ctx, variety, transplantDate)
			if err != nil {
				return err
			}
			return printItemResults("Saved", results)
		},
	}

	addLayerFlag(cmd, &layerID)
	addSelectionFlags(cmd, &ids, &all)
	cmd.Flags().StringVar(&name, "name", "", "parcel name")
	cmd.Flags().StringVar(&variety, "variety", "", "variety (see suito varieties list)")
	cmd.Flags().StringVar(&transplantDate, "transplant-date", "", "transplant date (YYYY-MM-DD)")

	return cmd
}
