package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/suito/internal/cli"
	"github.com/Veraticus/suito/internal/service"
)

func deleteCmd() *cobra.Command {
	var (
		layerID string
		ids     []string
		all     bool
		yes     bool
	)

	cmd := &cobra.Command{
		Use:   "delete [polygon_uuid...]",
		Short: "Delete stored parcel attributes",
		Long: `Delete the stored attributes of parcels. The geometry is untouched; the
parcels simply fall back to their unedited state.`,
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

			selection := s.ws.Layer().Selection()
			confirmer := cli.NewConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
			confirmer.AssumeYes = yes
			ok, err := confirmer.Confirm(ctx, fmt.Sprintf("Delete attributes of %d parcel(s)?", len(selection)))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println(cli.FormatInfo("Nothing deleted"))
				return nil
			}

			if len(selection) == 1 {
				err := s.ws.DeleteParcel(ctx, selection[0])
				return printItemResults("Deleted", []service.ItemResult{{ID: selection[0], Err: err}})
			}
			results, err := s.ws.BulkDelete(ctx)
			if err != nil {
				return err
			}
			return printItemResults("Deleted", results)
		},
	}

	addLayerFlag(cmd, &layerID)
	addSelectionFlags(cmd, &ids, &all)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}
