package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/suito/internal/cli"
	"github.com/Veraticus/suito/internal/model"
)

func layersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layers",
		Short: "List the municipality layers",
		RunE: func(_ *cobra.Command, _ []string) error {
			rows := make([][]string, 0, len(model.Municipalities()))
			for _, m := range model.Municipalities() {
				id := m.LayerID
				if id == model.DefaultLayerID {
					id += " (default)"
				}
				rows = append(rows, []string{id, m.Label})
			}
			fmt.Println(cli.FormatTitle("Municipality layers"))
			fmt.Println(cli.RenderTable([]string{"Layer", "Municipality"}, rows))
			return nil
		},
	}
}
