package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/suito/internal/cli"
	"github.com/Veraticus/suito/internal/palette"
)

func colorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "colors",
		Short: "Show or override variety colors",
	}
	cmd.AddCommand(listColorsCmd())
	cmd.AddCommand(setColorCmd())
	return cmd
}

func listColorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the color of every variety",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			overrides := s.ws.Colors()
			rows := make([][]string, 0)
			for _, v := range s.ws.AvailableVarieties() {
				source := "palette"
				if _, ok := overrides[v]; ok {
					source = "custom"
				}
				rows = append(rows, []string{v, cli.FormatSwatch(palette.ColorFor(v, overrides)), source})
			}
			fmt.Println(cli.FormatTitle("Variety colors"))
			fmt.Println(cli.RenderTable([]string{"Variety", "Color", "Source"}, rows))
			return nil
		},
	}
}

func setColorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <variety> <color>",
		Short: "Override the color of a variety",
		Example: `  suito colors set コシヒカリ "#FF8800"
  suito colors set あきたこまち "rgb(30,136,229)"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			color, err := palette.ParseColor(args[1])
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.ws.SetVarietyColor(cmd.Context(), args[0], color); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s is now %s", args[0], cli.FormatSwatch(color))))
			return nil
		},
	}
}
