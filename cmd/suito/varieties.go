package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/suito/internal/cli"
	"github.com/Veraticus/suito/internal/model"
)

func varietiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "varieties",
		Short: "Manage rice varieties",
	}
	cmd.AddCommand(listVarietiesCmd())
	cmd.AddCommand(addVarietyCmd())
	return cmd
}

func listVarietiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List base and custom varieties",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rows := make([][]string, 0)
			for _, name := range model.BaseVarieties() {
				rows = append(rows, []string{name, "base", "-", "-", "-"})
			}
			for _, v := range s.ws.Varieties() {
				rows = append(rows, []string{
					v.Name,
					"custom",
					v.BaseVariety,
					strconv.Itoa(v.AdjustmentDays),
					strconv.FormatFloat(v.RipeningAccumulatedTemp, 'f', -1, 64),
				})
			}
			fmt.Println(cli.FormatTitle("Varieties"))
			fmt.Println(cli.RenderTable([]string{"Name", "Kind", "Based on", "Adjustment (days)", "Ripening temp (°C·day)"}, rows))
			return nil
		},
	}
}

func addVarietyCmd() *cobra.Command {
	var v model.Variety

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom variety derived from a base variety",
		Example: `  suito varieties add ゆめひたち --base コシヒカリ --adjust -3 --ripening-temp 950`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v.Name = args[0]

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			created, err := s.ws.AddVariety(cmd.Context(), v)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added %s (based on %s, %+d days, %g °C·day)",
				created.Name, created.BaseVariety, created.AdjustmentDays, created.RipeningAccumulatedTemp)))
			return nil
		},
	}

	cmd.Flags().StringVar(&v.BaseVariety, "base", model.VarietyKoshihikari, "base variety")
	cmd.Flags().IntVar(&v.AdjustmentDays, "adjust", 0, "days added to the base variety's heading date")
	cmd.Flags().Float64Var(&v.RipeningAccumulatedTemp, "ripening-temp", model.DefaultRipeningAccumulatedTemp, "accumulated temperature from heading to maturity")

	return cmd
}
