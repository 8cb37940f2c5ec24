package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/suito/internal/cli"
	"github.com/Veraticus/suito/internal/model"
)

func credentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage weather service credentials used for predictions",
	}
	cmd.AddCommand(setCredentialsCmd())
	return cmd
}

func setCredentialsCmd() *cobra.Command {
	var creds model.WeatherCredentials

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the weather service user and password",
		Long: `Store the weather data credentials that are sent along with every prediction.
The password may also be given in SUITO_WEATHER_PASSWORD.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if creds.Password == "" {
				creds.Password = os.Getenv("SUITO_WEATHER_PASSWORD")
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.ws.SaveWeatherCredentials(cmd.Context(), creds); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Weather credentials saved for " + s.ws.User()))
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.User, "weather-user", "", "weather service user id")
	cmd.Flags().StringVar(&creds.Password, "password", "", "weather service password")
	_ = cmd.MarkFlagRequired("weather-user")

	return cmd
}
