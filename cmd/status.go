package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/nestctl/internal/pkg/thermostat"
)

// Commands that only read the thermostat status

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the current temperature",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		return withThermostat(cmd, func(ctx context.Context, t *thermostat.Thermostat) error {
			return t.ShowCurrent()
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show every known setting of the thermostat",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := thermostat.ParseShowFormat(viper.GetString("show.format"))
		if err != nil {
			return err
		}

		return withThermostat(cmd, func(ctx context.Context, t *thermostat.Thermostat) error {
			return t.Show(format)
		})
	},
}

var untilCmd = &cobra.Command{
	Use:   "until",
	Short: "Show when the target temperature will be reached",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		return withThermostat(cmd, func(ctx context.Context, t *thermostat.Thermostat) error {
			return t.Until()
		})
	},
}

var humidityCmd = &cobra.Command{
	Use:   "humidity",
	Short: "Show the relative humidity",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		return withThermostat(cmd, func(ctx context.Context, t *thermostat.Thermostat) error {
			return t.Humidity()
		})
	},
}

var leafCmd = &cobra.Command{
	Use:   "leaf",
	Short: "Show whether the energy saving leaf is on",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		return withThermostat(cmd, func(ctx context.Context, t *thermostat.Thermostat) error {
			return t.Leaf()
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show whether the home is set to away",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		return withThermostat(cmd, func(ctx context.Context, t *thermostat.Thermostat) error {
			return t.State()
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the thermostats in the home",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		return withThermostat(cmd, func(ctx context.Context, t *thermostat.Thermostat) error {
			return t.List()
		})
	},
}

func init() {
	showCmd.Flags().String("format", "text", "output format: text, json or yaml")
	errPanic(viper.GetViper().BindPFlag("show.format", showCmd.Flags().Lookup("format")))

	rootCmd.AddCommand(currentCmd, showCmd, untilCmd, humidityCmd, leafCmd, stateCmd, listCmd)
}
