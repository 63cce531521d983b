package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jake-scott/nestctl/internal/pkg/thermostat"
)

// Commands that change the thermostat or home.  Arguments are checked
// before connecting.

var fanCmd = &cobra.Command{
	Use:       "fan on|auto",
	Short:     "Set the fan mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "auto"},

	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := thermostat.ParseFanMode(args[0])
		if err != nil {
			return err
		}

		return withThermostat(cmd, func(ctx context.Context, t *thermostat.Thermostat) error {
			return t.SetFan(ctx, mode)
		})
	},
}

var modeCmd = &cobra.Command{
	Use:       "mode heat|cool|range",
	Short:     "Set the thermostat mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"heat", "cool", "range"},

	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := thermostat.ParseThermostatMode(args[0])
		if err != nil {
			return err
		}

		return withThermostat(cmd, func(ctx context.Context, t *thermostat.Thermostat) error {
			return t.SetMode(ctx, mode)
		})
	},
}

var awayCmd = &cobra.Command{
	Use:   "away",
	Short: "Set the home to away",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		return withThermostat(cmd, func(ctx context.Context, t *thermostat.Thermostat) error {
			return t.SetAway(ctx, true)
		})
	},
}

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Set the home to home",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		return withThermostat(cmd, func(ctx context.Context, t *thermostat.Thermostat) error {
			return t.SetAway(ctx, false)
		})
	},
}

var autoAwayCmd = &cobra.Command{
	Use:       "auto-away on|off",
	Short:     "Turn auto-away on or off",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},

	RunE: func(cmd *cobra.Command, args []string) error {
		enabled, err := thermostat.ParseOnOff(args[0])
		if err != nil {
			return err
		}

		return withThermostat(cmd, func(ctx context.Context, t *thermostat.Thermostat) error {
			return t.SetAutoAway(ctx, enabled)
		})
	},
}

func init() {
	rootCmd.AddCommand(fanCmd, modeCmd, awayCmd, homeCmd, autoAwayCmd)
}
