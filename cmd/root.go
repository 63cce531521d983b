package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/nestctl/internal/pkg/logging"
	"github.com/jake-scott/nestctl/internal/pkg/nestapi"
	"github.com/jake-scott/nestctl/internal/pkg/prompt"
	"github.com/jake-scott/nestctl/internal/pkg/session"
	"github.com/jake-scott/nestctl/internal/pkg/temperature"
	"github.com/jake-scott/nestctl/internal/pkg/thermostat"
)

const defaultConfigFile = "~/.config/nest/config.yaml"

var _cfgFile string

var rootCmd = &cobra.Command{
	Use:   "nest [temperature]",
	Short: "Control a Nest thermostat",
	Long: `Show or change the settings of a Nest thermostat.

With no arguments the target temperature is shown; with a number the
target temperature is set.`,

	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return withThermostat(cmd, func(ctx context.Context, t *thermostat.Thermostat) error {
				return t.ShowTarget()
			})
		}

		v, err := temperature.Validate(args[0])
		if err != nil {
			return err
		}

		return withThermostat(cmd, func(ctx context.Context, t *thermostat.Thermostat) error {
			return t.SetTemperature(ctx, v)
		})
	},
}

// newAPI builds the backend client for one invocation
var newAPI = func() (nestapi.NestAPI, error) {
	store, err := session.NewStore(viper.GetString("session.file"))
	if err != nil {
		return nil, err
	}

	var logRequests bool
	if viper.GetBool("logging.log-requests") {
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			logRequests = true
		} else {
			logging.Logger(nil).Warn("log-requests ignored when not in debug mode")
		}
	}

	return nestapi.NewLiveClient().
		WithTimeout(viper.GetDuration("api.timeout")).
		WithLogRequests(logRequests).
		WithSessionStore(store).
		WithPrompter(prompt.NewTerminal()), nil
}

// Execute runs the command tree and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), describeError(err))
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&_cfgFile, "config", "", "config file (default "+defaultConfigFile+")")
	pf.StringP("user", "u", "", "Nest account user name")
	pf.StringP("password", "p", "", "Nest account password")
	pf.BoolP("fahrenheit", "c", false, "use Fahrenheit instead of Celsius")
	pf.StringP("serial", "s", "", "serial number of the thermostat")
	pf.IntP("index", "i", 0, "index of the thermostat in the structure")
	pf.BoolP("debug", "d", false, "enable debug logging")
	pf.String("session-file", session.DefaultPath, "where the login session is cached")
	pf.Duration("api-timeout", 30*time.Second, "maximum duration of a Nest API call, eg. 1m or 10s")
	pf.Bool("log-requests", false, "log requests and responses (only in debug mode)")

	errPanic(viper.GetViper().BindPFlag("user", pf.Lookup("user")))
	errPanic(viper.GetViper().BindPFlag("password", pf.Lookup("password")))
	errPanic(viper.GetViper().BindPFlag("fahrenheit", pf.Lookup("fahrenheit")))
	errPanic(viper.GetViper().BindPFlag("serial", pf.Lookup("serial")))
	errPanic(viper.GetViper().BindPFlag("index", pf.Lookup("index")))
	errPanic(viper.GetViper().BindPFlag("logging.debug", pf.Lookup("debug")))
	errPanic(viper.GetViper().BindPFlag("session.file", pf.Lookup("session-file")))
	errPanic(viper.GetViper().BindPFlag("api.timeout", pf.Lookup("api-timeout")))
	errPanic(viper.GetViper().BindPFlag("logging.log-requests", pf.Lookup("log-requests")))
}

func errPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// initConfig reads the config file and environment, then sets up logging
func initConfig() {
	if _cfgFile != "" {
		viper.SetConfigFile(_cfgFile)
	} else if path, err := homedir.Expand(defaultConfigFile); err == nil {
		viper.AddConfigPath(filepath.Dir(path))
		viper.SetConfigName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("NEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	cfgErr := viper.ReadInConfig()

	if err := logging.Configure(viper.GetViper()); err != nil {
		fmt.Fprintf(os.Stderr, "configuring logging: %s\n", err)
		os.Exit(1)
	}

	switch cfgErr.(type) {
	case nil:
		logging.Logger(nil).Debugf("using config file %s", viper.ConfigFileUsed())
	case viper.ConfigFileNotFoundError:
	default:
		logging.Logger(nil).WithError(cfgErr).Warn("reading config file")
	}
}

func options() thermostat.Options {
	opts := thermostat.Options{
		Credentials: nestapi.Credentials{
			Username: viper.GetString("user"),
			Password: viper.GetString("password"),
		},
		Serial: viper.GetString("serial"),
		Index:  viper.GetInt("index"),
	}

	if viper.GetBool("fahrenheit") {
		opts.Unit = temperature.Fahrenheit
	}

	return opts
}

// withThermostat connects to the selected device and runs fn against it
func withThermostat(cmd *cobra.Command, fn func(ctx context.Context, t *thermostat.Thermostat) error) error {
	ctx := context.Background()

	api, err := newAPI()
	if err != nil {
		return err
	}

	t, err := thermostat.Connect(ctx, api, options(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	return fn(ctx, t)
}

// describeError renders err as a sentence for the terminal
func describeError(err error) string {
	msg := []rune(err.Error())
	if len(msg) > 0 {
		msg[0] = unicode.ToUpper(msg[0])
	}
	return string(msg)
}
