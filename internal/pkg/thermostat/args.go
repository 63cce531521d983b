package thermostat

import (
	"github.com/go-openapi/validate"

	"github.com/jake-scott/nestctl/internal/pkg/nestapi"
)

// Argument parsing for the commands that change state.  These run before
// anything touches the network.

var onOff = []string{"on", "off"}

// ShowFormats are the output formats understood by Show
var ShowFormats = []string{"text", "json", "yaml"}

func ParseFanMode(s string) (nestapi.FanMode, error) {
	if err := validate.Enum("fan", "argument", s, nestapi.FanModes); err != nil {
		return "", err
	}
	return nestapi.FanMode(s), nil
}

func ParseThermostatMode(s string) (nestapi.ThermostatMode, error) {
	if err := validate.Enum("mode", "argument", s, nestapi.ThermostatModes); err != nil {
		return "", err
	}
	return nestapi.ThermostatMode(s), nil
}

// ParseOnOff parses the auto-away state
func ParseOnOff(s string) (bool, error) {
	if err := validate.Enum("auto-away", "argument", s, onOff); err != nil {
		return false, err
	}
	return s == "on", nil
}

func ParseShowFormat(s string) (string, error) {
	if err := validate.Enum("format", "flag", s, ShowFormats); err != nil {
		return "", err
	}
	return s, nil
}
