package temperature

import (
	"fmt"
	"strconv"
	"strings"

	oaerrors "github.com/go-openapi/errors"
	"github.com/go-openapi/validate"
)

// Unit is the temperature scale used for user input and output.  Values
// exchanged with the backend are always Celsius.
type Unit int

const (
	Celsius Unit = iota
	Fahrenheit
)

// Setpoint bounds, inclusive, in the active unit
const (
	MinSetpoint = 15.0
	MaxSetpoint = 35.0
)

func (u Unit) String() string {
	switch u {
	case Fahrenheit:
		return "F"
	default:
		return "C"
	}
}

// In converts a value expressed in u to Celsius
func (u Unit) In(v float64) float64 {
	if u == Fahrenheit {
		return (v - 32.0) / 1.8
	}
	return v
}

// Out converts a Celsius value to u
func (u Unit) Out(c float64) float64 {
	if u == Fahrenheit {
		return c*1.8 + 32.0
	}
	return c
}

// Validate parses a requested setpoint and checks it lies within
// [MinSetpoint, MaxSetpoint].  The check is done before unit conversion.
func Validate(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, oaerrors.InvalidType("temperature", "argument", "number", s)
	}

	var errs []error
	if verr := validate.Minimum("temperature", "argument", v, MinSetpoint, false); verr != nil {
		errs = append(errs, verr)
	}
	if verr := validate.Maximum("temperature", "argument", v, MaxSetpoint, false); verr != nil {
		errs = append(errs, verr)
	}
	if len(errs) > 0 {
		return 0, oaerrors.CompositeValidationError(errs...)
	}

	return v, nil
}

// Format renders a Celsius value in unit u with one decimal place
func Format(u Unit, c float64) string {
	return fmt.Sprintf("%0.1f°", u.Out(c))
}
