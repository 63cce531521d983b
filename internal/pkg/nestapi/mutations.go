package nestapi

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// MutationContext selects the resource a mutation is sent to
type MutationContext int

const (
	// user-visible thermostat settings, addressed by serial
	Shared MutationContext = iota
	// hardware settings, addressed by serial
	Device
	// home settings, addressed by structure ID
	Structure
)

func (m MutationContext) String() string {
	switch m {
	case Shared:
		return "shared"
	case Device:
		return "device"
	case Structure:
		return "structure"
	}

	return fmt.Sprintf("unknown(%d)", int(m))
}

type FanMode string

const (
	FanOn   FanMode = "on"
	FanAuto FanMode = "auto"
)

var FanModes = []string{string(FanOn), string(FanAuto)}

type ThermostatMode string

const (
	ModeHeat  ThermostatMode = "heat"
	ModeCool  ThermostatMode = "cool"
	ModeRange ThermostatMode = "range"
)

var ThermostatModes = []string{string(ModeHeat), string(ModeCool), string(ModeRange)}

// Mutation is a partial state update and the context it applies to
type Mutation struct {
	Context MutationContext
	Payload interface{}
}

// ResourceID returns the ID the mutation is addressed to
func (m Mutation) ResourceID(id DeviceIdentity) string {
	if m.Context == Structure {
		return id.StructureID
	}
	return id.Serial
}

func (m Mutation) Body() ([]byte, error) {
	return json.Marshal(m.Payload)
}

type targetTemperaturePayload struct {
	TargetChangePending bool    `json:"target_change_pending"`
	TargetTemperature   float64 `json:"target_temperature"`
}

type fanModePayload struct {
	FanMode FanMode `json:"fan_mode"`
}

type thermostatModePayload struct {
	TargetTemperatureType ThermostatMode `json:"target_temperature_type"`
}

type awayPayload struct {
	AwayTimestamp float64 `json:"away_timestamp"`
	Away          bool    `json:"away"`
	AwaySetter    int     `json:"away_setter"`
}

type autoAwayPayload struct {
	AutoAwayEnable bool `json:"auto_away_enable"`
}

// TemperatureMutation sets the target temperature, in Celsius rounded to
// one decimal place
func TemperatureMutation(celsius float64) Mutation {
	return Mutation{
		Context: Shared,
		Payload: targetTemperaturePayload{
			TargetChangePending: true,
			TargetTemperature:   math.Round(celsius*10) / 10,
		},
	}
}

func FanMutation(mode FanMode) Mutation {
	return Mutation{
		Context: Device,
		Payload: fanModePayload{FanMode: mode},
	}
}

func ModeMutation(mode ThermostatMode) Mutation {
	return Mutation{
		Context: Shared,
		Payload: thermostatModePayload{TargetTemperatureType: mode},
	}
}

// AwayMutation marks the structure away (or home) as of now
func AwayMutation(away bool, now time.Time) Mutation {
	return Mutation{
		Context: Structure,
		Payload: awayPayload{
			AwayTimestamp: float64(now.UnixNano()) / float64(time.Second),
			Away:          away,
			AwaySetter:    0,
		},
	}
}

func AutoAwayMutation(enabled bool) Mutation {
	return Mutation{
		Context: Device,
		Payload: autoAwayPayload{AutoAwayEnable: enabled},
	}
}
