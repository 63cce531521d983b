package thermostat

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"

	"github.com/jake-scott/nestctl/internal/pkg/nestapi"
	"github.com/jake-scott/nestctl/internal/pkg/temperature"
)

const keyWidth = 32

// mergedFields combines shared, structure and device fields for one
// device.  The structure's name is left out so the device name survives.
func mergedFields(doc *nestapi.StatusDocument, id nestapi.DeviceIdentity) nestapi.Fields {
	all := nestapi.Fields{}

	for k, v := range doc.Shared[id.Serial] {
		all[k] = v
	}
	for k, v := range doc.Structure[id.StructureID] {
		if k == "name" {
			continue
		}
		all[k] = v
	}
	for k, v := range doc.Device[id.Serial] {
		all[k] = v
	}

	return all
}

func sortedKeys(f nestapi.Fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// one decimal place, as the thermostat displays it
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatLine(unit temperature.Unit, key string, value interface{}) string {
	pad := keyWidth - len(key)
	if pad < 0 {
		pad = 0
	}
	return key + strings.Repeat(".", pad) + ": " + formatValue(unit, key, value)
}

func formatValue(unit temperature.Unit, key string, value interface{}) string {
	switch {
	case strings.Contains(key, "temp"):
		if v, ok := value.(float64); ok && unit == temperature.Fahrenheit {
			return fmt.Sprintf("%s (%s F)", swag.FormatFloat64(v), swag.FormatFloat64(roundTenth(unit.Out(v))))
		}

	case strings.Contains(key, "timestamp") || key == "creation_time":
		if v, ok := value.(float64); ok {
			return formatTimestamp(v)
		}

	case key == "mac_address":
		if s, ok := value.(string); ok && len(s) == 12 {
			return formatMAC(s)
		}
	}

	return formatScalar(value)
}

// Timestamps are seconds or milliseconds since the epoch
func formatTimestamp(v float64) string {
	if v > 0xffffffff {
		v /= 1000
	}

	sec, frac := math.Modf(v)
	t := time.Unix(int64(sec), int64(frac*float64(time.Second)))
	return strfmt.DateTime(t).String()
}

func formatMAC(s string) string {
	parts := make([]string, 0, 6)
	for i := 0; i < len(s); i += 2 {
		parts = append(parts, s[i:i+2])
	}
	return strings.Join(parts, ":")
}

func formatScalar(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return swag.FormatFloat64(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
