package thermostat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jake-scott/nestctl/internal/pkg/logging"
	"github.com/jake-scott/nestctl/internal/pkg/nestapi"
	"github.com/jake-scott/nestctl/internal/pkg/session"
	"github.com/jake-scott/nestctl/internal/pkg/temperature"
)

// Options select the account, device and unit for one invocation
type Options struct {
	Credentials nestapi.Credentials
	Serial      string
	Index       int
	Unit        temperature.Unit
}

// Thermostat is one authenticated view of one device.  Everything a
// command needs is held here and nowhere else.
type Thermostat struct {
	api      nestapi.NestAPI
	session  *session.Session
	status   *nestapi.StatusDocument
	identity nestapi.DeviceIdentity
	unit     temperature.Unit
	out      io.Writer
	now      func() time.Time
}

// Connect authenticates, fetches the status once and selects the device
func Connect(ctx context.Context, api nestapi.NestAPI, opts Options, out io.Writer) (*Thermostat, error) {
	sess, err := nestapi.Authenticate(ctx, api, opts.Credentials)
	if err != nil {
		return nil, err
	}

	status, err := api.FetchStatus(ctx, sess)
	if err != nil {
		return nil, err
	}

	id, err := nestapi.Resolve(status, opts.Serial, opts.Index)
	if err != nil {
		return nil, errors.Wrap(err, "selecting device")
	}

	logging.Logger(ctx).Debugf("using device %s (%s) in structure %s (%s)", id.Serial, id.Name, id.StructureID, id.StructureName)

	return &Thermostat{
		api:      api,
		session:  sess,
		status:   status,
		identity: id,
		unit:     opts.Unit,
		out:      out,
		now:      time.Now,
	}, nil
}

func (t *Thermostat) Identity() nestapi.DeviceIdentity {
	return t.identity
}

func (t *Thermostat) name() string {
	if t.identity.Name != "" {
		return t.identity.Name
	}
	return t.identity.Serial
}

func (t *Thermostat) structureName() string {
	if t.identity.StructureName != "" {
		return t.identity.StructureName
	}
	return t.identity.StructureID
}

func (t *Thermostat) shared() nestapi.Fields {
	return t.status.Shared[t.identity.Serial]
}

func (t *Thermostat) device() nestapi.Fields {
	return t.status.Device[t.identity.Serial]
}

func (t *Thermostat) structure() nestapi.Fields {
	return t.status.Structure[t.identity.StructureID]
}

func missingField(context, key string) error {
	return errors.Wrapf(nestapi.ErrProtocol, "%s status has no %s", context, key)
}

func (t *Thermostat) apply(ctx context.Context, m nestapi.Mutation) error {
	return t.api.Apply(ctx, t.session, t.identity, m)
}

// ShowTarget prints the target temperature
func (t *Thermostat) ShowTarget() error {
	c, ok := t.shared().Float("target_temperature")
	if !ok {
		return missingField("shared", "target_temperature")
	}

	fmt.Fprintf(t.out, "%s is set to %s\n", t.name(), temperature.Format(t.unit, c))
	return nil
}

// ShowCurrent prints the measured temperature
func (t *Thermostat) ShowCurrent() error {
	c, ok := t.shared().Float("current_temperature")
	if !ok {
		return missingField("shared", "current_temperature")
	}

	fmt.Fprintf(t.out, "%s is currently %s\n", t.name(), temperature.Format(t.unit, c))
	return nil
}

// SetTemperature sets the target temperature, given in the active unit
func (t *Thermostat) SetTemperature(ctx context.Context, v float64) error {
	c := t.unit.In(v)
	if err := t.apply(ctx, nestapi.TemperatureMutation(c)); err != nil {
		return err
	}

	fmt.Fprintf(t.out, "%s is set to %s\n", t.name(), temperature.Format(t.unit, c))
	return nil
}

func (t *Thermostat) SetFan(ctx context.Context, mode nestapi.FanMode) error {
	if err := t.apply(ctx, nestapi.FanMutation(mode)); err != nil {
		return err
	}

	fmt.Fprintf(t.out, "%s fan set to %s\n", t.name(), mode)
	return nil
}

func (t *Thermostat) SetMode(ctx context.Context, mode nestapi.ThermostatMode) error {
	if err := t.apply(ctx, nestapi.ModeMutation(mode)); err != nil {
		return err
	}

	fmt.Fprintf(t.out, "%s mode set to %s\n", t.name(), mode)
	return nil
}

func awayWord(away bool) string {
	if away {
		return "away"
	}
	return "home"
}

func onOffWord(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// SetAway marks the structure away or home
func (t *Thermostat) SetAway(ctx context.Context, away bool) error {
	if err := t.apply(ctx, nestapi.AwayMutation(away, t.now())); err != nil {
		return err
	}

	fmt.Fprintf(t.out, "%s is set to %s\n", t.structureName(), awayWord(away))
	return nil
}

func (t *Thermostat) SetAutoAway(ctx context.Context, enabled bool) error {
	if err := t.apply(ctx, nestapi.AutoAwayMutation(enabled)); err != nil {
		return err
	}

	fmt.Fprintf(t.out, "%s auto-away is %s\n", t.name(), onOffWord(enabled))
	return nil
}

// Until prints when the target temperature will be reached
func (t *Thermostat) Until() error {
	ttt, ok := t.device().Float("time_to_target")
	if !ok {
		return missingField("device", "time_to_target")
	}

	if ttt == 0 {
		fmt.Fprintf(t.out, "%s has reached its target temperature\n", t.name())
		return nil
	}

	at := strings.ToLower(time.Unix(int64(ttt), 0).Format("3:04PM"))
	fmt.Fprintf(t.out, "%s will reach its target temperature at %s\n", t.name(), at)
	return nil
}

func (t *Thermostat) Humidity() error {
	h, ok := t.device().Float("current_humidity")
	if !ok {
		return missingField("device", "current_humidity")
	}

	fmt.Fprintf(t.out, "The relative humidity is currently %s%%\n", formatScalar(h))
	return nil
}

func (t *Thermostat) Leaf() error {
	leaf, ok := t.device().Bool("leaf")
	if !ok {
		return missingField("device", "leaf")
	}

	fmt.Fprintf(t.out, "%s leaf is %s\n", t.name(), onOffWord(leaf))
	return nil
}

// State prints whether the structure is away or home
func (t *Thermostat) State() error {
	away, ok := t.structure().Bool("away")
	if !ok {
		return missingField("structure", "away")
	}

	fmt.Fprintf(t.out, "%s is set to %s\n", t.structureName(), awayWord(away))
	return nil
}

// Show prints every field known for the device
func (t *Thermostat) Show(format string) error {
	all := mergedFields(t.status, t.identity)

	switch format {
	case "json":
		enc := json.NewEncoder(t.out)
		enc.SetIndent("", "    ")
		return errors.Wrap(enc.Encode(all), "encoding status as JSON")

	case "yaml":
		enc := yaml.NewEncoder(t.out)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]interface{}(all)); err != nil {
			return errors.Wrap(err, "encoding status as YAML")
		}
		return enc.Close()
	}

	for _, k := range sortedKeys(all) {
		fmt.Fprintln(t.out, formatLine(t.unit, k, all[k]))
	}
	return nil
}

// List prints the devices of the selected structure with their index
func (t *Thermostat) List() error {
	serials, err := t.status.Devices(t.identity.StructureID)
	if err != nil {
		return err
	}

	fmt.Fprintf(t.out, "%s:\n", t.structureName())
	for i, serial := range serials {
		marker := " "
		if serial == t.identity.Serial {
			marker = "*"
		}

		name, _ := t.status.Shared[serial].Text("name")
		fmt.Fprintf(t.out, "%s %d  %-16s %s\n", marker, i, serial, name)
	}

	return nil
}
