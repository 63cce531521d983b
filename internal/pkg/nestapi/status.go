package nestapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/jake-scott/nestctl/internal/pkg/logging"
	"github.com/jake-scott/nestctl/internal/pkg/session"
)

// Fields of one shared, device or structure object
type Fields map[string]interface{}

func (f Fields) Float(key string) (float64, bool) {
	v, ok := f[key].(float64)
	return v, ok
}

func (f Fields) Bool(key string) (bool, bool) {
	v, ok := f[key].(bool)
	return v, ok
}

func (f Fields) Text(key string) (string, bool) {
	v, ok := f[key].(string)
	return v, ok
}

// StatusDocument is the status of everything visible to the user, keyed
// by context and then by serial (shared, device) or structure ID
type StatusDocument struct {
	Structure map[string]Fields `json:"structure"`
	Shared    map[string]Fields `json:"shared"`
	Device    map[string]Fields `json:"device"`
}

// DeviceIdentity is the device selected for this invocation
type DeviceIdentity struct {
	StructureID   string
	StructureName string
	Serial        string
	Name          string
}

var requiredStatusKeys = []string{"structure", "shared", "device"}

// ParseStatus decodes a status document
func ParseStatus(data []byte) (*StatusDocument, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, newError(ErrProtocol, errors.Wrap(err, "decoding status"))
	}

	for _, key := range requiredStatusKeys {
		if _, ok := top[key]; !ok {
			return nil, newError(ErrProtocol, errors.Errorf("status has no %q section", key))
		}
	}

	var doc StatusDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, newError(ErrProtocol, errors.Wrap(err, "decoding status sections"))
	}

	return &doc, nil
}

func (c *Live) getUser(ctx context.Context, sess *session.Session) ([]byte, error) {
	ctx, cancel := c.makeContext(ctx)
	defer cancel()

	u := strings.TrimRight(sess.TransportURL, "/") + "/v2/mobile/user." + sess.UserID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, newError(ErrProtocol, errors.Wrap(err, "building status request"))
	}

	resp, err := c.sessionClient(sess).Do(req)
	if err != nil {
		return nil, newError(ErrNetwork, err)
	}
	defer drain(resp)

	if err := checkResponse(ctx, resp, ErrProtocol); err != nil {
		return nil, err
	}

	return readJSONBody(resp)
}

// FetchStatus retrieves the status document for the session's user
func (c *Live) FetchStatus(ctx context.Context, sess *session.Session) (*StatusDocument, error) {
	data, err := c.getUser(ctx, sess)
	if err != nil {
		return nil, errors.Wrap(err, "fetching status")
	}

	return ParseStatus(data)
}

// StructureIDs returns the structure IDs in ascending order
func (d *StatusDocument) StructureIDs() []string {
	ids := make([]string, 0, len(d.Structure))
	for id := range d.Structure {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// Devices returns the serials listed by a structure, in order
func (d *StatusDocument) Devices(structureID string) ([]string, error) {
	st, ok := d.Structure[structureID]
	if !ok {
		return nil, newError(ErrDeviceNotFound, errors.Errorf("no structure %s", structureID))
	}

	raw, ok := st["devices"].([]interface{})
	if !ok {
		return nil, newError(ErrProtocol, errors.Errorf("structure %s has no device list", structureID))
	}

	serials := make([]string, 0, len(raw))
	for _, item := range raw {
		id, ok := item.(string)
		if !ok {
			return nil, newError(ErrProtocol, errors.Errorf("structure %s has a non-string device id %v", structureID, item))
		}
		serials = append(serials, serialOf(id))
	}

	return serials, nil
}

// device IDs in a structure look like "<prefix>.<serial>"
func serialOf(deviceID string) string {
	if i := strings.Index(deviceID, "."); i >= 0 {
		return deviceID[i+1:]
	}
	return deviceID
}

// firstStructure picks the structure to use.  Only the first structure is
// ever used; with several, the lowest ID wins.
func (d *StatusDocument) firstStructure() (string, error) {
	ids := d.StructureIDs()
	if len(ids) == 0 {
		return "", newError(ErrDeviceNotFound, errors.New("status lists no structures"))
	}

	if len(ids) > 1 {
		logging.Logger(nil).Warnf("%d structures found, using %s", len(ids), ids[0])
	}

	return ids[0], nil
}

// structureOf returns the structure whose device list contains serial
func (d *StatusDocument) structureOf(serial string) (string, bool) {
	for _, id := range d.StructureIDs() {
		serials, err := d.Devices(id)
		if err != nil {
			continue
		}
		for _, s := range serials {
			if s == serial {
				return id, true
			}
		}
	}

	return "", false
}

// Resolve selects the device to operate on.  An explicit serial wins;
// otherwise the device at index in the first structure is used.
func Resolve(doc *StatusDocument, serial string, index int) (DeviceIdentity, error) {
	var id DeviceIdentity

	if serial != "" {
		_, inShared := doc.Shared[serial]
		_, inDevice := doc.Device[serial]
		if !inShared && !inDevice {
			return id, newError(ErrDeviceNotFound, errors.Errorf("no device with serial %s", serial))
		}

		structureID, ok := doc.structureOf(serial)
		if !ok {
			var err error
			if structureID, err = doc.firstStructure(); err != nil {
				return id, err
			}
		}

		id.StructureID = structureID
		id.Serial = serial
	} else {
		structureID, err := doc.firstStructure()
		if err != nil {
			return id, err
		}

		serials, err := doc.Devices(structureID)
		if err != nil {
			return id, err
		}

		if index < 0 || index >= len(serials) {
			return id, newError(ErrIndex, errors.Errorf("index %d, structure %s has %d device(s)", index, structureID, len(serials)))
		}

		id.StructureID = structureID
		id.Serial = serials[index]
	}

	id.StructureName, _ = doc.Structure[id.StructureID].Text("name")
	id.Name, _ = doc.Shared[id.Serial].Text("name")

	return id, nil
}
