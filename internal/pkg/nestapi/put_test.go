package nestapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIdentity = DeviceIdentity{
	StructureID:   "struct1",
	StructureName: "Home",
	Serial:        "AAA",
	Name:          "Hallway",
}

func TestMutationPayloads(t *testing.T) {
	now := time.Unix(1700000000, 500000000)

	tests := []struct {
		name    string
		m       Mutation
		context MutationContext
		body    string
	}{
		{"temperature", TemperatureMutation(23.5), Shared, `{"target_change_pending":true,"target_temperature":23.5}`},
		{"temperature rounded", TemperatureMutation(22.2222), Shared, `{"target_change_pending":true,"target_temperature":22.2}`},
		{"fan on", FanMutation(FanOn), Device, `{"fan_mode":"on"}`},
		{"fan auto", FanMutation(FanAuto), Device, `{"fan_mode":"auto"}`},
		{"mode", ModeMutation(ModeRange), Shared, `{"target_temperature_type":"range"}`},
		{"away", AwayMutation(true, now), Structure, `{"away_timestamp":1700000000.5,"away":true,"away_setter":0}`},
		{"home", AwayMutation(false, now), Structure, `{"away_timestamp":1700000000.5,"away":false,"away_setter":0}`},
		{"auto-away on", AutoAwayMutation(true), Device, `{"auto_away_enable":true}`},
		{"auto-away off", AutoAwayMutation(false), Device, `{"auto_away_enable":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := tt.m.Body()
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(body))
			assert.Equal(t, tt.context, tt.m.Context)
		})
	}
}

func TestMutationResourceID(t *testing.T) {
	assert.Equal(t, "AAA", TemperatureMutation(20).ResourceID(testIdentity))
	assert.Equal(t, "AAA", FanMutation(FanOn).ResourceID(testIdentity))
	assert.Equal(t, "AAA", AutoAwayMutation(true).ResourceID(testIdentity))
	assert.Equal(t, "struct1", AwayMutation(true, time.Now()).ResourceID(testIdentity))
}

func TestMutationContextString(t *testing.T) {
	assert.Equal(t, "shared", Shared.String())
	assert.Equal(t, "device", Device.String())
	assert.Equal(t, "structure", Structure.String())
}

func TestApplyTemperature(t *testing.T) {
	f := newFakeNest(t)

	err := newTestClient(f, &memStore{}).Apply(context.Background(), f.session(), testIdentity, TemperatureMutation(23.5))
	require.NoError(t, err)

	require.Len(t, f.puts, 1)
	p := f.puts[0]
	assert.Equal(t, "shared", p.Context)
	assert.Equal(t, "AAA", p.ID)
	assert.Equal(t, `{"target_change_pending":true,"target_temperature":23.5}`, p.Body)
	assert.Equal(t, "Basic tok-123", p.Header.Get("Authorization"))
	assert.Equal(t, "42", p.Header.Get("X-nl-user-id"))
	assert.Equal(t, "Nest/1.1.0.10 CFNetwork/548.0.4", p.Header.Get("User-Agent"))
}

func TestApplyAwayTargetsStructure(t *testing.T) {
	f := newFakeNest(t)

	err := newTestClient(f, &memStore{}).Apply(context.Background(), f.session(), testIdentity, AwayMutation(true, time.Now()))
	require.NoError(t, err)

	require.Len(t, f.puts, 1)
	assert.Equal(t, "structure", f.puts[0].Context)
	assert.Equal(t, "struct1", f.puts[0].ID)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(f.puts[0].Body), &body))
	assert.Equal(t, true, body["away"])
	assert.Equal(t, 0.0, body["away_setter"])
}

func TestPutRejectedIsNotRetried(t *testing.T) {
	f := newFakeNest(t)
	f.putStatus = http.StatusInternalServerError

	err := newTestClient(f, &memStore{}).Put(context.Background(), f.session(), Device, "AAA", []byte(`{"fan_mode":"on"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPut)
	assert.Len(t, f.puts, 1)
}

func TestPutUnreachable(t *testing.T) {
	f := newFakeNest(t)
	flaky := &flakyTransport{failures: 10}

	err := newTestClient(f, &memStore{}).WithTransport(flaky).
		Put(context.Background(), f.session(), Device, "AAA", []byte(`{}`))
	assert.ErrorIs(t, err, ErrPut)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, 1, flaky.calls)
}

func TestPutNeedsResourceID(t *testing.T) {
	f := newFakeNest(t)

	err := newTestClient(f, &memStore{}).Apply(context.Background(), f.session(), DeviceIdentity{Serial: "AAA"}, AwayMutation(true, time.Now()))
	assert.ErrorIs(t, err, ErrPut)
	assert.Empty(t, f.puts)
}
