package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClientMessageConfig(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"config","data":{"updateInterval":33}}`))
	require.NoError(t, err)

	cfg, ok := msg.(ClientConfig)
	require.True(t, ok)
	assert.Equal(t, 33, cfg.Data.UpdateIntervalMS)
}

func TestDecodeClientMessagePing(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"ping"}`))
	require.NoError(t, err)

	_, ok := msg.(ClientPing)
	assert.True(t, ok)
}

func TestDecodeClientMessageUnknownType(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"subscribe","data":{}}`))
	require.NoError(t, err)

	unknown, ok := msg.(ClientUnknown)
	require.True(t, ok)
	assert.Equal(t, "subscribe", unknown.Type)
}

func TestDecodeClientMessageErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "malformed json", data: `{not json`},
		{name: "missing type", data: `{"data":{}}`},
		{name: "blank type", data: `{"type":"  "}`},
		{name: "config without interval", data: `{"type":"config","data":{}}`},
		{name: "config with zero interval", data: `{"type":"config","data":{"updateInterval":0}}`},
		{name: "config with negative interval", data: `{"type":"config","data":{"updateInterval":-5}}`},
		{name: "config with wrong data shape", data: `{"type":"config","data":"fast"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClientMessage([]byte(tt.data))
			require.Error(t, err)

			var decodeErr *DecodeError
			assert.ErrorAs(t, err, &decodeErr)
		})
	}
}

func TestInitialWaveformShape(t *testing.T) {
	data, err := json.Marshal(InitialWaveform())
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"waveform","data":{"amplitude":0,"phase":0,"connected":true}}`, string(data))
}

func TestWaveformShape(t *testing.T) {
	data, err := json.Marshal(Waveform(0.5, 1.4, 1700000000.25))
	require.NoError(t, err)

	var decoded struct {
		Type string `json:"type"`
		Data map[string]float64
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "waveform", decoded.Type)
	assert.Equal(t, 0.5, decoded.Data["amplitude"])
	assert.Equal(t, 1.4, decoded.Data["phase"])
	assert.Equal(t, 1700000000.25, decoded.Data["timestamp"])
	assert.NotContains(t, decoded.Data, "connected")
}

func TestPongShape(t *testing.T) {
	data, err := json.Marshal(Pong())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(data))
}
