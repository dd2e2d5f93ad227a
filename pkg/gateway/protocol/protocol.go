package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message types on the wire. Text frames only; every message is a JSON
// object with a "type" discriminator.
const (
	TypeWaveform = "waveform"
	TypePong     = "pong"
	TypeConfig   = "config"
	TypePing     = "ping"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

// ClientConfig carries a runtime reconfiguration request. UpdateIntervalMS
// is milliseconds on the wire.
type ClientConfig struct {
	Type string           `json:"type"`
	Data ClientConfigData `json:"data"`
}

type ClientConfigData struct {
	UpdateIntervalMS int `json:"updateInterval"`
}

type ClientPing struct {
	Type string `json:"type"`
}

// ClientUnknown is returned for well-formed frames of a type the server
// does not handle. Callers ignore these silently.
type ClientUnknown struct {
	Type string
}

// DecodeClientMessage parses one inbound text frame. Malformed frames yield
// a *DecodeError; unknown-but-well-formed types yield ClientUnknown so the
// caller can drop them without logging an error.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case TypeConfig:
		var msg ClientConfig
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid config frame", "")
		}
		if msg.Data.UpdateIntervalMS <= 0 {
			return nil, badRequest("config.data.updateInterval must be > 0", "data.updateInterval")
		}
		return msg, nil
	case TypePing:
		return ClientPing{Type: TypePing}, nil
	default:
		return ClientUnknown{Type: typ}, nil
	}
}

// WaveformData is the payload of a waveform broadcast. Connected is only
// set on the initial message after registration; Timestamp (float unix
// seconds) only on periodic broadcasts.
type WaveformData struct {
	Amplitude float64 `json:"amplitude"`
	Phase     float64 `json:"phase"`
	Connected bool    `json:"connected,omitempty"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

type ServerWaveform struct {
	Type string       `json:"type"`
	Data WaveformData `json:"data"`
}

type ServerPong struct {
	Type string `json:"type"`
}

// InitialWaveform is the message sent to a client immediately after
// registration, before any periodic broadcast.
func InitialWaveform() ServerWaveform {
	return ServerWaveform{
		Type: TypeWaveform,
		Data: WaveformData{Amplitude: 0.0, Phase: 0.0, Connected: true},
	}
}

// Waveform builds a periodic broadcast message.
func Waveform(amplitude, phase, timestamp float64) ServerWaveform {
	return ServerWaveform{
		Type: TypeWaveform,
		Data: WaveformData{Amplitude: amplitude, Phase: phase, Timestamp: timestamp},
	}
}

func Pong() ServerPong {
	return ServerPong{Type: TypePong}
}
