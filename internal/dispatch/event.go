package dispatch

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

const (
	// ackSummaryKey holds the text the server wants spoken.
	ackSummaryKey = "jetson_tts_summary"
	// ackWAVKey holds base64 WAV audio rendered by the server.
	ackWAVKey = "jetson_tts_wav_base64"
)

// Event is one detection reported by the detection pipeline.
type Event struct {
	// IsDanger is the hazard verdict.
	IsDanger bool `json:"is_danger"`
	// Summary is the local description of the hazard.
	Summary string `json:"summary"`
	// Confidence is the detector confidence in [0, 1].
	Confidence float64 `json:"confidence"`
	// Metadata is passed through to the server payload.
	Metadata map[string]any `json:"metadata,omitempty"`
	// Ack is the server acknowledgement. Nil means the server send failed.
	Ack *Ack `json:"ack,omitempty"`
}

// Ack is the server acknowledgement of a danger event.
type Ack struct {
	// Response is kept raw: its shape is owned by the server.
	Response json.RawMessage `json:"response,omitempty"`
}

// Payload is the danger event as reported upstream.
type Payload struct {
	EventID    string         `json:"event_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Source     string         `json:"source"`
	IsDanger   bool           `json:"is_danger"`
	Summary    string         `json:"summary"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// response decodes the acknowledgement body, or returns nil when it is not an object.
func (a *Ack) response() map[string]any {
	if a == nil || len(a.Response) == 0 {
		return nil
	}

	var body map[string]any
	if err := json.Unmarshal(a.Response, &body); err != nil {
		return nil
	}

	return body
}

// TTSSummary returns the trimmed text the server wants spoken, or "".
func (a *Ack) TTSSummary() string {
	text, _ := a.response()[ackSummaryKey].(string)
	return strings.TrimSpace(text)
}

// TTSWAV returns the decoded server audio, or nil when absent or undecodable.
func (a *Ack) TTSWAV() []byte {
	encoded, _ := a.response()[ackWAVKey].(string)
	if strings.TrimSpace(encoded) == "" {
		return nil
	}

	return decodeBase64(encoded)
}

// decodeBase64 decodes strictly first. On failure it drops every character
// outside the base64 alphabet and retries, with and without padding.
func decodeBase64(encoded string) []byte {
	if data, err := base64.StdEncoding.DecodeString(encoded); err == nil {
		return data
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/', r == '=':
			return r
		default:
			return -1
		}
	}, encoded)
	if cleaned == "" {
		return nil
	}

	if data, err := base64.StdEncoding.DecodeString(cleaned); err == nil {
		return data
	}

	if data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(cleaned, "=")); err == nil {
		return data
	}

	return nil
}
