// Package stream provides the websocket client and envelope types for a
// room's live transcription connection. Control and text messages are JSON
// text frames discriminated by "type"; audio goes as binary frames.
package stream

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Outbound message types.
const (
	TypeRequestSpeaker     = "request_speaker"
	TypeReleaseSpeaker     = "release_speaker"
	TypeAudioData          = "audio_data"
	TypeTranscriptionFinal = "transcription_final"
)

// Inbound message types.
const (
	TypeRoomJoined        = "room_joined"
	TypeTranscription     = "transcription"
	TypeSpeakerGranted    = "speaker_granted"
	TypeSpeakerDenied     = "speaker_denied"
	TypeSpeakerReleased   = "speaker_released"
	TypeSpeakerChanged    = "speaker_changed"
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
	TypeRoomClosing       = "room_closing"
	TypeError             = "error"
)

// Envelope is the one message shape used in both directions.
type Envelope struct {
	Type               string `json:"type"`
	Text               string `json:"text,omitempty"`
	SpeakerID          string `json:"speaker_id,omitempty"`
	SpeakerName        string `json:"speaker_name,omitempty"`
	TurnID             string `json:"turn_id,omitempty"`
	ParticipantCount   *int   `json:"participant_count,omitempty"`
	CurrentSpeaker     string `json:"current_speaker,omitempty"`
	CurrentSpeakerName string `json:"current_speaker_name,omitempty"`
	Message            string `json:"message,omitempty"`
	Audio              string `json:"audio,omitempty"`
	CreatedAt          string `json:"created_at,omitempty"`
}

// RequestSpeaker asks the backend for the floor.
func RequestSpeaker() Envelope { return Envelope{Type: TypeRequestSpeaker} }

// ReleaseSpeaker gives the floor back.
func ReleaseSpeaker() Envelope { return Envelope{Type: TypeReleaseSpeaker} }

// AudioData wraps one audio slice for backends that want audio inside JSON.
func AudioData(slice []byte) Envelope {
	return Envelope{Type: TypeAudioData, Audio: base64.StdEncoding.EncodeToString(slice)}
}

// Decode parses one JSON text frame.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope has no type")
	}
	return env, nil
}

// AudioBytes decodes the base64 audio payload of an audio_data envelope.
func (e Envelope) AudioBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(e.Audio)
}

// Count returns the participant count, or -1 when the message has none.
func (e Envelope) Count() int {
	if e.ParticipantCount == nil {
		return -1
	}
	return *e.ParticipantCount
}

// IntPtr returns a pointer to n. Convenience for building envelopes.
func IntPtr(n int) *int { return &n }
