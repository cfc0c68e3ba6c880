package stream

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(RequestSpeaker())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"type":"request_speaker"}` {
		t.Errorf("request_speaker = %s", data)
	}

	data, _ = json.Marshal(ReleaseSpeaker())
	if string(data) != `{"type":"release_speaker"}` {
		t.Errorf("release_speaker = %s", data)
	}
}

func TestDecodeRoomJoined(t *testing.T) {
	env, err := Decode([]byte(`{"type":"room_joined","participant_count":3,"current_speaker":"u2","current_speaker_name":"Lee"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Count() != 3 {
		t.Errorf("count = %d, want 3", env.Count())
	}
	if env.CurrentSpeaker != "u2" || env.CurrentSpeakerName != "Lee" {
		t.Errorf("speaker = %q/%q", env.CurrentSpeaker, env.CurrentSpeakerName)
	}
}

func TestDecodeNullSpeaker(t *testing.T) {
	env, err := Decode([]byte(`{"type":"room_joined","participant_count":1,"current_speaker":null}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.CurrentSpeaker != "" {
		t.Errorf("current_speaker = %q, want empty", env.CurrentSpeaker)
	}
}

func TestDecodeRejectsUntyped(t *testing.T) {
	if _, err := Decode([]byte(`{"text":"hi"}`)); err == nil {
		t.Error("expected error for envelope without type")
	}
	if _, err := Decode([]byte(`{`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestCountAbsent(t *testing.T) {
	if got := (Envelope{Type: TypeTranscription}).Count(); got != -1 {
		t.Errorf("count = %d, want -1", got)
	}
	if got := (Envelope{ParticipantCount: IntPtr(0)}).Count(); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
}
