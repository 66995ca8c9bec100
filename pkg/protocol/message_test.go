package protocol

import "testing"

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
	}{
		{"state message", TypeState, StateData{State: "Idle", Status: "ready"}},
		{"cycle message", TypeCycle, CycleData{ID: "abc", OK: true, Command: "S 1 0 1 0"}},
		{"nil data", TypePing, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if err != nil {
				t.Fatalf("NewMessage() error = %v", err)
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
			if tt.data == nil && msg.Data != nil {
				t.Error("NewMessage() nil data should stay nil")
			}
		})
	}
}

func TestCycleMessageParse(t *testing.T) {
	msg, err := NewCycleMessage(CycleData{
		ID:      "cycle-1",
		OK:      true,
		Labels:  [4]string{"GoodOlives", "BadOlives", "GoodOlives", UnknownLabel},
		Command: "S 1 0 1 0",
	})
	if err != nil {
		t.Fatalf("NewCycleMessage: %v", err)
	}

	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if parsed.Type != TypeCycle {
		t.Fatalf("type: got %v, want %v", parsed.Type, TypeCycle)
	}

	var data CycleData
	if err := parsed.ParseData(&data); err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if data.Labels[3] != UnknownLabel || data.Command != "S 1 0 1 0" {
		t.Errorf("ParseData: got %+v", data)
	}
}

func TestNewPongMessage(t *testing.T) {
	msg, err := NewPongMessage("p1", 1000, 1025)
	if err != nil {
		t.Fatalf("NewPongMessage: %v", err)
	}
	var pong PongData
	if err := msg.ParseData(&pong); err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if pong.LatencyMs != 25 {
		t.Errorf("LatencyMs: got %d, want 25", pong.LatencyMs)
	}
}

func TestParseMessageInvalid(t *testing.T) {
	if _, err := ParseMessage([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
