package transport

import (
	"encoding/json"
	"testing"
	"time"
)

func TestOptionalTimeAbsentVsNull(t *testing.T) {
	type body struct {
		DateBooked OptionalTime `json:"dateBooked"`
	}

	tests := []struct {
		name      string
		payload   string
		wantSet   bool
		wantValue *time.Time
	}{
		{name: "absent", payload: `{}`, wantSet: false},
		{name: "explicit null", payload: `{"dateBooked": null}`, wantSet: true},
		{name: "empty string treated as null", payload: `{"dateBooked": ""}`, wantSet: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b body
			if err := json.Unmarshal([]byte(tt.payload), &b); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if b.DateBooked.Set != tt.wantSet {
				t.Errorf("Set = %v, want %v", b.DateBooked.Set, tt.wantSet)
			}
			if b.DateBooked.Value != nil {
				t.Errorf("Value = %v, want nil", b.DateBooked.Value)
			}
		})
	}
}

func TestOptionalTimeFormats(t *testing.T) {
	var o OptionalTime
	if err := json.Unmarshal([]byte(`"2026-03-14T10:30:00Z"`), &o); err != nil {
		t.Fatalf("RFC 3339: %v", err)
	}
	if o.Value == nil || !o.Value.Equal(time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("RFC 3339 value = %v", o.Value)
	}

	o = OptionalTime{}
	if err := json.Unmarshal([]byte(`"2026-03-14"`), &o); err != nil {
		t.Fatalf("bare date: %v", err)
	}
	if o.Value == nil || !o.Value.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("bare date value = %v", o.Value)
	}

	o = OptionalTime{}
	if err := json.Unmarshal([]byte(`"not a date"`), &o); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestOptionalStringNullClears(t *testing.T) {
	type body struct {
		TimeBooked OptionalString `json:"timeBooked"`
	}

	var b body
	if err := json.Unmarshal([]byte(`{"timeBooked": null}`), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !b.TimeBooked.Set || b.TimeBooked.Value != nil {
		t.Errorf("got Set=%v Value=%v, want Set=true Value=nil", b.TimeBooked.Set, b.TimeBooked.Value)
	}

	b = body{}
	if err := json.Unmarshal([]byte(`{"timeBooked": "AM"}`), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.TimeBooked.Value == nil || *b.TimeBooked.Value != "AM" {
		t.Errorf("Value = %v, want AM", b.TimeBooked.Value)
	}
}
