package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPortSetColumn(t *testing.T) {
	cases := []struct {
		name string
		set  PortSet
		want string
	}{
		{"single", SinglePort(443), "443"},
		{"list", PortList([]int{22, 80, 443}), "[22,80,443]"},
		{"tag", PortTag("HTTP"), "HTTP"},
		{"na", PortTag("N/A"), "N/A"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.set.Column(); got != tc.want {
				t.Errorf("Column() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParsePortsRoundTrip(t *testing.T) {
	for _, text := range []string{"443", "[22,80,443]", "HTTP", "N/A"} {
		if got := ParsePorts(text).Column(); got != text {
			t.Errorf("ParsePorts(%q).Column() = %q", text, got)
		}
	}
}

func TestParsePortsLegacySpacing(t *testing.T) {
	// The old CSV logger wrote lists with spaces after commas.
	set := ParsePorts("[22, 80, 443]")
	if got := set.Column(); got != "[22,80,443]" {
		t.Errorf("Column() = %q, want normalized list", got)
	}
}

func TestPortSetJSONForms(t *testing.T) {
	cases := []struct {
		set  PortSet
		want string
	}{
		{SinglePort(80), "80"},
		{PortList([]int{1, 2}), "[1,2]"},
		{PortTag("HTTP"), `"HTTP"`},
	}

	for _, tc := range cases {
		raw, err := json.Marshal(tc.set)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(raw) != tc.want {
			t.Errorf("marshal = %s, want %s", raw, tc.want)
		}

		var back PortSet
		if err := json.Unmarshal(raw, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if back.Column() != tc.set.Column() {
			t.Errorf("round trip = %q, want %q", back.Column(), tc.set.Column())
		}
	}
}

func TestPortSetUnmarshalRejectsGarbage(t *testing.T) {
	var set PortSet
	if err := json.Unmarshal([]byte(`{"not":"ports"}`), &set); err == nil {
		t.Error("expected an error for an object form")
	}
}

func TestThreatEventWireShape(t *testing.T) {
	event := ThreatEvent{
		ID:            42,
		Timestamp:     time.Date(2025, 3, 9, 14, 30, 5, 0, time.UTC),
		Kind:          ThreatDDoS,
		SourceIP:      "203.0.113.7",
		DestinationIP: "N/A",
		Ports:         SinglePort(80),
		Meta:          map[string]any{"window_count": 301},
	}

	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if wire["id"] != float64(42) {
		t.Errorf("id = %v", wire["id"])
	}
	if wire["timestamp"] != "2025-03-09 14:30:05" {
		t.Errorf("timestamp = %v", wire["timestamp"])
	}
	if wire["threatType"] != "DDoS" {
		t.Errorf("threatType = %v", wire["threatType"])
	}
	if wire["sourceIP"] != "203.0.113.7" {
		t.Errorf("sourceIP = %v", wire["sourceIP"])
	}
	if wire["destinationIP"] != "N/A" {
		t.Errorf("destinationIP = %v", wire["destinationIP"])
	}
	if wire["ports"] != float64(80) {
		t.Errorf("ports = %v", wire["ports"])
	}
	meta, ok := wire["meta"].(map[string]any)
	if !ok || meta["window_count"] != float64(301) {
		t.Errorf("meta = %v", wire["meta"])
	}
}

func TestThreatEventNilMetaEmitsNull(t *testing.T) {
	event := ThreatEvent{
		Timestamp: time.Now(),
		Kind:      ThreatPortScan,
		SourceIP:  "10.0.0.1",
		Ports:     PortList([]int{22, 80}),
	}

	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wire map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(wire["meta"]) != "null" {
		t.Errorf("meta = %s, want null", wire["meta"])
	}
}
