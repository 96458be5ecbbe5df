package vitalsign

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is one snapshot component kept as its raw text. It decodes from a
// JSON string or number and encodes numeric text back as a JSON number.
type Value string

func (v *Value) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*v = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*v = Value(strings.TrimSpace(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("vital value must be a string or number: %w", err)
	}
	*v = Value(n.String())
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	s := string(v)
	if _, err := strconv.ParseFloat(s, 64); err == nil && json.Valid([]byte(s)) {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

// Present reports whether the component carries any text.
func (v Value) Present() bool {
	return strings.TrimSpace(string(v)) != ""
}

// Snapshot is the structured vital-signs block carried by an emergency.
type Snapshot struct {
	BP    Value `json:"pa,omitempty"`
	Pulse Value `json:"pulso,omitempty"`
	SpO2  Value `json:"spo2,omitempty"`
	Temp  Value `json:"temp,omitempty"`
}

// Reading is a snapshot component resolved to its vital type.
type Reading struct {
	Type  Type
	Value string
	Key   string
}

// Readings returns the present components in pa, pulso, spo2, temp order.
func (s Snapshot) Readings() []Reading {
	fields := []struct {
		key string
		t   Type
		v   Value
	}{
		{"pa", BP, s.BP},
		{"pulso", HR, s.Pulse},
		{"spo2", SPO2, s.SpO2},
		{"temp", TEMP, s.Temp},
	}
	var out []Reading
	for _, f := range fields {
		if !f.v.Present() {
			continue
		}
		out = append(out, Reading{Type: f.t, Value: strings.TrimSpace(string(f.v)), Key: f.key})
	}
	return out
}

// IsEmpty reports whether no component is present.
func (s Snapshot) IsEmpty() bool {
	return len(s.Readings()) == 0
}

// Invalid returns the wire key of the first present component whose format
// does not match its type, or "" when every component is well formed.
func (s Snapshot) Invalid() string {
	for _, r := range s.Readings() {
		if !ValidValue(r.Type, r.Value) {
			return r.Key
		}
	}
	return ""
}

// IsAnyCritical reports whether any present component is critical. Missing
// or malformed components are skipped.
func IsAnyCritical(s Snapshot) bool {
	for _, r := range s.Readings() {
		if IsCritical(r.Type, r.Value) {
			return true
		}
	}
	return false
}

// ParseSnapshot decodes a stored JSON snapshot. Unknown keys are ignored and
// undecodable input yields an empty snapshot.
func ParseSnapshot(raw []byte) Snapshot {
	var s Snapshot
	if len(raw) == 0 {
		return s
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}
	}
	return s
}
