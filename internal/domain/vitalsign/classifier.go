// Package vitalsign classifies vital-sign readings against fixed physiological
// ranges. It has no dependencies outside the standard library and never
// returns an error for malformed input: bad values simply yield no verdict.
package vitalsign

import (
	"math"
	"strconv"
	"strings"
)

// Type identifies the measured parameter. Wire values are stable.
type Type string

const (
	BP   Type = "BP"
	HR   Type = "HR"
	SPO2 Type = "SPO2"
	TEMP Type = "TEMP"
)

// Types lists every known type in snapshot order.
var Types = []Type{BP, HR, SPO2, TEMP}

// ParseType accepts the wire value in any letter case.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case BP, HR, SPO2, TEMP:
		return t, true
	}
	return "", false
}

// Unit returns the canonical unit for the type, or "" when unknown.
func (t Type) Unit() string {
	switch t {
	case BP:
		return "mmHg"
	case HR:
		return "bpm"
	case SPO2:
		return "%"
	case TEMP:
		return "°C"
	}
	return ""
}

// Verdict is the outcome of classifying one reading.
type Verdict int

const (
	// NoVerdict means the value was missing, malformed or of an unknown type.
	NoVerdict Verdict = iota
	Normal
	Critical
)

func (v Verdict) String() string {
	switch v {
	case Normal:
		return "normal"
	case Critical:
		return "critical"
	}
	return "none"
}

// Range is an inclusive normal interval.
type Range struct {
	Min float64
	Max float64
}

func (r Range) contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

var (
	SystolicRange  = Range{Min: 90, Max: 180}
	DiastolicRange = Range{Min: 60, Max: 120}
	PulseRange     = Range{Min: 50, Max: 120}
	SpO2Range      = Range{Min: 90, Max: math.Inf(1)}
	TempRange      = Range{Min: 35.0, Max: 39.0}
)

// Classify evaluates a raw reading of the given type.
func Classify(t Type, raw string) Verdict {
	switch t {
	case BP:
		sys, dia, ok := ParseBP(raw)
		if !ok {
			return NoVerdict
		}
		if !SystolicRange.contains(float64(sys)) || !DiastolicRange.contains(float64(dia)) {
			return Critical
		}
		return Normal
	case HR:
		return classifyNumeric(raw, parseInteger, PulseRange)
	case SPO2:
		return classifyNumeric(raw, parseInteger, SpO2Range)
	case TEMP:
		return classifyNumeric(raw, parseDecimal, TempRange)
	}
	return NoVerdict
}

// IsCritical reports whether the reading classifies as Critical.
func IsCritical(t Type, raw string) bool {
	return Classify(t, raw) == Critical
}

func classifyNumeric(raw string, parse func(string) (float64, bool), r Range) Verdict {
	v, ok := parse(raw)
	if !ok {
		return NoVerdict
	}
	if r.contains(v) {
		return Normal
	}
	return Critical
}

// ParseBP splits "systolic/diastolic". Anything other than exactly two
// integer parts is reported as not ok.
func ParseBP(raw string) (systolic, diastolic int, ok bool) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	sys, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	dia, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return sys, dia, true
}

// parseInteger accepts optionally signed base-10 integers only.
func parseInteger(raw string) (float64, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return float64(n), true
}

// parseDecimal accepts plain decimal notation. Exponents, hex floats,
// NaN and Inf are rejected.
func parseDecimal(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
		case (r == '-' || r == '+') && i == 0:
		default:
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// MaxValueLen is the longest reading text the vitals table stores.
const MaxValueLen = 20

// ValidValue reports whether raw has the format required by t: BP is
// "sys/dia" with both parts integers, HR and SPO2 are integers and TEMP is
// a plain decimal.
func ValidValue(t Type, raw string) bool {
	if len(strings.TrimSpace(raw)) > MaxValueLen {
		return false
	}
	var ok bool
	switch t {
	case BP:
		_, _, ok = ParseBP(raw)
	case HR, SPO2:
		_, ok = parseInteger(raw)
	case TEMP:
		_, ok = parseDecimal(raw)
	}
	return ok
}
