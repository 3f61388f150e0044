package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultDimHours is applied when an export row or API response omits the
// dimming duration. The model pins keep_hours to 3 for the pilot.
const DefaultDimHours = 3

// RawRecoRow is one export row keyed by lower-cased header name.
type RawRecoRow map[string]string

// NormalizeRecoRow converts an export row into a Recommendation.
// Numeric fields coerce leniently (see package doc); the only fatal defect
// is a missing grid_id, which callers skip without failing the whole load.
func NormalizeRecoRow(row RawRecoRow) (Recommendation, error) {
	gridID := strings.TrimSpace(row["grid_id"])
	if gridID == "" {
		return Recommendation{}, ErrEmptyGridID
	}

	existing := parseNumericField(row["existing_lx"])
	recommended := parseNumericField(row["recommended_lx"])

	delta, ok := parseOptionalNumericField(row["delta_percent"])
	if !ok {
		delta = DeriveDeltaPercent(existing, recommended)
	}

	dimHours, ok := parseOptionalNumericField(row["keep_hours"])
	if !ok {
		dimHours = DefaultDimHours
	}

	return NewRecommendation(gridID, existing, recommended, delta, dimHours, ParseRowReasons(row))
}

// ParseRowReasons extracts the ranked reasons from a row, preferring the
// JSON-encoded reasons column and falling back to the pipe-delimited
// reason_1..reason_3 columns.
func ParseRowReasons(row RawRecoRow) []Reason {
	if raw, present := row["reasons"]; present && strings.TrimSpace(raw) != "" {
		if reasons, ok := ParseReasonsJSON(raw); ok {
			return reasons
		}
	}

	reasons := []Reason{}
	for _, col := range []string{"reason_1", "reason_2", "reason_3"} {
		if r, ok := ParseReasonPipe(row[col]); ok {
			reasons = append(reasons, r)
		}
	}
	return reasons
}

// ParseReasonsJSON parses a JSON-array reasons payload. Spreadsheet
// round-trips double the inner quotes, so a failed parse is retried after
// collapsing doubled quotes. Entries failing validation are dropped; the
// second return is false only when the payload is not a JSON array at all.
func ParseReasonsJSON(raw string) ([]Reason, bool) {
	var reasons []Reason
	if err := json.Unmarshal([]byte(raw), &reasons); err != nil {
		unescaped := strings.ReplaceAll(raw, `""`, `"`)
		if err := json.Unmarshal([]byte(unescaped), &reasons); err != nil {
			return nil, false
		}
	}
	return FilterReasons(reasons), true
}

// ParseReasonPipe parses a "key|label|direction" fallback entry. Entries
// with fewer than three parts or an invalid direction are rejected.
func ParseReasonPipe(raw string) (Reason, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Reason{}, false
	}

	parts := strings.Split(raw, "|")
	if len(parts) < 3 {
		return Reason{}, false
	}

	key := strings.TrimSpace(parts[0])
	label := strings.TrimSpace(parts[1])
	direction, ok := ParseDirection(strings.TrimSpace(parts[2]))
	if key == "" || !ok {
		return Reason{}, false
	}

	return Reason{Key: key, Label: label, Direction: direction}, true
}

// parseNumericField coerces an export value to float64, returning 0 when it
// is blank or unparseable.
func parseNumericField(s string) float64 {
	v, _ := parseOptionalNumericField(s)
	return v
}

// parseOptionalNumericField coerces an export value to float64, stripping a
// trailing "%" and any thousands separators first. The second return is
// false when the value is absent or not a number.
func parseOptionalNumericField(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
