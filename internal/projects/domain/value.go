package domain

import (
	"encoding/json"
	"time"
)

// DateLayout is the wire format for step dates.
const DateLayout = "2006-01-02"

// StepValue is the free-form payload attached to a step instance. Known
// fields are typed; any other keys a client stored are preserved verbatim in
// Extra so partial updates merge instead of clobbering.
type StepValue struct {
	ScheduledDate string
	ActualDate    string
	Assignees     []string
	Extra         map[string]json.RawMessage
}

// MarshalJSON renders the value as a flat JSON object, merging Extra with
// the typed fields. Typed fields win on key collision.
func (v StepValue) MarshalJSON() ([]byte, error) {
	merged := make(map[string]json.RawMessage, len(v.Extra)+3)
	for key, raw := range v.Extra {
		merged[key] = raw
	}
	if v.ScheduledDate != "" {
		raw, err := json.Marshal(v.ScheduledDate)
		if err != nil {
			return nil, err
		}
		merged["scheduled_date"] = raw
	} else {
		delete(merged, "scheduled_date")
	}
	if v.ActualDate != "" {
		raw, err := json.Marshal(v.ActualDate)
		if err != nil {
			return nil, err
		}
		merged["actual_date"] = raw
	} else {
		delete(merged, "actual_date")
	}
	if len(v.Assignees) > 0 {
		raw, err := json.Marshal(v.Assignees)
		if err != nil {
			return nil, err
		}
		merged["assignees"] = raw
	} else {
		delete(merged, "assignees")
	}
	return json.Marshal(merged)
}

// UnmarshalJSON extracts the typed fields and keeps every other key in Extra.
func (v *StepValue) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*v = StepValue{}
	for key, raw := range fields {
		switch key {
		case "scheduled_date":
			// A malformed entry is treated as absent; read paths must not fail.
			_ = json.Unmarshal(raw, &v.ScheduledDate)
		case "actual_date":
			_ = json.Unmarshal(raw, &v.ActualDate)
		case "assignees":
			_ = json.Unmarshal(raw, &v.Assignees)
		default:
			if v.Extra == nil {
				v.Extra = make(map[string]json.RawMessage)
			}
			v.Extra[key] = raw
		}
	}
	return nil
}

// ParseStepValue decodes a persisted value column. nil, empty, or malformed
// payloads yield a zero value rather than an error: a single bad record must
// never break a list render.
func ParseStepValue(data []byte) StepValue {
	if len(data) == 0 {
		return StepValue{}
	}
	var v StepValue
	if err := json.Unmarshal(data, &v); err != nil {
		return StepValue{}
	}
	return v
}

// Scheduled returns the parsed scheduled date, if present and well-formed.
func (v StepValue) Scheduled() (time.Time, bool) {
	return ParseDate(v.ScheduledDate)
}

// Actual returns the parsed actual date, if present and well-formed.
func (v StepValue) Actual() (time.Time, bool) {
	return ParseDate(v.ActualDate)
}

// ParseDate parses a YYYY-MM-DD string. Missing or unparsable input reports
// false instead of an error.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
