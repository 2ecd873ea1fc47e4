package entity

import "encoding/json"

// ResponseRecord is one network exchange captured during a city page visit.
// Data holds the body when it was valid JSON; Raw holds the original text
// when it was not, so a malformed body is always explicitly marked rather
// than silently dropped.
type ResponseRecord struct {
	URL    string          `json:"url"`
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Raw    string          `json:"raw,omitempty"`
}

// Parsed returns the decoded JSON body. The capture stage stores text bodies
// as JSON strings; when such a string is itself a JSON document it is
// unwrapped one level. The second return value is false when no parseable
// body exists.
func (r *ResponseRecord) Parsed() (any, bool) {
	if len(r.Data) == 0 {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(r.Data, &v); err != nil {
		return nil, false
	}
	if s, ok := v.(string); ok {
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err != nil {
			return nil, false
		}
		return inner, true
	}
	return v, true
}

// CaptureFile is the per-city JSON document produced by the capture stage.
// The field names mirror the on-disk layout: {city_id}_data.json with the
// ordered network responses and an optional snapshot of page-embedded state.
// It is read-only to the normalization pipeline and superseded, never
// patched, by re-running capture.
type CaptureFile struct {
	CityID    string                     `json:"city_id"`
	Responses []ResponseRecord           `json:"network_responses"`
	PageState map[string]json.RawMessage `json:"page_data,omitempty"`
}
