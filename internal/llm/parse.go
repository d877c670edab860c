package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseResult is either ParsedOK or ParsedMalformed.
type ParseResult interface {
	parseResult()
}

// ParsedOK carries the raw entries of a well-formed response.
type ParsedOK struct {
	Entries []map[string]any
	// Skipped counts array items that were not objects.
	Skipped int
	// Repaired is set when the payload was only usable after the repair pass.
	Repaired bool
}

// ParsedMalformed carries a response that could not be read even after repair.
type ParsedMalformed struct {
	Raw    string
	Reason error
}

func (ParsedOK) parseResult()        {}
func (ParsedMalformed) parseResult() {}

var (
	errEmptyResponse = errors.New("empty response")
	errNoPayload     = errors.New("no JSON payload found")
	errNoCourses     = errors.New("no courses array in payload")
)

// envelopeKeys are accepted names for the array of entries, in preference order.
var envelopeKeys = []string{"courses", "records", "sections", "data", "rows", "items"}

// Parse reads a generation response. It first decodes the text as is, then
// tries one repair pass before giving up.
func Parse(raw string) ParseResult {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ParsedMalformed{Raw: raw, Reason: errEmptyResponse}
	}
	entries, skipped, err := decodeEnvelope([]byte(text))
	if err == nil {
		return ParsedOK{Entries: entries, Skipped: skipped}
	}

	repaired, ok := repairPayload(text)
	if !ok {
		return ParsedMalformed{Raw: raw, Reason: fmt.Errorf("%w: %v", errNoPayload, err)}
	}
	entries, skipped, rerr := decodeEnvelope(repaired)
	if rerr != nil {
		return ParsedMalformed{Raw: raw, Reason: rerr}
	}
	return ParsedOK{Entries: entries, Skipped: skipped, Repaired: true}
}

// decodeEnvelope returns the object entries of the payload and how many
// non-object items it skipped.
func decodeEnvelope(data []byte) ([]map[string]any, int, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, 0, fmt.Errorf("decode: %w", err)
	}
	if dec.More() {
		return nil, 0, errors.New("decode: trailing data after payload")
	}

	var list []any
	switch t := v.(type) {
	case []any:
		list = t
	case map[string]any:
		found := false
		for _, k := range envelopeKeys {
			if arr, ok := lookupFold(t, k).([]any); ok {
				list, found = arr, true
				break
			}
		}
		if !found {
			if lookupFold(t, "crn") == nil {
				return nil, 0, errNoCourses
			}
			list = []any{t}
		}
	default:
		return nil, 0, errNoCourses
	}

	schema, err := compiledCoursesSchema()
	if err != nil {
		return nil, 0, err
	}
	if err := schema.Validate(map[string]any{"courses": list}); err != nil {
		return nil, 0, fmt.Errorf("json does not match schema: %w", err)
	}

	entries := make([]map[string]any, 0, len(list))
	skipped := 0
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			skipped++
			continue
		}
		entries = append(entries, obj)
	}
	return entries, skipped, nil
}

func lookupFold(m map[string]any, key string) any {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return v
		}
	}
	return nil
}
