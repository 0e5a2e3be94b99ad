package transform

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// transformerFields and capabilityFields have the same fields without the JSON methods
type transformerFields Transformer

type capabilityFields SupportedSourceAndTarget

var (
	transformerKeys = map[string]struct{}{
		"transformerName":              {},
		"transformerPipeline":          {},
		"transformerFailover":          {},
		"transformOptions":             {},
		"supportedSourceAndTargetList": {},
	}
	capabilityKeys = map[string]struct{}{
		"sourceMediaType":    {},
		"targetMediaType":    {},
		"maxSourceSizeBytes": {},
		"priority":           {},
	}
)

// MarshalJSON writes the known fields followed by Extra
func (t Transformer) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(transformerFields(t), t.Extra)
}

// UnmarshalJSON reads the known fields and keeps every other field in Extra
func (t *Transformer) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var fields transformerFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*t = Transformer(fields)
	t.Extra = unknownFields(data, transformerKeys)
	return nil
}

// MarshalJSON writes the known fields followed by Extra
func (s SupportedSourceAndTarget) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(capabilityFields(s), s.Extra)
}

// UnmarshalJSON reads the known fields and keeps every other field in Extra
func (s *SupportedSourceAndTarget) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var fields capabilityFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*s = SupportedSourceAndTarget(fields)
	s.Extra = unknownFields(data, capabilityKeys)
	return nil
}

func isNull(data []byte) bool {
	return gjson.ParseBytes(data).Type == gjson.Null
}

// unknownFields returns the raw members of the object in data whose keys are not in known,
// or nil when there are none
func unknownFields(data []byte, known map[string]struct{}) map[string]json.RawMessage {
	var extra map[string]json.RawMessage
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		if _, ok := known[key.String()]; ok {
			return true
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[key.String()] = json.RawMessage(value.Raw)
		return true
	})
	return extra
}

// marshalWithExtra adds the extra members to the object encoding of known. Known fields win
// over an extra member with the same key.
func marshalWithExtra(known any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	members := make(map[string]json.RawMessage, len(extra))
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("failed to merge extra fields: %w", err)
	}
	for key, value := range extra {
		if _, ok := members[key]; !ok {
			members[key] = value
		}
	}
	return json.Marshal(members)
}
