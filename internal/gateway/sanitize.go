package gateway

import (
	"encoding/json"
	"fmt"
)

// CleanPayload deep-clones a payload through JSON and strips every
// empty-string leaf from it. The gateway treats an explicit empty string
// differently from an absent field, so omission has to be total across
// nesting. Only exact `""` scalars are dropped: zero numbers, false, null,
// whitespace-only strings and empty containers all survive. Arrays are
// compacted rather than left with holes.
func CleanPayload(payload any) (any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode payload: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("gateway: decode payload: %w", err)
	}
	cleaned, _ := stripEmptyStrings(decoded)
	return cleaned, nil
}

// stripEmptyStrings reports the cleaned value and whether it should be kept
// at all. Only the empty string itself is ever dropped.
func stripEmptyStrings(v any) (any, bool) {
	switch value := v.(type) {
	case string:
		if value == "" {
			return nil, false
		}
		return value, true

	case map[string]any:
		cleaned := make(map[string]any, len(value))
		for key, item := range value {
			if kept, keep := stripEmptyStrings(item); keep {
				cleaned[key] = kept
			}
		}
		return cleaned, true

	case []any:
		cleaned := make([]any, 0, len(value))
		for _, item := range value {
			if kept, keep := stripEmptyStrings(item); keep {
				cleaned = append(cleaned, kept)
			}
		}
		return cleaned, true

	default:
		return value, true
	}
}
