package session

import (
	"encoding/json"
	"fmt"
)

// Action is the closed set of session transitions. The sealed marker keeps
// the set enumerable inside this package; anything Apply does not recognise
// leaves the state untouched.
type Action interface {
	isAction()
}

// ReplaceDraft substitutes the whole draft with a caller-supplied record.
// No shape validation happens here; a draft missing required fields fails at
// submission time instead.
type ReplaceDraft struct {
	Draft Draft
}

// SetAmount writes the top-level payment amount.
type SetAmount struct {
	Amount int64
}

// SetSetting writes one named top-level draft field (currency, order data,
// language, preauthorization flag, callback URLs). Unrecognised field names
// land in the draft's extension bag so gateway-specific settings survive a
// round trip.
type SetSetting struct {
	Field string
	Value any
}

// SetContactField writes one field of the payer's contact block.
type SetContactField struct {
	Field string
	Value string
}

// SetPayerField writes one instrument-preference field under payer.
type SetPayerField struct {
	Field string
	Value any
}

// ToggleRecurrence installs the default recurrence record or removes it
// entirely. Toggling on twice resets to the defaults rather than merging.
type ToggleRecurrence struct {
	Enabled bool
}

// SetRecurrenceField writes one field of the recurrence record. A no-op when
// recurrence is absent.
type SetRecurrenceField struct {
	Field string
	Value string
}

// SetCredentialsField writes one field of the credential selector.
type SetCredentialsField struct {
	Field string
	Value any
}

// SetResponse wholesale-replaces the last gateway response. It deliberately
// leaves the error field alone; callers clear both before a new call.
type SetResponse struct {
	Response map[string]any
}

// SetError wholesale-replaces the last gateway error.
type SetError struct {
	Error map[string]any
}

// ToggleBusy flips the busy flag. Callers pair every call-start toggle with
// a call-end toggle, failure included.
type ToggleBusy struct{}

// Unknown is produced when a wire action names a type outside the closed
// set. Apply treats it as a no-op.
type Unknown struct {
	Type string
}

func (ReplaceDraft) isAction()        {}
func (SetAmount) isAction()           {}
func (SetSetting) isAction()          {}
func (SetContactField) isAction()     {}
func (SetPayerField) isAction()       {}
func (ToggleRecurrence) isAction()    {}
func (SetRecurrenceField) isAction()  {}
func (SetCredentialsField) isAction() {}
func (SetResponse) isAction()         {}
func (SetError) isAction()            {}
func (ToggleBusy) isAction()          {}
func (Unknown) isAction()             {}

// wireAction is the JSON shape actions arrive in over HTTP.
type wireAction struct {
	Type    string          `json:"type"`
	Field   string          `json:"field,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeAction maps a wire action onto a transition variant. Unknown types
// decode to Unknown rather than failing, matching the no-op contract.
func DecodeAction(data []byte) (Action, error) {
	var wire wireAction
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("action: %w", err)
	}

	switch wire.Type {
	case "replace_draft":
		var draft Draft
		if err := json.Unmarshal(wire.Payload, &draft); err != nil {
			return nil, fmt.Errorf("action %s: %w", wire.Type, err)
		}
		return ReplaceDraft{Draft: draft}, nil

	case "set_amount":
		var amount int64
		if err := json.Unmarshal(wire.Payload, &amount); err != nil {
			return nil, fmt.Errorf("action %s: %w", wire.Type, err)
		}
		return SetAmount{Amount: amount}, nil

	case "set_setting":
		var value any
		if err := unmarshalOptional(wire.Payload, &value); err != nil {
			return nil, fmt.Errorf("action %s: %w", wire.Type, err)
		}
		return SetSetting{Field: wire.Field, Value: value}, nil

	case "set_contact_field":
		var value string
		if err := unmarshalOptional(wire.Payload, &value); err != nil {
			return nil, fmt.Errorf("action %s: %w", wire.Type, err)
		}
		return SetContactField{Field: wire.Field, Value: value}, nil

	case "set_payer_field":
		var value any
		if err := unmarshalOptional(wire.Payload, &value); err != nil {
			return nil, fmt.Errorf("action %s: %w", wire.Type, err)
		}
		return SetPayerField{Field: wire.Field, Value: value}, nil

	case "toggle_recurrence":
		var enabled bool
		if err := json.Unmarshal(wire.Payload, &enabled); err != nil {
			return nil, fmt.Errorf("action %s: %w", wire.Type, err)
		}
		return ToggleRecurrence{Enabled: enabled}, nil

	case "set_recurrence_field":
		var value string
		if err := unmarshalOptional(wire.Payload, &value); err != nil {
			return nil, fmt.Errorf("action %s: %w", wire.Type, err)
		}
		return SetRecurrenceField{Field: wire.Field, Value: value}, nil

	case "set_credentials_field":
		var value any
		if err := unmarshalOptional(wire.Payload, &value); err != nil {
			return nil, fmt.Errorf("action %s: %w", wire.Type, err)
		}
		return SetCredentialsField{Field: wire.Field, Value: value}, nil

	case "set_response":
		var response map[string]any
		if err := unmarshalOptional(wire.Payload, &response); err != nil {
			return nil, fmt.Errorf("action %s: %w", wire.Type, err)
		}
		return SetResponse{Response: response}, nil

	case "set_error":
		var gwErr map[string]any
		if err := unmarshalOptional(wire.Payload, &gwErr); err != nil {
			return nil, fmt.Errorf("action %s: %w", wire.Type, err)
		}
		return SetError{Error: gwErr}, nil

	case "toggle_busy":
		return ToggleBusy{}, nil

	default:
		return Unknown{Type: wire.Type}, nil
	}
}

func unmarshalOptional(data json.RawMessage, into any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, into)
}
