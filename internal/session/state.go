package session

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/noah-isme/payground/internal/credentials"
)

// State is the full editing session for one browser tab: the draft under
// construction, the selected credentials, the last gateway response and
// error, and the busy flag. Response and error are free-form gateway records
// and may legitimately coexist; callers clear both before starting a new
// call sequence.
type State struct {
	Draft       Draft                `json:"draft"`
	Credentials credentials.Selector `json:"credentials"`
	Response    map[string]any       `json:"response"`
	Error       map[string]any       `json:"error"`
	Busy        bool                 `json:"busy"`
}

// DefaultState builds the session used when no persisted copy exists.
func DefaultState(now time.Time) State {
	return State{
		Draft: DefaultDraft(now),
		Credentials: credentials.Selector{
			Source:   credentials.SourcePlayground,
			TestMode: true,
		},
		Response: map[string]any{},
		Error:    map[string]any{},
	}
}

// PaymentID extracts the payment identifier from the last gateway response,
// used to prefill follow-up operations after a redirect.
func (s State) PaymentID() string {
	switch id := s.Response["id"].(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatInt(int64(id), 10)
	default:
		return ""
	}
}
