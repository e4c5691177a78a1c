package session

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Apply is the single transition function for session state. It is pure:
// the input state is never mutated, untouched sub-records are shared with
// the result, and any action outside the closed set returns the state
// unchanged.
func Apply(s State, a Action) State {
	switch act := a.(type) {
	case ReplaceDraft:
		s.Draft = act.Draft
		return s

	case SetAmount:
		s.Draft.Amount = act.Amount
		return s

	case SetSetting:
		return applySetting(s, act.Field, act.Value)

	case SetContactField:
		return applyContactField(s, act.Field, act.Value)

	case SetPayerField:
		return applyPayerField(s, act.Field, act.Value)

	case ToggleRecurrence:
		if act.Enabled {
			s.Draft.Recurrence = &Recurrence{
				Cycle:  DefaultRecurrenceCycle,
				Period: DefaultRecurrencePeriod,
				DateTo: DefaultRecurrenceDateTo,
			}
		} else {
			s.Draft.Recurrence = nil
		}
		return s

	case SetRecurrenceField:
		if s.Draft.Recurrence == nil {
			return s
		}
		rec := *s.Draft.Recurrence
		switch act.Field {
		case "recurrence_cycle":
			rec.Cycle = act.Value
		case "recurrence_period":
			if period, err := strconv.Atoi(strings.TrimSpace(act.Value)); err == nil {
				rec.Period = period
			}
		case "recurrence_date_to":
			rec.DateTo = act.Value
		default:
			return s
		}
		s.Draft.Recurrence = &rec
		return s

	case SetCredentialsField:
		return applyCredentialsField(s, act.Field, act.Value)

	case SetResponse:
		response := act.Response
		if response == nil {
			response = map[string]any{}
		}
		s.Response = response
		return s

	case SetError:
		gwErr := act.Error
		if gwErr == nil {
			gwErr = map[string]any{}
		}
		s.Error = gwErr
		return s

	case ToggleBusy:
		s.Busy = !s.Busy
		return s

	default:
		return s
	}
}

func applySetting(s State, field string, value any) State {
	switch field {
	case "amount":
		if amount, ok := toInt64(value); ok {
			s.Draft.Amount = amount
		}
	case "currency":
		s.Draft.Currency = toString(value)
	case "order_number":
		s.Draft.OrderNumber = toString(value)
	case "order_description":
		s.Draft.OrderDescription = toString(value)
	case "lang":
		s.Draft.Lang = toString(value)
	case "preauthorization":
		s.Draft.Preauthorization = toBool(value)
	case "return_url":
		s.Draft.Callback.ReturnURL = toString(value)
	case "notification_url":
		s.Draft.Callback.NotificationURL = toString(value)
	default:
		extra := make(map[string]any, len(s.Draft.Extra)+1)
		for k, v := range s.Draft.Extra {
			extra[k] = v
		}
		extra[field] = value
		s.Draft.Extra = extra
	}
	return s
}

func applyContactField(s State, field, value string) State {
	contact := s.Draft.Payer.Contact
	switch field {
	case "first_name":
		contact.FirstName = value
	case "last_name":
		contact.LastName = value
	case "email":
		contact.Email = value
	case "phone_number":
		contact.PhoneNumber = value
	case "city":
		contact.City = value
	case "street":
		contact.Street = value
	case "postal_code":
		contact.PostalCode = value
	case "country_code":
		contact.CountryCode = value
	default:
		return s
	}
	s.Draft.Payer.Contact = contact
	return s
}

func applyPayerField(s State, field string, value any) State {
	payer := s.Draft.Payer
	switch field {
	case "default_payment_instrument":
		payer.DefaultPaymentInstrument = toString(value)
	case "allowed_payment_instruments":
		payer.AllowedPaymentInstruments = toStringSlice(value)
	case "default_swift":
		payer.DefaultSwift = toString(value)
	case "allowed_swifts":
		payer.AllowedSwifts = toStringSlice(value)
	case "default_bnpl_type":
		payer.DefaultBnplType = toString(value)
	case "allowed_bnpl_types":
		payer.AllowedBnplTypes = toStringSlice(value)
	case "request_card_token":
		payer.RequestCardToken = toBool(value)
	case "allowed_card_token":
		payer.AllowedCardToken = toString(value)
	default:
		return s
	}
	s.Draft.Payer = payer
	return s
}

func applyCredentialsField(s State, field string, value any) State {
	creds := s.Credentials
	switch field {
	case "source":
		creds.Source = toString(value)
	case "goid":
		creds.GoID = toString(value)
	case "client_id":
		creds.ClientID = toString(value)
	case "client_secret":
		creds.ClientSecret = toString(value)
	case "test_mode":
		creds.TestMode = toBool(value)
	default:
		return s
	}
	s.Credentials = creds
	return s
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		parsed, err := n.Int64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func toStringSlice(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
