// Package session holds the editable payment request, the transition rules
// that mutate it, and the continuity bridge that carries it across the
// gateway redirect.
package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// Recurrence defaults installed when recurring payments are toggled on.
const (
	DefaultRecurrenceCycle  = "ON_DEMAND"
	DefaultRecurrencePeriod = 1
	DefaultRecurrenceDateTo = "2030-12-31"
)

// Contact is the payer's contact block.
type Contact struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	City        string `json:"city"`
	Street      string `json:"street"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
}

// Payer describes instrument preferences and contact data for the paying
// customer. Empty strings are kept here and stripped by the envelope client
// just before the wire.
type Payer struct {
	DefaultPaymentInstrument  string   `json:"default_payment_instrument"`
	AllowedPaymentInstruments []string `json:"allowed_payment_instruments"`
	DefaultSwift              string   `json:"default_swift"`
	AllowedSwifts             []string `json:"allowed_swifts"`
	DefaultBnplType           string   `json:"default_bnpl_type"`
	AllowedBnplTypes          []string `json:"allowed_bnpl_types"`
	RequestCardToken          bool     `json:"request_card_token"`
	AllowedCardToken          string   `json:"allowed_card_token"`
	Contact                   Contact  `json:"contact"`
}

// Recurrence configures a recurring payment. It is all-or-nothing: the draft
// either carries a fully populated record or none at all.
type Recurrence struct {
	Cycle  string `json:"recurrence_cycle"`
	Period int    `json:"recurrence_period"`
	DateTo string `json:"recurrence_date_to"`
}

// Item is a single order line.
type Item struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// AdditionalParam is a gateway passthrough name/value pair.
type AdditionalParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Callback holds the URLs the gateway redirects and notifies back to.
type Callback struct {
	ReturnURL       string `json:"return_url"`
	NotificationURL string `json:"notification_url"`
}

// Draft is the in-progress payment request. Fields the playground edits are
// named and typed; anything else the caller supplies rides along in Extra
// and is marshalled back out untouched.
type Draft struct {
	Payer            Payer             `json:"payer"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	OrderNumber      string            `json:"order_number"`
	OrderDescription string            `json:"order_description"`
	Items            []Item            `json:"items"`
	AdditionalParams []AdditionalParam `json:"additional_params"`
	Callback         Callback          `json:"callback"`
	Lang             string            `json:"lang"`
	Preauthorization bool              `json:"preauthorization"`
	Recurrence       *Recurrence       `json:"recurrence,omitempty"`

	// Extra carries gateway-specific fields this service does not interpret.
	Extra map[string]any `json:"-"`
}

// draftJSON mirrors Draft for plain (de)serialisation without recursing into
// the custom methods.
type draftJSON Draft

var draftKnownKeys = []string{
	"payer", "amount", "currency", "order_number", "order_description",
	"items", "additional_params", "callback", "lang", "preauthorization",
	"recurrence",
}

// MarshalJSON merges the extension bag into the named fields. Named fields
// win on key collisions.
func (d Draft) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(draftJSON(d))
	if err != nil {
		return nil, err
	}
	if len(d.Extra) == 0 {
		return base, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range d.Extra {
		if _, taken := merged[key]; !taken {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON splits incoming JSON into named fields and the extension bag.
func (d *Draft) UnmarshalJSON(data []byte) error {
	var plain draftJSON
	if err := json.Unmarshal(data, &plain); err != nil {
		return fmt.Errorf("draft: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("draft: %w", err)
	}
	for _, key := range draftKnownKeys {
		delete(raw, key)
	}
	if len(raw) == 0 {
		raw = nil
	}
	*d = Draft(plain)
	d.Extra = raw
	return nil
}

// DefaultDraft returns the payment request a fresh session starts from.
func DefaultDraft(now time.Time) Draft {
	return Draft{
		Payer: Payer{
			AllowedPaymentInstruments: []string{},
			AllowedSwifts:             []string{},
			AllowedBnplTypes:          []string{},
			Contact: Contact{
				FirstName:   "Jan",
				LastName:    "Novák",
				Email:       "jan.novak@gopay.cz",
				PhoneNumber: "+420774123456",
				City:        "České Budějovice",
				Street:      "Testovací 1",
				PostalCode:  "37001",
				CountryCode: "CZE",
			},
		},
		Amount:           100,
		Currency:         "CZK",
		OrderNumber:      fmt.Sprintf("Test_1234/%d", now.Year()),
		OrderDescription: "Test payment",
		Items: []Item{
			{Name: "item01", Amount: 50},
			{Name: "item02", Amount: 100},
		},
		AdditionalParams: []AdditionalParam{
			{Name: "invoicenumber", Value: "2015001003"},
		},
		Callback: Callback{
			ReturnURL: "http://localhost:5173/",
		},
		Lang: "CS",
	}
}
