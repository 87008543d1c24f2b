// Package notification carries user-facing alerts from the ledger side of the
// system to an asynchronous mail worker. Dispatch is best-effort: a failed
// enqueue is logged and never undoes the money movement that triggered it.
package notification

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind tags the payload carried by a Message.
type Kind string

const (
	KindBalanceAlert Kind = "balance_alert"
	KindOneTimeCode  Kind = "one_time_code"
)

// AlertType says which way money moved.
type AlertType string

const (
	AlertCredit AlertType = "Credit"
	AlertDebit  AlertType = "Debit"
)

// BalanceAlert tells a user their wallet balance changed. Amounts are kobo.
type BalanceAlert struct {
	Name        string    `json:"name"`
	AlertType   AlertType `json:"alert_type"`
	AccountName string    `json:"account_name"`
	Description string    `json:"description"`
	Reference   string    `json:"reference"`
	Amount      int64     `json:"amount"`
	Balance     int64     `json:"balance"`
	Date        time.Time `json:"date"`
}

// OneTimeCode delivers a confirmation code.
type OneTimeCode struct {
	Name      string `json:"name"`
	Code      string `json:"code"`
	Purpose   string `json:"purpose"`
	ValidMins int    `json:"valid_minutes"`
}

// Message is one notification. Exactly one payload pointer is set and it
// matches Kind; build values with NewBalanceAlert or NewOneTimeCode.
type Message struct {
	Kind         Kind
	Recipient    string
	BalanceAlert *BalanceAlert
	OneTimeCode  *OneTimeCode
}

// NewBalanceAlert builds a balance_alert message.
func NewBalanceAlert(recipient string, alert BalanceAlert) Message {
	return Message{Kind: KindBalanceAlert, Recipient: recipient, BalanceAlert: &alert}
}

// NewOneTimeCode builds a one_time_code message.
func NewOneTimeCode(recipient string, code OneTimeCode) Message {
	return Message{Kind: KindOneTimeCode, Recipient: recipient, OneTimeCode: &code}
}

type wireMessage struct {
	Kind      Kind            `json:"kind"`
	Recipient string          `json:"recipient"`
	Payload   json.RawMessage `json:"payload"`
}

// Encode serialises m for the queue.
func Encode(m Message) ([]byte, error) {
	// Nil checks happen on the typed pointers; a nil pointer stored in an
	// interface is not itself nil.
	var payload any
	hasPayload := false
	switch m.Kind {
	case KindBalanceAlert:
		payload, hasPayload = m.BalanceAlert, m.BalanceAlert != nil
	case KindOneTimeCode:
		payload, hasPayload = m.OneTimeCode, m.OneTimeCode != nil
	default:
		return nil, fmt.Errorf("notification: unknown kind %q", m.Kind)
	}
	if !hasPayload || m.Recipient == "" {
		return nil, fmt.Errorf("notification: %s message is missing recipient or payload", m.Kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMessage{Kind: m.Kind, Recipient: m.Recipient, Payload: raw})
}

// Decode parses a queued message. Unknown kinds are rejected.
func Decode(data []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("notification: decode envelope: %w", err)
	}
	m := Message{Kind: w.Kind, Recipient: w.Recipient}
	switch w.Kind {
	case KindBalanceAlert:
		m.BalanceAlert = new(BalanceAlert)
		if err := json.Unmarshal(w.Payload, m.BalanceAlert); err != nil {
			return Message{}, fmt.Errorf("notification: decode %s: %w", w.Kind, err)
		}
	case KindOneTimeCode:
		m.OneTimeCode = new(OneTimeCode)
		if err := json.Unmarshal(w.Payload, m.OneTimeCode); err != nil {
			return Message{}, fmt.Errorf("notification: decode %s: %w", w.Kind, err)
		}
	default:
		return Message{}, fmt.Errorf("notification: unknown kind %q", w.Kind)
	}
	return m, nil
}
