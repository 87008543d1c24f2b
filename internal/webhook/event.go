// Package webhook reconciles processor callbacks into balance and ledger
// changes. Callback bodies are only used to decide what to verify; every
// mutation is driven by the processor's verification response.
package webhook

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the processor's event name.
type Kind string

const (
	KindChargeCompleted   Kind = "charge.completed"
	KindTransferCompleted Kind = "transfer.completed"
)

// Event is the part of a callback needed to look the event up again.
type Event struct {
	Kind          Kind
	ID            int64
	Reference     string
	CustomerEmail string
}

// Key is the exactly-once guard for the event.
func (e Event) Key() string {
	return eventKey(e.Kind, e.ID)
}

func eventKey(kind Kind, id int64) string {
	return "flw:" + string(kind) + ":" + strconv.FormatInt(id, 10)
}

// Supported reports whether the engine settles events of this kind.
func (e Event) Supported() bool {
	switch e.Kind {
	case KindChargeCompleted, KindTransferCompleted:
		return true
	default:
		return false
	}
}

type payload struct {
	Event string `json:"event"`
	Data  struct {
		ID        json.Number `json:"id"`
		Reference string      `json:"reference"`
		TxRef     string      `json:"tx_ref"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// ParseEvent decodes a callback body.
func ParseEvent(body []byte) (Event, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, fmt.Errorf("decode webhook: %w", err)
	}
	if p.Event == "" {
		return Event{}, fmt.Errorf("decode webhook: missing event name")
	}
	id, err := p.Data.ID.Int64()
	if err != nil || id <= 0 {
		return Event{}, fmt.Errorf("decode webhook: invalid data.id %q", p.Data.ID)
	}
	ref := p.Data.Reference
	if ref == "" {
		ref = p.Data.TxRef
	}
	return Event{
		Kind:          Kind(p.Event),
		ID:            id,
		Reference:     ref,
		CustomerEmail: strings.TrimSpace(p.Data.Customer.Email),
	}, nil
}
