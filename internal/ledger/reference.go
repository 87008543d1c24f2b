package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reference purposes. The prefix makes a reference traceable to its flow.
const (
	PurposeFunding  = "funding"
	PurposeDisburse = "disburse"
	PurposeWithdraw = "withdraw"
	PurposeP2P      = "p2p"
)

var now = time.Now

// NewReference returns {purpose}_{uuid}_{unixmillis}.
func NewReference(purpose string) string {
	return fmt.Sprintf("%s_%s_%d", purpose, uuid.NewString(), now().UnixMilli())
}
