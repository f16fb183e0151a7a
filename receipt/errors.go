package receipt

import "errors"

var (
	// ErrUnknownReceiptType is returned when Emit is asked to stamp a
	// tag the registry does not recognize.
	ErrUnknownReceiptType = errors.New("receipt: unknown receipt type")
	// ErrInvariantFieldCollision is returned when a payload carries one
	// of the four reserved envelope fields.
	ErrInvariantFieldCollision = errors.New("receipt: payload collides with a reserved envelope field")
)

// reservedFields are the envelope fields Emit stamps itself; a payload
// must not define any of them.
var reservedFields = map[string]bool{
	"receipt_type": true,
	"ts":           true,
	"tenant_id":    true,
	"payload_hash": true,
}
