package packet

import (
	"fmt"

	"github.com/proofpack/go-proofpack/merkle"
	"github.com/proofpack/go-proofpack/receipt"
)

// VerifyPacket recomputes the Merkle root over receiptSet and compares
// it to the root recorded in packetReceipt's merkle_anchor field.
// Returns true only on an exact match — any mismatch, including a
// shorter or reordered receiptSet, fails verification.
func VerifyPacket(packetReceipt receipt.Receipt, receiptSet []receipt.Receipt) (bool, error) {
	if packetReceipt.ReceiptType != receipt.TypePacket {
		return false, fmt.Errorf("packet: VerifyPacket called on a %q receipt, not %q", packetReceipt.ReceiptType, receipt.TypePacket)
	}
	recordedRoot, ok := packetReceipt.Payload["merkle_anchor"].(string)
	if !ok {
		return false, fmt.Errorf("packet: packet receipt has no merkle_anchor field")
	}

	root, err := merkle.RootOfReceipts(receiptSet)
	if err != nil {
		return false, fmt.Errorf("packet: recompute merkle root: %w", err)
	}
	return root == recordedRoot, nil
}
