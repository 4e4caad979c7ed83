// Package runestone encodes Rune transfer edicts into the OP_RETURN
// script carried by a transaction's first output, delegating the wire
// format to the bxelab/runestone library so the byte layout tracks the
// ord reference implementation instead of a hand-rolled codec.
package runestone

import (
	"fmt"

	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/bxelab/runestone"
	"lukechampine.com/uint128"
)

// EncipherTransfer builds the OP_RETURN scriptPubKey for a single
// edict moving amount of rune to the output at index outputIndex
// (0-based, as it appears in the finished transaction's output list).
func EncipherTransfer(runeID domain.RuneId, amount uint128.Uint128, outputIndex uint32) ([]byte, error) {
	stone := &runestone.Runestone{
		Edicts: []runestone.Edict{
			{
				ID:     runestone.RuneId{Block: runeID.Block, Tx: runeID.Tx},
				Amount: amount,
				Output: outputIndex,
			},
		},
	}
	script, err := stone.Encipher()
	if err != nil {
		return nil, fmt.Errorf("encipher runestone: %w", err)
	}
	return script, nil
}
