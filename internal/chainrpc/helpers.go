package chainrpc

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
)

// decodeTxID parses a display-order (big-endian) txid hex string into
// the internal byte order used throughout wire-level structures.
func decodeTxID(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("txid must be 32 bytes, got %d", len(b))
	}
	for i := range b {
		out[i] = b[len(b)-1-i]
	}
	return out, nil
}

func hexEncode(b []byte) string { return hex.EncodeToString(b) }

func httpBody(s string) io.Reader { return bytes.NewReader([]byte(s)) }
