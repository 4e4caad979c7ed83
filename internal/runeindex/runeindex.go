// Package runeindex is the wallet's view of the Rune indexer: the
// external service that knows which confirmed outputs carry which rune
// balances. The wallet never computes this itself — it only consumes
// it through this interface.
package runeindex

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Fantasim/hdwallet/internal/domain"
	"lukechampine.com/uint128"
)

// Client is satisfied by a concrete indexer integration (ord's
// /output endpoint, a custom indexer, or a test fake).
type Client interface {
	// RunicUTXOs returns every confirmed output at address that
	// carries a rune balance, across all runes held by that address.
	RunicUTXOs(ctx context.Context, address string) ([]domain.RunicUtxo, error)
}

type outputEntry struct {
	TxID    string            `json:"txid"`
	Vout    uint32            `json:"vout"`
	Value   uint64            `json:"value"`
	Runes   map[string]string `json:"runes"` // "block:tx" -> decimal amount
}

// HTTPClient implements Client against an ord-compatible indexer's
// JSON API.
type HTTPClient struct {
	http    *http.Client
	baseURL string
}

func NewHTTPClient(httpClient *http.Client, baseURL string) *HTTPClient {
	return &HTTPClient{http: httpClient, baseURL: baseURL}
}

func (c *HTTPClient) RunicUTXOs(ctx context.Context, address string) ([]domain.RunicUtxo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/outputs/"+address, nil)
	if err != nil {
		return nil, fmt.Errorf("create rune index request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rune index request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rune index: HTTP %d", resp.StatusCode)
	}

	var raw []outputEntry
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode rune index response: %w", err)
	}

	var out []domain.RunicUtxo
	for _, entry := range raw {
		for runeKey, amountStr := range entry.Runes {
			runeID, err := parseRuneID(runeKey)
			if err != nil {
				return nil, fmt.Errorf("parse rune id %q: %w", runeKey, err)
			}
			amount, err := uint128.FromString(amountStr)
			if err != nil {
				return nil, fmt.Errorf("parse rune amount %q: %w", amountStr, err)
			}
			txid, err := parseTxID(entry.TxID)
			if err != nil {
				return nil, fmt.Errorf("parse txid %q: %w", entry.TxID, err)
			}
			out = append(out, domain.RunicUtxo{
				Utxo: domain.Utxo{
					OutPoint:      domain.OutPoint{TxID: txid, Vout: entry.Vout},
					Value:         entry.Value,
					Confirmations: 1,
				},
				RuneID:  runeID,
				Balance: amount,
			})
		}
	}
	return out, nil
}

func parseRuneID(key string) (domain.RuneId, error) {
	var blk uint64
	var tx uint32
	if _, err := fmt.Sscanf(key, "%d:%d", &blk, &tx); err != nil {
		return domain.RuneId{}, err
	}
	return domain.RuneId{Block: blk, Tx: tx}, nil
}

func parseTxID(s string) ([32]byte, error) {
	var out [32]byte
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(decoded) != 32 {
		return out, fmt.Errorf("txid must be 32 bytes, got %d", len(decoded))
	}
	for i := range decoded {
		out[i] = decoded[len(decoded)-1-i]
	}
	return out, nil
}
