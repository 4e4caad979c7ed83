// Package chainrpc is the wallet's view of the Bitcoin node interface:
// the fee-percentile feed, confirmed-UTXO listing, balance queries and
// raw transaction submission that the rest of the wallet treats as an
// external collaborator it never implements itself.
package chainrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/Fantasim/hdwallet/internal/config"
	"github.com/Fantasim/hdwallet/internal/domain"
	"golang.org/x/time/rate"
)

// Client is the node-facing surface the rest of the wallet depends on.
// A production deployment points this at a Bitcoin Core RPC proxy or an
// Esplora-compatible indexer; tests use an in-memory fake.
type Client interface {
	// FeePercentiles returns up to 100 fee-rate percentiles in
	// millisatoshi per vbyte, sorted ascending, matching the node's
	// recent-block fee distribution. An empty slice means the node has
	// no data yet.
	FeePercentiles(ctx context.Context) ([]uint64, error)

	// ListUTXOs returns every confirmed unspent output currently
	// controlling address.
	ListUTXOs(ctx context.Context, address string) ([]domain.Utxo, error)

	// BalanceSats returns the sum of the values ListUTXOs reports for
	// address.
	BalanceSats(ctx context.Context, address string) (uint64, error)

	// SubmitRawTransaction broadcasts raw (consensus-serialized) and
	// returns the resulting txid as a reversed-hex string.
	SubmitRawTransaction(ctx context.Context, raw []byte) (string, error)
}

// FeeRatePerVByte applies the fixed percentile-selection policy: the
// median (50th) percentile reported by the node, or
// config.FallbackFeeRateMSatVB if the node reports no percentiles at
// all. Both paths report in millisat/vbyte and are rounded down to
// whole sat/vbyte before returning.
func FeeRatePerVByte(ctx context.Context, c Client) (uint64, error) {
	percentiles, err := c.FeePercentiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch fee percentiles: %w", err)
	}
	if len(percentiles) == 0 {
		return config.FallbackFeeRateMSatVB / 1000, nil
	}
	idx := 50
	if idx >= len(percentiles) {
		idx = len(percentiles) - 1
	}
	// the node reports millisatoshi/vbyte; the builder works in whole
	// sat/vbyte, so round down to the nearest integer rate.
	return percentiles[idx] / 1000, nil
}

// esploraUTXO is the JSON shape of an Esplora-compatible /address/:addr/utxo entry.
type esploraUTXO struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  uint64 `json:"value"`
	Status struct {
		Confirmed     bool   `json:"confirmed"`
		BlockHeight   uint32 `json:"block_height"`
	} `json:"status"`
}

// EsploraClient implements Client against one or more Esplora-compatible
// HTTP APIs, round-robining requests across providers the way the
// address-scanning fetcher this wallet's core is adapted from does, and
// rate limiting each provider independently.
type EsploraClient struct {
	http         *http.Client
	providerURLs []string
	limiters     []*rate.Limiter
	next         atomic.Uint64
}

func NewEsploraClient(httpClient *http.Client, providerURLs []string, ratePerSecond float64) *EsploraClient {
	limiters := make([]*rate.Limiter, len(providerURLs))
	for i := range limiters {
		limiters[i] = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return &EsploraClient{http: httpClient, providerURLs: providerURLs, limiters: limiters}
}

func (c *EsploraClient) pick(ctx context.Context) (string, *rate.Limiter, error) {
	if len(c.providerURLs) == 0 {
		return "", nil, fmt.Errorf("no chain RPC providers configured")
	}
	idx := int(c.next.Add(1)-1) % len(c.providerURLs)
	lim := c.limiters[idx]
	if err := lim.Wait(ctx); err != nil {
		return "", nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	return c.providerURLs[idx], lim, nil
}

func (c *EsploraClient) FeePercentiles(ctx context.Context) ([]uint64, error) {
	base, _, err := c.pick(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/fee-estimates", nil)
	if err != nil {
		return nil, fmt.Errorf("create fee-estimates request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fee-estimates request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fee-estimates: HTTP %d", resp.StatusCode)
	}

	var byTarget map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&byTarget); err != nil {
		return nil, fmt.Errorf("decode fee-estimates: %w", err)
	}
	if len(byTarget) == 0 {
		return nil, nil
	}

	rates := make([]uint64, 0, len(byTarget))
	for _, feePerVByte := range byTarget {
		rates = append(rates, uint64(feePerVByte*1000)) // sat/vB -> millisat/vB
	}
	return expandToPercentiles(rates), nil
}

// expandToPercentiles turns a handful of observed fee rates into a
// 100-entry ascending percentile table by nearest-neighbour resampling,
// matching the shape FeeRatePerVByte expects from a real node.
func expandToPercentiles(rates []uint64) []uint64 {
	sorted := append([]uint64(nil), rates...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	out := make([]uint64, 100)
	for i := range out {
		pos := i * len(sorted) / 100
		if pos >= len(sorted) {
			pos = len(sorted) - 1
		}
		out[i] = sorted[pos]
	}
	return out
}

func (c *EsploraClient) ListUTXOs(ctx context.Context, address string) ([]domain.Utxo, error) {
	base, _, err := c.pick(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/address/"+address+"/utxo", nil)
	if err != nil {
		return nil, fmt.Errorf("create utxo request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("utxo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("utxo request: HTTP %d", resp.StatusCode)
	}

	var raw []esploraUTXO
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode utxo response: %w", err)
	}

	out := make([]domain.Utxo, 0, len(raw))
	for _, u := range raw {
		if !u.Status.Confirmed {
			continue
		}
		txid, err := decodeTxID(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("decode txid %q: %w", u.TxID, err)
		}
		out = append(out, domain.Utxo{
			OutPoint:      domain.OutPoint{TxID: txid, Vout: u.Vout},
			Value:         u.Value,
			Confirmations: 1,
		})
	}
	return out, nil
}

func (c *EsploraClient) BalanceSats(ctx context.Context, address string) (uint64, error) {
	utxos, err := c.ListUTXOs(ctx, address)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, u := range utxos {
		total += u.Value
	}
	return total, nil
}

func (c *EsploraClient) SubmitRawTransaction(ctx context.Context, raw []byte) (string, error) {
	base, _, err := c.pick(ctx)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/tx", httpBody(hexEncode(raw)))
	if err != nil {
		return "", fmt.Errorf("create broadcast request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("broadcast request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("broadcast rejected: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read broadcast response: %w", err)
	}
	return string(body), nil
}
