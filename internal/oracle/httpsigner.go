package oracle

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Fantasim/hdwallet/internal/domain"
)

// HTTPSigner implements Signer against an external threshold-ECDSA
// service reachable over plain JSON/HTTP, in the same request-per-call
// style internal/chainrpc.EsploraClient uses against Esplora. It never
// sees or generates key material itself — every call is a pass-through
// to baseURL.
type HTTPSigner struct {
	http    *http.Client
	baseURL string
}

func NewHTTPSigner(httpClient *http.Client, baseURL string) *HTTPSigner {
	return &HTTPSigner{http: httpClient, baseURL: baseURL}
}

type publicKeyResponse struct {
	PublicKey string `json:"public_key"`
	ChainCode string `json:"chain_code"`
}

func (s *HTTPSigner) PublicKey(ctx context.Context, keyName string) ([]byte, []byte, error) {
	url := fmt.Sprintf("%s/public_key?key_name=%s", s.baseURL, keyName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create public_key request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	var out publicKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, nil, fmt.Errorf("decode public_key response: %w", err)
	}
	pubKey, err := hex.DecodeString(out.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("decode public key hex: %w", err)
	}
	chainCode, err := hex.DecodeString(out.ChainCode)
	if err != nil {
		return nil, nil, fmt.Errorf("decode chain code hex: %w", err)
	}
	return pubKey, chainCode, nil
}

type signRequest struct {
	Digest  string   `json:"digest"`
	KeyName string   `json:"key_name"`
	Path    []string `json:"derivation_path"`
}

type signResponse struct {
	Signature string `json:"signature"`
}

func (s *HTTPSigner) Sign(ctx context.Context, digest []byte, keyName string, path domain.DerivationPath) ([]byte, error) {
	pathHex := make([]string, len(path))
	for i, component := range path {
		pathHex[i] = hex.EncodeToString(component)
	}
	body, err := json.Marshal(signRequest{
		Digest:  hex.EncodeToString(digest),
		KeyName: keyName,
		Path:    pathHex,
	})
	if err != nil {
		return nil, fmt.Errorf("encode sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sign", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	var out signResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode sign response: %w", err)
	}
	sig, err := hex.DecodeString(out.Signature)
	if err != nil {
		return nil, fmt.Errorf("decode signature hex: %w", err)
	}
	return sig, nil
}
