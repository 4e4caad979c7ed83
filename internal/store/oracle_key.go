package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Fantasim/hdwallet/internal/config"
)

// ErrOraclePublicKeyNotFound is returned by LoadOraclePublicKey when no
// key has ever been persisted under the given name.
var ErrOraclePublicKeyNotFound = errors.New("oracle public key not found")

// SaveOraclePublicKey persists the oracle's extended public key for
// keyName, replacing whatever was previously stored under that name —
// the on-disk counterpart to config.Config's in-memory
// EnsureOraclePublicKey cache, so a restart doesn't need a fresh oracle
// round trip.
func (s *Store) SaveOraclePublicKey(keyName string, pub *config.OraclePublicKey) error {
	_, err := s.conn.Exec(
		`INSERT INTO oracle_public_key (key_name, public_key, chain_code) VALUES (?, ?, ?)
		 ON CONFLICT(key_name) DO UPDATE SET public_key = excluded.public_key, chain_code = excluded.chain_code`,
		keyName, pub.PublicKey, pub.ChainCode,
	)
	if err != nil {
		return fmt.Errorf("save oracle public key %s: %w", keyName, err)
	}
	return nil
}

// LoadOraclePublicKey returns the persisted extended public key for
// keyName, or ErrOraclePublicKeyNotFound if it was never saved.
func (s *Store) LoadOraclePublicKey(keyName string) (*config.OraclePublicKey, error) {
	var pub config.OraclePublicKey
	err := s.conn.QueryRow(`SELECT public_key, chain_code FROM oracle_public_key WHERE key_name = ?`, keyName).
		Scan(&pub.PublicKey, &pub.ChainCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOraclePublicKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load oracle public key %s: %w", keyName, err)
	}
	return &pub, nil
}
