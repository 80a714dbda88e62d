package tokenstore

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/apiclient/internal/common"
	"github.com/dmitrijs2005/apiclient/internal/cryptox"
)

// Sealer encrypts credential values before they reach the durable medium.
// The salt lives next to the tokens (under common.StoreSaltKey) and is kept
// across Clear, so the same passphrase keeps deriving the same key.
type Sealer struct {
	key []byte
}

// NewSealer derives the sealing key from passphrase, creating and persisting
// a salt on first use.
func NewSealer(ctx context.Context, kv KV, passphrase string) (*Sealer, error) {
	salt, err := kv.Get(ctx, common.StoreSaltKey)
	if err != nil {
		return nil, fmt.Errorf("read store salt: %w", err)
	}

	if salt == nil {
		salt, err = cryptox.RandomBytes(cryptox.SaltSize)
		if err != nil {
			return nil, fmt.Errorf("generate store salt: %w", err)
		}
		if err := kv.Set(ctx, map[string][]byte{common.StoreSaltKey: salt}); err != nil {
			return nil, fmt.Errorf("persist store salt: %w", err)
		}
	}

	return &Sealer{key: cryptox.DeriveKey([]byte(passphrase), salt)}, nil
}

func (s *Sealer) seal(v string) ([]byte, error) {
	return cryptox.Seal([]byte(v), s.key)
}

func (s *Sealer) open(b []byte) (string, error) {
	plain, err := cryptox.Open(b, s.key)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
