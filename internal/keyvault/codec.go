// Package keyvault seals provider secret bundles before they reach storage.
package keyvault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"aiinfra/internal/models"
)

var (
	// ErrDecrypt is returned when a stored key vault cannot be opened.
	ErrDecrypt = errors.New("failed to decrypt key vaults")
	// ErrInvalidKey is returned for AES keys of the wrong size.
	ErrInvalidKey = errors.New("invalid key size: must be 16, 24, or 32 bytes")
)

// Codec seals and opens the JSON text of a key vault bundle.
type Codec interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// Seal JSON-encodes vaults and encrypts the result with codec. A nil bundle
// seals to nil so the column stays NULL.
func Seal(ctx context.Context, codec Codec, vaults models.KeyVaults) (*string, error) {
	if vaults == nil {
		return nil, nil
	}

	b, err := json.Marshal(vaults)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key vaults: %w", err)
	}

	sealed, err := codec.Encrypt(ctx, string(b))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt key vaults: %w", err)
	}
	return &sealed, nil
}

// Open reverses Seal. NULL and empty values open to an empty bundle.
func Open(ctx context.Context, codec Codec, sealed *string) (models.KeyVaults, error) {
	if sealed == nil || *sealed == "" {
		return models.KeyVaults{}, nil
	}

	plaintext, err := codec.Decrypt(ctx, *sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	var vaults models.KeyVaults
	if err := json.Unmarshal([]byte(plaintext), &vaults); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %w", ErrDecrypt, err)
	}
	if vaults == nil {
		vaults = models.KeyVaults{}
	}
	return vaults, nil
}
