package keyvault

import "context"

type passthrough struct{}

// Passthrough returns a codec that stores key vaults as plain JSON.
// It is insecure and only meant for tests and local development.
func Passthrough() Codec {
	return passthrough{}
}

func (passthrough) Encrypt(_ context.Context, plaintext string) (string, error) {
	return plaintext, nil
}

func (passthrough) Decrypt(_ context.Context, ciphertext string) (string, error) {
	return ciphertext, nil
}
