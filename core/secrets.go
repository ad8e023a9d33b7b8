package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// SecretPrefix tags webhook signing secrets so they are recognizable in
// logs and UIs without revealing anything about their contents.
const SecretPrefix = "whsec_"

// minSecretBytes is the entropy floor. Callers may ask for more bytes but
// never fewer.
const minSecretBytes = 24

// generateSecret draws byteLen random bytes from source and encodes them as
// a prefixed hex token. A nil source falls back to crypto/rand; anything
// else is expected to be CSPRNG-grade outside of tests.
func generateSecret(source io.Reader, byteLen int) (string, error) {
	if source == nil {
		source = rand.Reader
	}
	if byteLen < minSecretBytes {
		byteLen = minSecretBytes
	}
	raw := make([]byte, byteLen)
	if _, err := io.ReadFull(source, raw); err != nil {
		return "", fmt.Errorf("core: generate webhook secret: %w", err)
	}
	return SecretPrefix + hex.EncodeToString(raw), nil
}
