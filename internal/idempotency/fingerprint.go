package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint hashes the normalized, validated command rather than raw
// request bytes, so retries that differ only in formatting (whitespace, field
// order in the original JSON, timezone spelling) still match.
func Fingerprint(command any) (string, error) {
	// encoding/json emits struct fields in declaration order, which makes the
	// encoding canonical for our command types.
	b, err := json.Marshal(command)
	if err != nil {
		return "", fmt.Errorf("fingerprint command: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
