package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint returns a stable sha256 hex digest of a parameter set.
// encoding/json sorts map keys, so semantically identical params always
// produce identical digests regardless of construction order.
func Fingerprint(params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal params fingerprint: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
