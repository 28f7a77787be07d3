package drift

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/false-systems/nopea/internal/deploy"
)

// Hash returns the lowercase hex SHA-256 of m's normalized, compact JSON
// encoding. encoding/json sorts map[string]any keys alphabetically, so
// the encoding is deterministic regardless of Go map iteration order.
//
// SHA-256 via crypto/sha256 stays on the standard library here rather
// than reaching for a third-party hash package — see DESIGN.md.
func Hash(m deploy.Manifest) (string, error) {
	normalized := Normalize(m)
	body, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

// prettyJSON renders a manifest for human-readable diffing; used only by
// diff.go's unifiedDiff, never by Hash.
func prettyJSON(m deploy.Manifest) (string, error) {
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	return string(body), nil
}
