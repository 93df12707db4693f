package geafin

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// RowHash computes a deterministic content hash over a row's field map.
// Keys are sorted before hashing so the result is independent of column
// order between export variants.
func RowHash(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
		b.WriteByte('\n')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// ContentHash identifies one import payload for run-level audit.
func ContentHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
