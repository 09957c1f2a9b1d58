// Package xid mints prefixed identifiers for orders, ledger rows, alerts and
// shifts. Sortable by creation time, unique enough for a single deployment.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns an id of the form "<prefix>-<unixnano>-<8 random bytes hex>".
// If the random source fails, the timestamp alone is used.
func New(prefix string) string {
	entropy := make([]byte, 8)
	if _, err := rand.Read(entropy); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(entropy))
}
