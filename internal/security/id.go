package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// randBase36 returns n random base-36 characters.
func randBase36(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(base36)))
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform RNG is broken;
			// fall back to a fixed character rather than aborting an id.
			b[i] = '0'
			continue
		}
		b[i] = base36[v.Int64()]
	}
	return string(b)
}

// TransactionID generates a ledger transaction id. The format
// ("TX_<millis>_<suffix>") matches ids already present in stored documents.
func TransactionID() string {
	return fmt.Sprintf("TX_%d_%s", time.Now().UnixMilli(), randBase36(9))
}

// AlertID generates a compliance alert id.
func AlertID() string {
	return fmt.Sprintf("AML_%d_%s", time.Now().UnixMilli(), randBase36(4))
}
