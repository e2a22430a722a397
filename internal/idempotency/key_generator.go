package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateKey derives a stable key from the identifying parts of a Telegram
// update (kind, chat ID, message ID). Parts are NUL-separated before hashing
// so adjacent parts cannot collide by concatenation.
func GenerateKey(parts ...interface{}) string {
	var b strings.Builder
	for i, part := range parts {
		if i > 0 {
			b.WriteByte(0)
		}
		fmt.Fprintf(&b, "%v", part)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
