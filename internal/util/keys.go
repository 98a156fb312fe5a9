package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// RecordName returns the stable file/storage name for one (itemKey, variant)
// pair: a short hex digest over both parts with an unambiguous separator, so
// "a"+"bc" and "ab"+"c" never collide.
func RecordName(itemKey, variant string) string {
	h := sha256.New()
	h.Write([]byte(itemKey))
	h.Write([]byte{0})
	h.Write([]byte(variant))
	return hex.EncodeToString(h.Sum(nil)[:16])
}
