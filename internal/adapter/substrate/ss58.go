package substrate

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// ss58Preamble is prepended to the payload before hashing the checksum.
var ss58Preamble = []byte("SS58PRE")

// ValidateSS58 checks an SS58 address: base58 encoding, length, blake2b
// checksum, and (when prefix >= 0) the network type byte. Only single-byte
// prefixes (< 64) are supported, which covers every network distributed to.
func ValidateSS58(addr string, prefix int) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("not base58: %w", err)
	}

	// 1 type byte + 32-byte public key + 2 checksum bytes
	if len(raw) != 35 {
		return fmt.Errorf("unexpected length %d", len(raw))
	}

	payload := raw[:33]
	checksum := raw[33:]

	h, err := blake2b.New512(nil)
	if err != nil {
		return fmt.Errorf("blake2b: %w", err)
	}
	h.Write(ss58Preamble)
	h.Write(payload)
	digest := h.Sum(nil)

	if !bytes.Equal(checksum, digest[:2]) {
		return fmt.Errorf("checksum mismatch")
	}

	if prefix >= 0 && int(raw[0]) != prefix {
		return fmt.Errorf("network prefix %d, want %d", raw[0], prefix)
	}

	return nil
}
