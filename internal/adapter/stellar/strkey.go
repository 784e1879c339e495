package stellar

import (
	"encoding/base32"
	"fmt"

	"filippo.io/edwards25519"
)

// versionAccountID is the strkey version byte for ed25519 account IDs
// (renders as a leading 'G').
const versionAccountID = 6 << 3

var strkeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// DecodeAccountID validates a Stellar account strkey and returns the raw
// ed25519 public key. Checks: base32 encoding, length, version byte, CRC16
// checksum, and that the key bytes decode to a point on the ed25519 curve.
func DecodeAccountID(addr string) ([]byte, error) {
	raw, err := strkeyEncoding.DecodeString(addr)
	if err != nil {
		return nil, fmt.Errorf("not base32: %w", err)
	}

	// 1 version byte + 32-byte key + 2 checksum bytes
	if len(raw) != 35 {
		return nil, fmt.Errorf("unexpected length %d", len(raw))
	}

	if raw[0] != versionAccountID {
		return nil, fmt.Errorf("version byte 0x%02x is not an account ID", raw[0])
	}

	payload := raw[:33]
	want := uint16(raw[33]) | uint16(raw[34])<<8
	if crc16(payload) != want {
		return nil, fmt.Errorf("checksum mismatch")
	}

	key := raw[1:33]
	if _, err := new(edwards25519.Point).SetBytes(key); err != nil {
		return nil, fmt.Errorf("key is not on the ed25519 curve: %w", err)
	}

	return key, nil
}

// crc16 implements CRC16-XMODEM as used by strkey checksums.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
