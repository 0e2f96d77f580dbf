package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const pubkeyLen = 32

// DecodePubkey decodes a base58 public key, rejecting anything that is not
// exactly 32 bytes. A failure here is a caller defect, not a chain
// condition, so it is returned as an error rather than absorbed.
func DecodePubkey(s string) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid pubkey %q: %w", s, err)
	}
	if len(raw) != pubkeyLen {
		return nil, fmt.Errorf("invalid pubkey %q: %d bytes, want %d", s, len(raw), pubkeyLen)
	}
	return raw, nil
}

// ValidPubkey reports whether s is a well-formed base58 public key.
func ValidPubkey(s string) bool {
	_, err := DecodePubkey(s)
	return err == nil
}

// FindProgramAddress derives a Program Derived Address for the given seeds,
// searching bump seeds downward from 255 for the first off-curve point.
func FindProgramAddress(seeds [][]byte, programID string) (string, error) {
	program, err := DecodePubkey(programID)
	if err != nil {
		return "", err
	}

	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, program...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), nil
		}
	}

	return "", fmt.Errorf("no valid bump seed found")
}

// isOnCurve reports whether point is a valid ed25519 curve point.
func isOnCurve(point []byte) bool {
	if len(point) != pubkeyLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
