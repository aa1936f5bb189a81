package triple

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// IDSize is the length of a content-addressed triple identifier in bytes.
const IDSize = sha256.Size

// ID is the 256-bit content address of a triple: the SHA-256 digest of
// its canonical byte encoding. Value-identical triples, even when
// constructed independently, always share the same ID; changing any
// field changes it. ID is the storage key and the unit of deduplication.
type ID [IDSize]byte

// IDOf computes the content address of a triple.
func IDOf(t Triple) (ID, error) {
	data, err := Encode(t)
	if err != nil {
		return ID{}, err
	}
	return sha256.Sum256(data), nil
}

// IDOfEncoded computes the content address from an already canonical
// byte form, avoiding a second encode when the caller holds both.
func IDOfEncoded(data []byte) ID {
	return sha256.Sum256(data)
}

// Hex returns the lowercase hex form of the identifier.
func (id ID) Hex() string {
	return hex.EncodeToString(id[:])
}

// String returns a short prefix for logging.
func (id ID) String() string {
	return id.Hex()[:12]
}

// ParseID parses a 64-character hex string into an ID.
func ParseID(s string) (ID, error) {
	var id ID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if len(raw) != IDSize {
		return id, fmt.Errorf("%w: id must be %d bytes, got %d", ErrSerialization, IDSize, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
