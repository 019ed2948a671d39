package wire

import (
	"encoding/json"
	"fmt"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/google/uuid"
)

// digestSpace is the uuid namespace for member digests.
var digestSpace = uuid.MustParse("5b0b6f0e-3f7a-4d7e-9c55-0b7f1d2f6a11")

// Canonical returns the RFC 8785 canonical JSON encoding of m.  Two trees
// with the same content have the same canonical encoding regardless of
// key order or number formatting inside inline values.
func Canonical(m *Member) ([]byte, error) {
	d, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	c, err := jsoncanonicalizer.Transform(d)
	if err != nil {
		return nil, fmt.Errorf("could not canonicalize member: %w", err)
	}
	return c, nil
}

// Digest returns a content-addressed uuid of m's canonical form.
func Digest(m *Member) (uuid.UUID, error) {
	c, err := Canonical(m)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.NewSHA1(digestSpace, c), nil
}

// Equal reports whether a and b have the same canonical form.
func Equal(a, b *Member) bool {
	ca, err := Canonical(a)
	if err != nil {
		return false
	}
	cb, err := Canonical(b)
	if err != nil {
		return false
	}
	return string(ca) == string(cb)
}
