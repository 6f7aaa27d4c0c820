package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainPayload is the domain prefix for payload digests.
// The version suffix allows the algorithm to change later.
const DomainPayload = "treestore/payload/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the content digest of a payload. Payloads that are equal
// after canonicalization have equal digests, regardless of key order or
// Unicode normalization form. The payload itself is never rewritten.
func Digest(v Value) (string, error) {
	canonical, err := marshalCanonical(v, true)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return hashWithDomain(DomainPayload, canonical), nil
}
