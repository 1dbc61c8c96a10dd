package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep hashes of different document kinds apart. The
// version suffix allows the algorithm to change later.
const (
	DomainSpec = "pulse/spec/v1"
	DomainPass = "pulse/pass/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The separator rules
// out domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SpecHash identifies a network description by content.
func SpecHash(spec *NetworkSpec) (string, error) {
	canonical, err := MarshalCanonical(spec.ToIR())
	if err != nil {
		return "", fmt.Errorf("SpecHash: %w", err)
	}
	return hashWithDomain(DomainSpec, canonical), nil
}

// PassHash identifies the observable outcome of one propagation pass. The
// document must not contain run-specific data such as tokens, or replays
// could never match.
func PassHash(doc IRObject) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("PassHash: %w", err)
	}
	return hashWithDomain(DomainPass, canonical), nil
}
