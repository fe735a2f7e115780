// Package fingerprint computes the legacy signer fingerprint used by
// package catalogs to identify a signing lineage.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Size is the length of a fingerprint string: two hex characters per byte
// of the 128-bit digest.
const Size = md5.Size * 2

// Legacy returns the catalog fingerprint of raw DER certificate bytes.
//
// The certificate is first rendered as lowercase hex, and the digest is taken
// over that ASCII text rather than over the certificate itself. Catalogs
// store fingerprints computed this way, so the double encoding must stay:
// changing it would make every stored fingerprint stop matching.
func Legacy(raw []byte) string {
	ascii := make([]byte, hex.EncodedLen(len(raw)))
	hex.Encode(ascii, raw)
	sum := md5.Sum(ascii)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Valid reports whether s has the fingerprint format: Size uppercase hex
// characters.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// Equal compares two fingerprints ignoring case. Catalog data is not
// consistent about case.
func Equal(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
