package router

import (
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

var addressPattern = regexp.MustCompile(`0x[a-fA-F0-9]{40}`)

// extractAddress returns the first 40-hex-digit 0x address in the message,
// or "" when none is present.
func extractAddress(message string) string {
	return addressPattern.FindString(message)
}

// validAddress reports whether an extracted address passes validation.
// All-lowercase and all-uppercase hex are accepted as-is; mixed case must
// pass the EIP-55 checksum.
func validAddress(address string) bool {
	if len(address) != 42 || !strings.HasPrefix(address, "0x") {
		return false
	}
	hexPart := address[2:]
	lower := strings.ToLower(hexPart)
	if hexPart == lower || hexPart == strings.ToUpper(hexPart) {
		return true
	}
	return checksumAddress(lower) == hexPart
}

// checksumAddress applies EIP-55 casing to a lowercase hex address body.
func checksumAddress(lowerHex string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lowerHex))
	hash := hex.EncodeToString(h.Sum(nil))

	out := []byte(lowerHex)
	for i, c := range out {
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			out[i] = c - ('a' - 'A')
		}
	}
	return string(out)
}

// shortAddress renders 0x1234...abcd for display.
func shortAddress(address string) string {
	if len(address) < 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
