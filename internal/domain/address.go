package domain

import "strings"

// Address identifies a caller: a 0x-prefixed, lowercased secp256k1 address
// recovered from a request signature. The core trusts address equality as
// sufficient authorization; key handling lives in the ident package.
type Address string

// NormalizeAddress lowercases an address so equality checks are stable
// regardless of checksum casing on the wire.
func NormalizeAddress(s string) Address {
	return Address(strings.ToLower(strings.TrimSpace(s)))
}

// Zero reports whether the address is empty.
func (a Address) Zero() bool {
	return a == ""
}

func (a Address) String() string {
	return string(a)
}
