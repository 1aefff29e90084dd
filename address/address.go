// Package address extracts a display name and bare address from a free-form
// RFC 822 "From" header value.
package address

import "strings"

// Address is the parsed form of a sender header.
type Address struct {
	DisplayName string
	Email       string
}

// Parse splits a raw sender header into a display name and an address.
// It is total: every input yields an Address, malformed headers included.
//
// Rules, applied in order:
//  1. "Name <addr>" form: the name is everything before the first '<',
//     trimmed; the address is everything between '<' and the next '>'.
//     A missing '>' leaves the remainder after '<' as the address.
//  2. A bare address containing '@': the name is the local part, the
//     address is the raw string.
//  3. Anything else is used verbatim for both fields.
func Parse(raw string) Address {
	if idx := strings.Index(raw, "<"); idx >= 0 {
		name := strings.TrimSpace(raw[:idx])
		rest := raw[idx+1:]
		email := rest
		if end := strings.Index(rest, ">"); end >= 0 {
			email = rest[:end]
		}
		return Address{
			DisplayName: name,
			Email:       strings.TrimSpace(email),
		}
	}

	if idx := strings.Index(raw, "@"); idx >= 0 {
		return Address{
			DisplayName: strings.TrimSpace(raw[:idx]),
			Email:       raw,
		}
	}

	return Address{DisplayName: raw, Email: raw}
}
