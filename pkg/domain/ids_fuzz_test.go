package domain

import (
	"strings"
	"testing"
)

// FuzzParseAddress checks that address parsing never panics and that any
// accepted input round-trips through the canonical form.
func FuzzParseAddress(f *testing.F) {
	f.Add("")
	f.Add("0x1100000000000000000000000000000000000011")
	f.Add("0xAB00000000000000000000000000000000000011")
	f.Add("1100000000000000000000000000000000000011")
	f.Add("0x11")
	f.Add("not-an-address")
	f.Add("0x" + strings.Repeat("g", 40))
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		addr, err := ParseAddress(input)
		if err != nil {
			return
		}
		roundTrip, err := ParseAddress(addr.String())
		if err != nil {
			t.Errorf("accepted address %q failed round-trip: %v", input, err)
		}
		if roundTrip != addr {
			t.Errorf("round-trip changed address: %q -> %q", addr, roundTrip)
		}
		// Canonical form is lowercase with the 0x prefix.
		if addr.String() != strings.ToLower(addr.String()) {
			t.Errorf("canonical address %q is not lowercase", addr)
		}
	})
}

// FuzzParseRequestID checks that request ID parsing never panics and that
// accepted values round-trip.
func FuzzParseRequestID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		rid, err := ParseRequestID(input)
		if err != nil {
			return
		}
		roundTrip, err := ParseRequestID(rid.String())
		if err != nil {
			t.Errorf("accepted request ID %q failed round-trip: %v", input, err)
		}
		if roundTrip != rid {
			t.Error("round-trip changed request ID value")
		}
	})
}
