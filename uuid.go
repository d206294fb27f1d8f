package peripheral

import (
	"fmt"
	"strings"

	"github.com/go-ble/ble"
)

// ParseUUID parses a 16-bit or 128-bit UUID string.
// Dashes are ignored, so both "180f" and
// "0000180f-0000-1000-8000-00805f9b34fb" are accepted.
func ParseUUID(s string) (ble.UUID, error) {
	u, err := ble.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid uuid %q: %w", s, err)
	}
	return u, nil
}

// MustParseUUID parses s, panicking on error.
func MustParseUUID(s string) ble.UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// UUID16 returns the 16-bit SIG assigned UUID i.
func UUID16(i uint16) ble.UUID { return ble.UUID16(i) }

// CanonicalUUID returns the lower case, dashed 128-bit form of u.
// Short SIG UUIDs are expanded against the Bluetooth base UUID, so
// "180f" and its 128-bit spelling map to the same string. Attribute
// lookups are keyed by this form.
func CanonicalUUID(u ble.UUID) string {
	b := ble.Reverse(u)
	switch len(b) {
	case 2:
		return fmt.Sprintf("0000%x-0000-1000-8000-00805f9b34fb", b)
	case 4:
		return fmt.Sprintf("%x-0000-1000-8000-00805f9b34fb", b)
	case 16:
		return fmt.Sprintf("%x-%x-%x-%x-%x", b[:4], b[4:6], b[6:8], b[8:10], b[10:])
	}
	return fmt.Sprintf("%x", b)
}

func uuidEqual(a, b ble.UUID) bool {
	return CanonicalUUID(a) == CanonicalUUID(b)
}
