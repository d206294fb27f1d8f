package peripheral

import (
	"fmt"

	"github.com/go-ble/ble"
)

// HandleType is the kind of attribute a Handle numbers.
type HandleType int

const (
	ServiceHandle HandleType = iota
	CharacteristicHandle
	CharacteristicValueHandle
	DescriptorHandle
)

func (t HandleType) String() string {
	str := []string{
		"service",
		"characteristic",
		"value",
		"descriptor",
	}
	if t < 0 || int(t) >= len(str) {
		return fmt.Sprintf("HandleType(%d)", int(t))
	}
	return str[int(t)]
}

// A Handle is one numbered attribute in the GATT table.
//
// For a service declaration EndN is the last handle of the service;
// for a characteristic declaration ValueN is the handle of its value
// and EndN the last handle of its descriptors.
type Handle struct {
	N      uint16
	EndN   uint16
	ValueN uint16
	Type   HandleType
	Attr   ble.UUID // attribute type: a declaration UUID, or UUID for values and descriptors
	UUID   ble.UUID // service, characteristic or descriptor UUID
	Props  ble.Property
	Perms  Permission
	Value  []byte // declaration value, or attribute value
}

// isPrimaryService reports whether this handle is
// the primary service with uuid u.
func (h Handle) isPrimaryService(u ble.UUID) bool {
	return h.Type == ServiceHandle && uuidEqual(h.Attr, gattAttrPrimaryServiceUUID) && uuidEqual(u, h.UUID)
}

// isCharacteristic reports whether this handle is the
// characteristic with uuid u.
func (h Handle) isCharacteristic(u ble.UUID) bool {
	return h.Type == CharacteristicHandle && uuidEqual(u, h.UUID)
}

func (h Handle) String() string {
	return fmt.Sprintf("0x%04X %-14s %s", h.N, h.Type, CanonicalUUID(h.UUID))
}

func generateHandles(name string, svcs []*Service, base uint16) *HandleTable {
	svcs = append(defaultServices(name, svcs), svcs...)
	var hh []Handle
	n := base
	for _, svc := range svcs {
		start := len(hh)
		decl := gattAttrPrimaryServiceUUID
		if !svc.primary {
			decl = gattAttrSecondaryServiceUUID
		}
		hh = append(hh, Handle{N: n, Type: ServiceHandle, Attr: decl, UUID: svc.uuid, Value: svc.uuid})
		n++
		for _, c := range svc.Characteristics() {
			ci := len(hh)
			hh = append(hh, Handle{
				N:      n,
				ValueN: n + 1,
				Type:   CharacteristicHandle,
				Attr:   gattAttrCharacteristicUUID,
				UUID:   c.uuid,
				Props:  c.props,
				// properties, value handle (little-endian), uuid
				Value: append([]byte{byte(c.props), byte(n + 1), byte((n + 1) >> 8)}, c.uuid...),
			})
			hh = append(hh, Handle{
				N:     n + 1,
				Type:  CharacteristicValueHandle,
				Attr:  c.uuid,
				UUID:  c.uuid,
				Props: c.props,
				Perms: c.perms,
				Value: c.Value(),
			})
			n += 2
			for _, d := range c.Descriptors() {
				hh = append(hh, Handle{N: n, Type: DescriptorHandle, Attr: d.uuid, UUID: d.uuid, Perms: d.perms, Value: d.Value()})
				n++
			}
			hh[ci].EndN = n - 1
		}
		hh[start].EndN = n - 1
	}
	return &HandleTable{hh: hh, base: base}
}

// defaultServices returns the GAP and GATT services, unless svcs
// already has them.
func defaultServices(name string, svcs []*Service) []*Service {
	has := func(u ble.UUID) bool {
		for _, s := range svcs {
			if uuidEqual(s.uuid, u) {
				return true
			}
		}
		return false
	}
	var ss []*Service
	if !has(gattAttrGAPUUID) {
		gap := newService(gattAttrGAPUUID, true)
		for _, c := range []*Characteristic{
			newCharacteristic(gap, gattAttrDeviceNameUUID, ble.CharRead, PermRead, []byte(name)),
			newCharacteristic(gap, gattAttrAppearanceUUID, ble.CharRead, PermRead, gapCharAppearanceGenericComputer),
		} {
			gap.chars.Set(CanonicalUUID(c.uuid), c)
		}
		ss = append(ss, gap)
	}
	if !has(gattAttrGATTUUID) {
		ss = append(ss, newService(gattAttrGATTUUID, true))
	}
	return ss
}

// A HandleTable is a contiguous range of handles.
type HandleTable struct {
	hh   []Handle
	base uint16 // handle number for first handle in hh
}

const (
	tooSmall = -1
	tooLarge = -2
)

// idx returns the index into hh corresponding to handle n.
// If n is too small, idx returns tooSmall (-1).
// If n is too large, idx returns tooLarge (-2).
func (r *HandleTable) idx(n int) int {
	if n < int(r.base) {
		return tooSmall
	}
	if n >= int(r.base)+len(r.hh) {
		return tooLarge
	}
	return n - int(r.base)
}

// At returns handle n.
func (r *HandleTable) At(n uint16) (h Handle, ok bool) {
	i := r.idx(int(n))
	if i < 0 {
		return Handle{}, false
	}
	return r.hh[i], true
}

// Subrange returns handles in range [start, end]; it may
// return an empty slice. Subrange does not panic for
// out-of-range start or end.
func (r *HandleTable) Subrange(start, end uint16) []Handle {
	startidx := r.idx(int(start))
	switch startidx {
	case tooSmall:
		startidx = 0
	case tooLarge:
		return []Handle{}
	}

	endidx := r.idx(int(end) + 1) // [start, end] includes its upper bound!
	switch endidx {
	case tooSmall:
		return []Handle{}
	case tooLarge:
		endidx = len(r.hh)
	}
	if endidx < startidx {
		return []Handle{}
	}
	return r.hh[startidx:endidx]
}

// Handles returns every handle in order.
func (r *HandleTable) Handles() []Handle { return r.hh }

// Len returns the number of handles.
func (r *HandleTable) Len() int { return len(r.hh) }

// PrimaryService returns the declaration handle of primary service u.
func (r *HandleTable) PrimaryService(u ble.UUID) (Handle, bool) {
	for _, h := range r.hh {
		if h.isPrimaryService(u) {
			return h, true
		}
	}
	return Handle{}, false
}

// Characteristic returns the declaration handle of characteristic u.
func (r *HandleTable) Characteristic(u ble.UUID) (Handle, bool) {
	for _, h := range r.hh {
		if h.isCharacteristic(u) {
			return h, true
		}
	}
	return Handle{}, false
}
