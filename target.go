package peripheral

import (
	"github.com/XC-/peripheral/event"
	"github.com/go-ble/ble"
)

// Target addresses an attribute value in a central's request.
//
// A nil Service searches every service in insertion order. A nil
// Descriptor addresses the characteristic value itself.
type Target struct {
	Service        ble.UUID
	Characteristic ble.UUID
	Descriptor     ble.UUID
}

func (t Target) String() string {
	s := "*"
	if t.Service != nil {
		s = CanonicalUUID(t.Service)
	}
	s += "/" + CanonicalUUID(t.Characteristic)
	if t.Descriptor != nil {
		s += "/" + CanonicalUUID(t.Descriptor)
	}
	return s
}

// attribute is a readable and writable attribute value: either a
// characteristic value or a descriptor.
type attribute interface {
	// key identifies the attribute independently of how it was
	// addressed.
	key() string
	get() []byte
	set([]byte)
	perms() Permission
	characteristic() *Characteristic
	written() event.Written
}

type charAttr struct{ c *Characteristic }

func (a charAttr) key() string {
	return CanonicalUUID(a.c.service.uuid) + "/" + CanonicalUUID(a.c.uuid)
}
func (a charAttr) get() []byte                     { return a.c.value }
func (a charAttr) set(v []byte)                    { a.c.value = v }
func (a charAttr) perms() Permission               { return a.c.perms }
func (a charAttr) characteristic() *Characteristic { return a.c }
func (a charAttr) written() event.Written {
	return event.Written{
		Service:        CanonicalUUID(a.c.service.uuid),
		Characteristic: CanonicalUUID(a.c.uuid),
		Value:          clone(a.c.value),
	}
}

type descAttr struct{ d *Descriptor }

func (a descAttr) key() string {
	return charAttr{a.d.char}.key() + "/" + CanonicalUUID(a.d.uuid)
}
func (a descAttr) get() []byte                     { return a.d.value }
func (a descAttr) set(v []byte)                    { a.d.value = v }
func (a descAttr) perms() Permission               { return a.d.perms }
func (a descAttr) characteristic() *Characteristic { return a.d.char }
func (a descAttr) written() event.Written {
	w := charAttr{a.d.char}.written()
	w.Descriptor = CanonicalUUID(a.d.uuid)
	w.Value = clone(a.d.value)
	return w
}

// isCCC reports whether a is a Client Characteristic Configuration
// descriptor. Its value is per peer and never stored.
func isCCC(a attribute) bool {
	d, ok := a.(descAttr)
	return ok && uuidEqual(d.d.uuid, gattAttrClientCharacteristicConfigUUID)
}

// splice returns value[:offset] followed by b. It fails with
// ErrInvalidOffset when offset is beyond the end of value.
func splice(value []byte, offset int, b []byte) ([]byte, error) {
	if offset < 0 || offset > len(value) {
		return nil, ErrInvalidOffset
	}
	v := make([]byte, 0, offset+len(b))
	v = append(v, value[:offset]...)
	return append(v, b...), nil
}
