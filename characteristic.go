package peripheral

import (
	"github.com/go-ble/ble"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Do not re-order the bit flags below;
// they are organized to match the platform attribute permission masks.

// Permission controls which requests a connected central may issue
// against an attribute value.
type Permission uint8

// Attribute permission flags.
const (
	PermRead           Permission = 1 << iota // the value may be read
	PermWrite                                 // the value may be written
	PermReadEncrypted                         // read requires an encrypted link
	PermWriteEncrypted                        // write requires an encrypted link
)

func (p Permission) readable() bool  { return p&(PermRead|PermReadEncrypted) != 0 }
func (p Permission) writeable() bool { return p&(PermWrite|PermWriteEncrypted) != 0 }

// Client Characteristic Configuration bits written by a central.
const (
	cccNotify   = 0x0001
	cccIndicate = 0x0002
)

// A Characteristic is a BLE characteristic owned by a Service.
//
// A nil value marks a dynamic characteristic whose value is supplied
// later, by a write or by Device.UpdateCharacteristic. Reading one
// yields an empty value.
type Characteristic struct {
	uuid  ble.UUID
	props ble.Property
	perms Permission
	value []byte
	descs *orderedmap.OrderedMap[string, *Descriptor]

	service *Service
}

func newCharacteristic(s *Service, u ble.UUID, props ble.Property, perms Permission, value []byte) *Characteristic {
	return &Characteristic{
		uuid:    u,
		props:   props,
		perms:   perms,
		value:   clone(value),
		descs:   orderedmap.New[string, *Descriptor](),
		service: s,
	}
}

// UUID returns the characteristic's UUID.
func (c *Characteristic) UUID() ble.UUID { return c.uuid }

// Properties returns the characteristic property bits.
func (c *Characteristic) Properties() ble.Property { return c.props }

// Permissions returns the attribute permissions.
func (c *Characteristic) Permissions() Permission { return c.perms }

// Service returns the owning service.
func (c *Characteristic) Service() *Service { return c.service }

// Value returns a copy of the current value; nil for a dynamic
// characteristic that was never assigned.
func (c *Characteristic) Value() []byte { return clone(c.value) }

// Dynamic reports whether the characteristic has no value yet.
func (c *Characteristic) Dynamic() bool { return c.value == nil }

// Descriptors returns the descriptors in insertion order.
func (c *Characteristic) Descriptors() []*Descriptor {
	dd := make([]*Descriptor, 0, c.descs.Len())
	for p := c.descs.Oldest(); p != nil; p = p.Next() {
		dd = append(dd, p.Value)
	}
	return dd
}

// Descriptor returns the descriptor u, or nil.
func (c *Characteristic) Descriptor(u ble.UUID) *Descriptor {
	d, _ := c.descs.Get(CanonicalUUID(u))
	return d
}

func (c *Characteristic) canNotify() bool {
	return c.props&(ble.CharNotify|ble.CharIndicate) != 0
}

// A Descriptor is a characteristic descriptor. It follows the same
// read and write rules as a characteristic value.
type Descriptor struct {
	uuid  ble.UUID
	perms Permission
	value []byte

	char *Characteristic
}

// UUID returns the descriptor's UUID.
func (d *Descriptor) UUID() ble.UUID { return d.uuid }

// Permissions returns the attribute permissions.
func (d *Descriptor) Permissions() Permission { return d.perms }

// Value returns a copy of the current value.
func (d *Descriptor) Value() []byte { return clone(d.value) }

// Characteristic returns the owning characteristic.
func (d *Descriptor) Characteristic() *Characteristic { return d.char }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
