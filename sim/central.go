package sim

import (
	"github.com/XC-/peripheral"
)

// Central drives a Device the way a connected central would, through
// its host callbacks.
type Central struct {
	ID  string
	MTU int

	dev    *peripheral.Device
	nextID int
}

// NewCentral returns a central with the default MTU.
func NewCentral(id string, d *peripheral.Device) *Central {
	return &Central{ID: id, MTU: peripheral.DefaultMTU, dev: d}
}

// Connect reports the connection and the negotiated MTU.
func (c *Central) Connect() {
	c.dev.Connected(c.ID)
	c.dev.MTUChanged(c.ID, c.MTU)
}

// Disconnect reports the link going down.
func (c *Central) Disconnect() { c.dev.Disconnected(c.ID) }

// Read reads the whole value of t with read blob requests.
func (c *Central) Read(t peripheral.Target) ([]byte, error) {
	var v []byte
	chunk := c.MTU - 1
	for {
		b, err := c.dev.Read(c.ID, t, len(v))
		if err != nil {
			return nil, err
		}
		if len(b) > chunk {
			b = b[:chunk]
		}
		v = append(v, b...)
		if len(b) < chunk {
			return v, nil
		}
	}
}

// Write writes value to t in one request.
func (c *Central) Write(t peripheral.Target, value []byte) error {
	return c.dev.Write(c.ID, peripheral.WriteRequest{Target: t, Value: value})
}

// LongWrite writes value to t as a prepared-write transaction split
// into fragments that fit the MTU, then commits it.
func (c *Central) LongWrite(t peripheral.Target, value []byte) error {
	c.nextID++
	id := c.nextID
	chunk := c.MTU - 5
	for off := 0; off < len(value); off += chunk {
		end := off + chunk
		if end > len(value) {
			end = len(value)
		}
		err := c.dev.Write(c.ID, peripheral.WriteRequest{
			Target:   t,
			Offset:   off,
			Value:    value[off:end],
			Prepared: true,
			ID:       id,
		})
		if err != nil {
			c.dev.ExecuteWrite(c.ID, id, false)
			return err
		}
	}
	return c.dev.ExecuteWrite(c.ID, id, true)
}

// Subscribe enables notifications by writing the characteristic's
// Client Characteristic Configuration descriptor.
func (c *Central) Subscribe(t peripheral.Target) error {
	t.Descriptor = peripheral.UUID16(0x2902)
	return c.dev.Write(c.ID, peripheral.WriteRequest{Target: t, Value: []byte{0x01, 0x00}})
}

// Unsubscribe clears the Client Characteristic Configuration.
func (c *Central) Unsubscribe(t peripheral.Target) error {
	t.Descriptor = peripheral.UUID16(0x2902)
	return c.dev.Write(c.ID, peripheral.WriteRequest{Target: t, Value: []byte{0x00, 0x00}})
}
