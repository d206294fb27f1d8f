package service

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/XC-/peripheral"
	"github.com/go-ble/ble"
)

var (
	CountServiceUUID = peripheral.MustParseUUID("09fc95c0-c111-11e3-9904-0002a5d5c51b")
	CountValueUUID   = peripheral.MustParseUUID("11fac9e0-c111-11e3-9246-0002a5d5c51b")
	CountEchoUUID    = peripheral.MustParseUUID("16fe0d80-c111-11e3-b8c8-0002a5d5c51b")
)

// A Counter is a service with a notifying count and a writable echo
// characteristic that accepts long writes.
type Counter struct {
	d  *peripheral.Device
	mu sync.Mutex
	n  uint32
}

// AddCounter adds the count service to d.
func AddCounter(d *peripheral.Device) (*Counter, error) {
	if err := d.AddService(CountServiceUUID, true); err != nil {
		return nil, err
	}
	err := d.AddCharacteristic(CountServiceUUID, CountValueUUID,
		ble.CharRead|ble.CharNotify, peripheral.PermRead, []byte{0, 0, 0, 0})
	if err != nil {
		return nil, err
	}
	err = d.AddCharacteristic(CountServiceUUID, CountEchoUUID,
		ble.CharRead|ble.CharWrite, peripheral.PermRead|peripheral.PermWrite, nil)
	if err != nil {
		return nil, err
	}
	err = d.AddDescriptor(CountServiceUUID, CountEchoUUID, AttrUserDescriptionUUID,
		peripheral.PermRead, []byte("echo"))
	if err != nil {
		return nil, err
	}
	return &Counter{d: d}, nil
}

// Incr bumps the count and notifies subscribers. It returns the new
// count and whether every notification was sent.
func (c *Counter) Incr(ctx context.Context) (uint32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, c.n)
	ok, err := c.d.UpdateCharacteristic(ctx, CountServiceUUID, CountValueUUID, b)
	return c.n, ok, err
}
