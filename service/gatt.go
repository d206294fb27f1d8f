package service

import (
	"context"

	"github.com/XC-/peripheral"
	"github.com/go-ble/ble"
)

// AddGATT adds a Generic Attribute service with a Service Changed
// characteristic.
func AddGATT(d *peripheral.Device) error {
	if err := d.AddService(AttrGATTUUID, true); err != nil {
		return err
	}
	return d.AddCharacteristic(AttrGATTUUID, AttrServiceChangedUUID, ble.CharIndicate, 0, nil)
}

// ServicesChanged indicates to subscribed centrals that every handle
// from start to end may have changed.
func ServicesChanged(ctx context.Context, d *peripheral.Device, start, end uint16) (bool, error) {
	return d.UpdateCharacteristic(ctx, AttrGATTUUID, AttrServiceChangedUUID,
		[]byte{byte(start), byte(start >> 8), byte(end), byte(end >> 8)})
}
