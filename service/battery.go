package service

import (
	"context"
	"fmt"

	"github.com/XC-/peripheral"
	"github.com/go-ble/ble"
)

// AddBattery adds a Battery service reporting level percent.
func AddBattery(d *peripheral.Device, level uint8) error {
	if level > 100 {
		return fmt.Errorf("battery level %d out of range", level)
	}
	if err := d.AddService(AttrBatteryUUID, true); err != nil {
		return err
	}
	err := d.AddCharacteristic(AttrBatteryUUID, AttrBatteryLevelUUID,
		ble.CharRead|ble.CharNotify, peripheral.PermRead, []byte{level})
	if err != nil {
		return err
	}
	// unsigned 8-bit, exponent 0, unit percentage
	return d.AddDescriptor(AttrBatteryUUID, AttrBatteryLevelUUID, AttrPresentationFormatUUID,
		peripheral.PermRead, []byte{0x04, 0x00, 0xad, 0x27, 0x01, 0x00, 0x00})
}

// SetBatteryLevel updates the level and notifies subscribers.
func SetBatteryLevel(ctx context.Context, d *peripheral.Device, level uint8) (bool, error) {
	if level > 100 {
		return false, fmt.Errorf("battery level %d out of range", level)
	}
	return d.UpdateCharacteristic(ctx, AttrBatteryUUID, AttrBatteryLevelUUID, []byte{level})
}
