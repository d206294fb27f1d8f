// Package service has ready-made services to populate a
// peripheral.Device with.
package service

import (
	"github.com/XC-/peripheral"
	"github.com/go-ble/ble"
)

var (
	AttrGAPUUID                = peripheral.UUID16(0x1800)
	AttrDeviceNameUUID         = peripheral.UUID16(0x2A00)
	AttrAppearanceUUID         = peripheral.UUID16(0x2A01)
	AttrPeripheralPrivacyUUID  = peripheral.UUID16(0x2A02)
	AttrReconnectionAddrUUID   = peripheral.UUID16(0x2A03)
	AttrPreferredParamsUUID    = peripheral.UUID16(0x2A04)
	AttrGATTUUID               = peripheral.UUID16(0x1801)
	AttrServiceChangedUUID     = peripheral.UUID16(0x2A05)
	AttrBatteryUUID            = peripheral.UUID16(0x180F)
	AttrBatteryLevelUUID       = peripheral.UUID16(0x2A19)
	AttrUserDescriptionUUID    = peripheral.UUID16(0x2901)
	AttrPresentationFormatUUID = peripheral.UUID16(0x2904)
)

// AddGAP adds a Generic Access service describing the device. A
// registered GAP service replaces the default one the attribute table
// would otherwise include.
func AddGAP(d *peripheral.Device, name string) error {
	if err := d.AddService(AttrGAPUUID, true); err != nil {
		return err
	}
	chars := []struct {
		uuid  ble.UUID
		value []byte
	}{
		{AttrDeviceNameUUID, []byte(name)},
		{AttrAppearanceUUID, []byte{0x00, 0x80}},
		{AttrPeripheralPrivacyUUID, []byte{0x00}},
		{AttrReconnectionAddrUUID, []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
		{AttrPreferredParamsUUID, []byte{0x06, 0x00, 0x06, 0x00, 0x00, 0x00, 0xd0, 0x07}},
	}
	for _, c := range chars {
		if err := d.AddCharacteristic(AttrGAPUUID, c.uuid, ble.CharRead, peripheral.PermRead, c.value); err != nil {
			return err
		}
	}
	return nil
}
