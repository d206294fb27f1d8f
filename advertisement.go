package peripheral

import (
	"fmt"

	"github.com/go-ble/ble"
)

// MaxEIRPacketLength is the maximum allowed legacy advertising packet
// and scan response packet length.
const MaxEIRPacketLength = 31

// MaxExtendedAdvertisingDataLength is the largest advertising payload
// accepted for an advertising set.
const MaxExtendedAdvertisingDataLength = 251

// advertising data field types
const (
	typeFlags            = 0x01 // Flags
	typeSomeUUID16       = 0x02 // Incomplete List of 16-bit Service Class UUIDs
	typeAllUUID16        = 0x03 // Complete List of 16-bit Service Class UUIDs
	typeSomeUUID128      = 0x06 // Incomplete List of 128-bit Service Class UUIDs
	typeAllUUID128       = 0x07 // Complete List of 128-bit Service Class UUIDs
	typeShortName        = 0x08 // Shortened Local Name
	typeCompleteName     = 0x09 // Complete Local Name
	typeTxPower          = 0x0A // Tx Power Level
	typeManufacturerData = 0xFF // Manufacturer Specific Data
)

// flag bits
const (
	flagLimitedDiscoverable = 1 << iota // LE Limited Discoverable Mode
	flagGeneralDiscoverable             // LE General Discoverable Mode
	flagLEOnly                          // BR/EDR Not Supported.
)

// AdvertisingMode selects the advertising mechanism. It is either
// Legacy or Set; the two are mutually exclusive.
type AdvertisingMode interface {
	String() string
	limit() int
}

// Legacy is a single 31-byte advertisement with a scan response
// carrying the local name.
type Legacy struct{}

func (Legacy) String() string { return "legacy" }
func (Legacy) limit() int     { return MaxEIRPacketLength }

// Set is an extended advertising set.
type Set struct {
	Interval uint16 // in 0.625 ms units; 0 lets the host choose
	TxPower  int8   // dBm; 0 lets the host choose
}

func (Set) String() string { return "set" }
func (Set) limit() int     { return MaxExtendedAdvertisingDataLength }

// AdvertisingConfig describes what to advertise.
type AdvertisingConfig struct {
	// Mode defaults to Legacy.
	Mode AdvertisingMode

	// LocalName defaults to the device name.
	LocalName string

	// ServiceUUIDs to advertise. If nil, the UUIDs of the primary
	// services in the store are used. Only as many as fit are sent.
	ServiceUUIDs []ble.UUID

	// ManufacturerData is appended verbatim, company identifier first.
	ManufacturerData []byte

	Connectable bool
}

// AdvertisingParams is the fully built advertisement handed to the
// host for one advertising session.
type AdvertisingParams struct {
	Mode            AdvertisingMode
	Connectable     bool
	LocalName       string
	ServiceUUIDs    []ble.UUID // the UUIDs that fit
	AdvertisingData []byte
	ScanResponse    []byte // legacy only
}

// buildAdvertisement packs cfg. For Legacy the service UUIDs go into
// the advertising packet and the name into the scan response; for Set
// everything shares one larger payload.
func buildAdvertisement(cfg AdvertisingConfig) (AdvertisingParams, error) {
	mode := cfg.Mode
	if mode == nil {
		mode = Legacy{}
	}
	p := AdvertisingParams{Mode: mode, Connectable: cfg.Connectable, LocalName: cfg.LocalName}

	adv := &advPacket{limit: mode.limit()}
	adv.appendField(typeFlags, []byte{flagGeneralDiscoverable | flagLEOnly})
	if len(cfg.ManufacturerData) > 0 {
		if !adv.appendFit(typeManufacturerData, cfg.ManufacturerData) {
			return p, tooLong(mode)
		}
	}
	if s, ok := mode.(Set); ok && s.TxPower != 0 {
		adv.appendFit(typeTxPower, []byte{byte(s.TxPower)})
	}

	switch mode.(type) {
	case Set:
		if cfg.LocalName != "" {
			adv.appendNameFit(cfg.LocalName)
		}
	default:
		if cfg.LocalName != "" {
			p.ScanResponse = nameScanResponsePacket(cfg.LocalName)
		}
	}

	for _, u := range cfg.ServiceUUIDs {
		if adv.appendUUIDFit(u) {
			p.ServiceUUIDs = append(p.ServiceUUIDs, u)
		}
	}
	p.AdvertisingData = adv.data
	return p, nil
}

func tooLong(mode AdvertisingMode) error {
	if _, ok := mode.(Set); ok {
		return fmt.Errorf("%w: max %d bytes", ErrAdvDataTooLong, MaxExtendedAdvertisingDataLength)
	}
	return ErrEIRPacketTooLong
}

// nameScanResponsePacket constructs a scan response packet with
// the given name, truncated as necessary.
func nameScanResponsePacket(name string) []byte {
	scan := &advPacket{limit: MaxEIRPacketLength}
	scan.appendNameFit(name)
	return scan.data
}

type advPacket struct {
	data  []byte
	limit int
}

// appendField appends a BLE advertising packet field.
func (p *advPacket) appendField(typ byte, data []byte) {
	// A field consists of len, typ, data.
	// Len is 1 byte for typ plus len(data).
	p.data = append(p.data, byte(len(data)+1))
	p.data = append(p.data, typ)
	p.data = append(p.data, data...)
}

// appendFit appends a field if it fits and reports whether it did.
func (p *advPacket) appendFit(typ byte, data []byte) bool {
	if len(p.data)+2+len(data) > p.limit {
		return false
	}
	p.appendField(typ, data)
	return true
}

// appendNameFit appends the complete name, or as much of it as fits
// as a shortened name.
func (p *advPacket) appendNameFit(name string) bool {
	typ := byte(typeCompleteName)
	if max := p.limit - len(p.data) - 2; len(name) > max {
		if max <= 0 {
			return false
		}
		name = name[:max]
		typ = typeShortName
	}
	p.appendField(typ, []byte(name))
	return true
}

// appendUUIDFit appends a BLE advertised service UUID
// packet field if it fits in the packet, and reports
// whether the UUID fit.
func (p *advPacket) appendUUIDFit(u ble.UUID) bool {
	if len(p.data)+u.Len()+2 > p.limit {
		return false
	}
	// Assume that there might be other services available:
	// use typeSomeUUID instead of typeAllUUID.
	switch u.Len() {
	case 2:
		p.appendField(typeSomeUUID16, u)
	case 16:
		p.appendField(typeSomeUUID128, u)
	default:
		return false
	}
	return true
}
