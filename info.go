package peripheral

import "github.com/go-ble/ble"

// ServiceInfo is a snapshot of a service.
type ServiceInfo struct {
	UUID            string
	Primary         bool
	Characteristics []CharacteristicInfo
}

// CharacteristicInfo is a snapshot of a characteristic.
type CharacteristicInfo struct {
	Service     string
	UUID        string
	Properties  ble.Property
	Permissions Permission
	Value       []byte // nil for a dynamic characteristic
	Descriptors []DescriptorInfo
}

// DescriptorInfo is a snapshot of a descriptor.
type DescriptorInfo struct {
	UUID        string
	Permissions Permission
	Value       []byte
}

func serviceInfo(s *Service) ServiceInfo {
	info := ServiceInfo{UUID: CanonicalUUID(s.uuid), Primary: s.primary}
	for _, c := range s.Characteristics() {
		info.Characteristics = append(info.Characteristics, characteristicInfo(c))
	}
	return info
}

func characteristicInfo(c *Characteristic) CharacteristicInfo {
	info := CharacteristicInfo{
		Service:     CanonicalUUID(c.service.uuid),
		UUID:        CanonicalUUID(c.uuid),
		Properties:  c.props,
		Permissions: c.perms,
		Value:       c.Value(),
	}
	for _, d := range c.Descriptors() {
		info.Descriptors = append(info.Descriptors, DescriptorInfo{
			UUID:        CanonicalUUID(d.uuid),
			Permissions: d.perms,
			Value:       d.Value(),
		})
	}
	return info
}
