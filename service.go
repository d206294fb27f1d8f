package peripheral

import (
	"github.com/go-ble/ble"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// A Service is a BLE service held by the attribute store.
type Service struct {
	uuid    ble.UUID
	primary bool
	chars   *orderedmap.OrderedMap[string, *Characteristic]
}

func newService(u ble.UUID, primary bool) *Service {
	return &Service{
		uuid:    u,
		primary: primary,
		chars:   orderedmap.New[string, *Characteristic](),
	}
}

// UUID returns the service's UUID.
func (s *Service) UUID() ble.UUID { return s.uuid }

// Primary reports whether the service is a primary service.
func (s *Service) Primary() bool { return s.primary }

// Characteristics returns the characteristics in insertion order.
func (s *Service) Characteristics() []*Characteristic {
	cc := make([]*Characteristic, 0, s.chars.Len())
	for p := s.chars.Oldest(); p != nil; p = p.Next() {
		cc = append(cc, p.Value)
	}
	return cc
}

// Characteristic returns the characteristic u, or nil.
func (s *Service) Characteristic(u ble.UUID) *Characteristic {
	c, _ := s.chars.Get(CanonicalUUID(u))
	return c
}
