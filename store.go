package peripheral

import (
	"github.com/go-ble/ble"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// A Store holds the service, characteristic and descriptor tree and
// owns every attribute value. Services and characteristics keep
// insertion order; lookups that omit the service scan services in
// that order and return the first match.
//
// A Store is not safe for concurrent use. Device serializes all
// access to the store it owns.
type Store struct {
	svcs *orderedmap.OrderedMap[string, *Service]
}

// NewStore returns an empty attribute store.
func NewStore() *Store {
	return &Store{svcs: orderedmap.New[string, *Service]()}
}

// AddService registers a new, empty service.
// It fails with ErrDuplicateService if u is already present.
func (s *Store) AddService(u ble.UUID, primary bool) (*Service, error) {
	k := CanonicalUUID(u)
	if _, ok := s.svcs.Get(k); ok {
		return nil, &duplicateError{err: ErrDuplicateService, uuid: k}
	}
	svc := newService(u, primary)
	s.svcs.Set(k, svc)
	return svc, nil
}

// RemoveService removes service u and everything beneath it.
func (s *Store) RemoveService(u ble.UUID) error {
	k := CanonicalUUID(u)
	if _, ok := s.svcs.Delete(k); !ok {
		return notFound("service", k)
	}
	return nil
}

// RemoveAllServices clears the store. It is idempotent.
func (s *Store) RemoveAllServices() {
	s.svcs = orderedmap.New[string, *Service]()
}

// Service returns service u.
func (s *Store) Service(u ble.UUID) (*Service, error) {
	k := CanonicalUUID(u)
	svc, ok := s.svcs.Get(k)
	if !ok {
		return nil, notFound("service", k)
	}
	return svc, nil
}

// Services returns all services in insertion order.
func (s *Store) Services() []*Service {
	ss := make([]*Service, 0, s.svcs.Len())
	for p := s.svcs.Oldest(); p != nil; p = p.Next() {
		ss = append(ss, p.Value)
	}
	return ss
}

// AddCharacteristic appends a characteristic to service svc.
// A nil value creates a dynamic characteristic.
func (s *Store) AddCharacteristic(svc, u ble.UUID, props ble.Property, perms Permission, value []byte) (*Characteristic, error) {
	parent, err := s.Service(svc)
	if err != nil {
		return nil, err
	}
	k := CanonicalUUID(u)
	if _, ok := parent.chars.Get(k); ok {
		return nil, &duplicateError{err: ErrDuplicateCharacteristic, uuid: k}
	}
	c := newCharacteristic(parent, u, props, perms, value)
	parent.chars.Set(k, c)
	return c, nil
}

// AddDescriptor attaches a descriptor to characteristic char of
// service svc. An existing descriptor with the same UUID is replaced.
func (s *Store) AddDescriptor(svc, char, u ble.UUID, perms Permission, value []byte) (*Descriptor, error) {
	c, err := s.Find(svc, char)
	if err != nil {
		return nil, err
	}
	d := &Descriptor{uuid: u, perms: perms, value: clone(value), char: c}
	c.descs.Set(CanonicalUUID(u), d)
	return d, nil
}

// Find returns characteristic char. If svc is nil every service is
// searched in insertion order.
func (s *Store) Find(svc, char ble.UUID) (*Characteristic, error) {
	k := CanonicalUUID(char)
	if svc != nil {
		parent, err := s.Service(svc)
		if err != nil {
			return nil, err
		}
		c, ok := parent.chars.Get(k)
		if !ok {
			return nil, notFound("characteristic", CanonicalUUID(svc), k)
		}
		return c, nil
	}
	for p := s.svcs.Oldest(); p != nil; p = p.Next() {
		if c, ok := p.Value.chars.Get(k); ok {
			return c, nil
		}
	}
	return nil, notFound("characteristic", k)
}

// List returns the characteristics of service svc, or of every
// service when svc is nil.
func (s *Store) List(svc ble.UUID) ([]*Characteristic, error) {
	if svc != nil {
		parent, err := s.Service(svc)
		if err != nil {
			return nil, err
		}
		return parent.Characteristics(), nil
	}
	var cc []*Characteristic
	for p := s.svcs.Oldest(); p != nil; p = p.Next() {
		cc = append(cc, p.Value.Characteristics()...)
	}
	return cc, nil
}

// lookup resolves a request target to the attribute it addresses.
func (s *Store) lookup(t Target) (attribute, error) {
	c, err := s.Find(t.Service, t.Characteristic)
	if err != nil {
		return nil, err
	}
	if t.Descriptor == nil {
		return charAttr{c}, nil
	}
	d := c.Descriptor(t.Descriptor)
	if d == nil {
		return nil, notFound("descriptor", CanonicalUUID(t.Characteristic), CanonicalUUID(t.Descriptor))
	}
	return descAttr{d}, nil
}

type duplicateError struct {
	err  error
	uuid string
}

func (e *duplicateError) Error() string { return e.err.Error() + " " + e.uuid }
func (e *duplicateError) Unwrap() error { return e.err }
