package peripheral

import (
	"errors"
	"fmt"
)

// NotFoundError reports a service, characteristic or descriptor that
// is not present in the attribute store.
type NotFoundError struct {
	Resource string   // "service", "characteristic", "descriptor"
	UUIDs    []string // parent first, e.g. [service, characteristic]
}

func (e *NotFoundError) Error() string {
	if len(e.UUIDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.UUIDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	}
	parent := "service"
	if e.Resource == "descriptor" {
		parent = "characteristic"
	}
	return fmt.Sprintf("%s %q not found in %s %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], parent, e.UUIDs[len(e.UUIDs)-2])
}

// Is makes every *NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(resource string, uuids ...string) error {
	return &NotFoundError{Resource: resource, UUIDs: uuids}
}

// Attribute store and request errors.
var (
	ErrNotFound                = errors.New("not found")
	ErrDuplicateService        = errors.New("duplicate service")
	ErrDuplicateCharacteristic = errors.New("duplicate characteristic")
	ErrInvalidOffset           = errors.New("invalid offset")
	ErrReadNotPermitted        = errors.New("read not permitted")
	ErrWriteNotPermitted       = errors.New("write not permitted")
	ErrNotSubscribable         = errors.New("characteristic does not support notify or indicate")
)

// Lifecycle and advertising errors.
var (
	ErrWrongRadioState      = errors.New("radio is not powered on")
	ErrPermissionDenied     = errors.New("bluetooth permission denied")
	ErrAlreadyStarting      = errors.New("already starting")
	ErrAlreadyActive        = errors.New("already active")
	ErrAdvertisingCancelled = errors.New("advertising cancelled")
	ErrNotifyQueueFull      = errors.New("notification queue full")
	ErrEIRPacketTooLong     = errors.New("max packet length is 31")
	ErrAdvDataTooLong       = errors.New("advertising data too long")
)

// PlatformError carries an opaque status code reported by the host
// Bluetooth stack, e.g. an advertise start failure.
type PlatformError struct {
	Op   string
	Code int
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s failed: platform status %d", e.Op, e.Code)
}

// IsPlatformError reports whether err carries a platform status code
// and returns it.
func IsPlatformError(err error) (int, bool) {
	var perr *PlatformError
	if errors.As(err, &perr) {
		return perr.Code, true
	}
	return 0, false
}
