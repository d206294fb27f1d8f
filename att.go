package peripheral

import (
	"errors"

	"github.com/go-ble/ble"
)

// ATT request opcodes answered by the engine.
const (
	attOpError        = 0x01
	attOpReadReq      = 0x0a
	attOpReadBlobReq  = 0x0c
	attOpWriteReq     = 0x12
	attOpPrepWriteReq = 0x16
	attOpExecWriteReq = 0x18
)

// Supported statuses for GATT characteristic read/write operations.
const (
	StatusSuccess         = ble.ErrSuccess
	StatusInvalidOffset   = ble.ErrInvalidOffset
	StatusAttrNotFound    = ble.ErrAttrNotFound
	StatusReadNotPerm     = ble.ErrReadNotPerm
	StatusWriteNotPerm    = ble.ErrWriteNotPerm
	StatusReqNotSupp      = ble.ErrReqNotSupp
	StatusUnexpectedError = ble.ErrUnlikely
)

// ATTStatus maps an engine error onto the ATT status a binding should
// answer the request with. A nil error maps to StatusSuccess.
func ATTStatus(err error) ble.ATTError {
	var status ble.ATTError
	switch {
	case err == nil:
		return StatusSuccess
	case errors.As(err, &status):
		return status
	case errors.Is(err, ErrInvalidOffset):
		return StatusInvalidOffset
	case errors.Is(err, ErrNotFound):
		return StatusAttrNotFound
	case errors.Is(err, ErrReadNotPermitted):
		return StatusReadNotPerm
	case errors.Is(err, ErrWriteNotPermitted):
		return StatusWriteNotPerm
	case errors.Is(err, ErrNotSubscribable):
		return StatusReqNotSupp
	}
	return StatusUnexpectedError
}

// ErrorResponse encodes an ATT Error Response PDU for a failed request
// with opcode op on attribute handle h.
func ErrorResponse(op byte, h uint16, err error) []byte {
	// little-endian encoding for handle
	return []byte{attOpError, op, byte(h), byte(h >> 8), byte(ATTStatus(err))}
}
