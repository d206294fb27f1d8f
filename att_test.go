package peripheral

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-ble/ble"
)

func TestATTStatus(t *testing.T) {
	cases := []struct {
		err  error
		want ble.ATTError
	}{
		{nil, StatusSuccess},
		{ErrInvalidOffset, StatusInvalidOffset},
		{fmt.Errorf("batch item 2: %w", ErrInvalidOffset), StatusInvalidOffset},
		{notFound("characteristic", "x"), StatusAttrNotFound},
		{ErrReadNotPermitted, StatusReadNotPerm},
		{ErrWriteNotPermitted, StatusWriteNotPerm},
		{ErrNotSubscribable, StatusReqNotSupp},
		{ble.ErrInvalidPDU, ble.ErrInvalidPDU},
		{errors.New("boom"), StatusUnexpectedError},
	}
	for _, tt := range cases {
		if got := ATTStatus(tt.err); got != tt.want {
			t.Errorf("ATTStatus(%v): got %v want %v", tt.err, got, tt.want)
		}
	}
}

func TestErrorResponse(t *testing.T) {
	cases := []struct {
		op   byte
		h    uint16
		err  error
		want string
	}{
		{attOpReadReq, 0x0003, notFound("characteristic"), "010a03000a"},
		{attOpReadBlobReq, 0x0103, ErrInvalidOffset, "010c030107"},
		{attOpWriteReq, 0x0010, ErrWriteNotPermitted, "0112100003"},
		{attOpPrepWriteReq, 0x0010, ErrInvalidOffset, "0116100007"},
		{attOpExecWriteReq, 0x0000, errors.New("boom"), "011800000e"},
	}
	for _, tt := range cases {
		if got := fmt.Sprintf("%x", ErrorResponse(tt.op, tt.h, tt.err)); got != tt.want {
			t.Errorf("ErrorResponse(%#x, %#x, %v): got %s want %s", tt.op, tt.h, tt.err, got, tt.want)
		}
	}
}

func TestSplice(t *testing.T) {
	cases := []struct {
		value  string
		offset int
		b      string
		want   string
		err    error
	}{
		{"", 0, "V", "V", nil},
		{"ABCD", 2, "X", "ABX", nil},
		{"ABCD", 4, "EF", "ABCDEF", nil},
		{"ABCD", 0, "", "", nil},
		{"ABCD", 5, "X", "", ErrInvalidOffset},
		{"ABCD", -1, "X", "", ErrInvalidOffset},
	}
	for _, tt := range cases {
		got, err := splice([]byte(tt.value), tt.offset, []byte(tt.b))
		if err != tt.err {
			t.Errorf("splice(%q, %d, %q): got error %v want %v", tt.value, tt.offset, tt.b, err, tt.err)
			continue
		}
		if err == nil && string(got) != tt.want {
			t.Errorf("splice(%q, %d, %q): got %q want %q", tt.value, tt.offset, tt.b, got, tt.want)
		}
	}
}
