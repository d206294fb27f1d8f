package peripheral

import "github.com/go-ble/ble"

// Host is the platform Bluetooth stack a Device drives: the radio and
// link layer it sits on. Implementations must not call back into the
// Device from within these methods; outcomes are reported later
// through the Device's host callbacks (AdvertisingStarted,
// NotificationReady, SetRadioState and the request handlers).
type Host interface {
	// StartAdvertising begins advertising p. handle identifies this
	// advertising session and must be passed back to
	// Device.AdvertisingStarted with the outcome. A non-nil error
	// means the request was refused outright and no callback follows.
	StartAdvertising(handle string, p AdvertisingParams) error

	// StopAdvertising ends the advertising session handle.
	StopAdvertising(handle string) error

	// Notify sends a notification, or an indication if indicate is
	// set, of characteristic char to the central device. It returns
	// ErrNotifyQueueFull when the transmit queue is full; the host
	// calls Device.NotificationReady once it drains.
	Notify(device string, svc, char ble.UUID, value []byte, indicate bool) error
}
