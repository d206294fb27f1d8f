// Package sim is an in-memory Host for a peripheral.Device. It stands
// in for a platform Bluetooth stack in tests and in the gattsim tool:
// the radio state is set by hand, advertising outcomes are reported
// asynchronously the way a platform callback queue would, and sent
// notifications are recorded.
package sim

import (
	"sync"
	"time"

	"github.com/XC-/peripheral"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
)

// Notification is one notification or indication sent by the device.
type Notification struct {
	Device         string
	Service        string
	Characteristic string
	Value          []byte
	Indicate       bool
}

// Host is a simulated Bluetooth stack.
type Host struct {
	mu sync.Mutex
	wg sync.WaitGroup

	dev *peripheral.Device
	log *logrus.Logger

	// advertising
	advFail    int // platform status to fail the next start with; 0 succeeds
	advRefuse  error
	advHold    bool
	held       []string
	advertised map[string]peripheral.AdvertisingParams
	stopped    []string
	starts     int
	delay      time.Duration

	// notifications
	queueDepth int
	inFlight   int
	notifyErr  map[string]error
	sent       []Notification
}

// New returns a Host. Attach a device before driving it.
func New(log *logrus.Logger) *Host {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Host{
		log:        log,
		advertised: map[string]peripheral.AdvertisingParams{},
		notifyErr:  map[string]error{},
	}
}

// Attach connects h to the device it reports callbacks to.
func (h *Host) Attach(d *peripheral.Device) {
	h.mu.Lock()
	h.dev = d
	h.mu.Unlock()
}

func (h *Host) device() *peripheral.Device {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dev
}

// SetRadioState delivers a radio state change to the device.
func (h *Host) SetRadioState(s peripheral.RadioState) {
	h.device().SetRadioState(s)
}

// FailAdvertising makes the next advertising starts fail with the
// platform status code; 0 restores success.
func (h *Host) FailAdvertising(code int) {
	h.mu.Lock()
	h.advFail = code
	h.mu.Unlock()
}

// RefuseAdvertising makes StartAdvertising return err synchronously;
// nil restores the default.
func (h *Host) RefuseAdvertising(err error) {
	h.mu.Lock()
	h.advRefuse = err
	h.mu.Unlock()
}

// HoldAdvertising keeps start outcomes from being reported until
// Release is called.
func (h *Host) HoldAdvertising(hold bool) {
	h.mu.Lock()
	h.advHold = hold
	h.mu.Unlock()
}

// SetAdvertisingDelay delays every reported start outcome.
func (h *Host) SetAdvertisingDelay(d time.Duration) {
	h.mu.Lock()
	h.delay = d
	h.mu.Unlock()
}

// StartAdvertising implements peripheral.Host.
func (h *Host) StartAdvertising(handle string, p peripheral.AdvertisingParams) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
	if h.advRefuse != nil {
		return h.advRefuse
	}
	h.advertised[handle] = p
	h.log.WithFields(logrus.Fields{
		"handle": handle,
		"mode":   p.Mode,
		"bytes":  len(p.AdvertisingData),
	}).Debug("sim: advertising requested")
	if h.advHold {
		h.held = append(h.held, handle)
		return nil
	}
	h.report(handle, h.advFail, h.delay)
	return nil
}

// report answers handle on a separate goroutine. Callers hold h.mu.
func (h *Host) report(handle string, code int, delay time.Duration) {
	d := h.dev
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if delay > 0 {
			time.Sleep(delay)
		}
		var err error
		if code != 0 {
			err = &peripheral.PlatformError{Op: "start advertising", Code: code}
		}
		d.AdvertisingStarted(handle, err)
	}()
}

// Release reports the outcome of every held advertising start.
func (h *Host) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, handle := range h.held {
		h.report(handle, h.advFail, 0)
	}
	h.held = nil
}

// Wait blocks until every reported callback has been delivered.
func (h *Host) Wait() { h.wg.Wait() }

// StopAdvertising implements peripheral.Host.
func (h *Host) StopAdvertising(handle string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.advertised, handle)
	h.stopped = append(h.stopped, handle)
	return nil
}

// Starts returns how many times advertising was requested.
func (h *Host) Starts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.starts
}

// Stops returns the handles advertising was stopped for.
func (h *Host) Stops() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.stopped...)
}

// Advertised returns the parameters of the advertisements not yet
// stopped.
func (h *Host) Advertised() []peripheral.AdvertisingParams {
	h.mu.Lock()
	defer h.mu.Unlock()
	var pp []peripheral.AdvertisingParams
	for _, p := range h.advertised {
		pp = append(pp, p)
	}
	return pp
}

// SetQueueDepth bounds the notifications in flight; 0 is unbounded.
func (h *Host) SetQueueDepth(n int) {
	h.mu.Lock()
	h.queueDepth = n
	h.mu.Unlock()
}

// FailNotify makes notifications to device fail with err; nil clears.
func (h *Host) FailNotify(device string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.notifyErr, device)
		return
	}
	h.notifyErr[device] = err
}

// Notify implements peripheral.Host.
func (h *Host) Notify(device string, svc, char ble.UUID, value []byte, indicate bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.notifyErr[device]; err != nil {
		return err
	}
	if h.queueDepth > 0 && h.inFlight >= h.queueDepth {
		return peripheral.ErrNotifyQueueFull
	}
	h.inFlight++
	h.sent = append(h.sent, Notification{
		Device:         device,
		Service:        peripheral.CanonicalUUID(svc),
		Characteristic: peripheral.CanonicalUUID(char),
		Value:          append([]byte{}, value...),
		Indicate:       indicate,
	})
	return nil
}

// Drain empties the transmit queue and signals the device.
func (h *Host) Drain() {
	h.mu.Lock()
	h.inFlight = 0
	d := h.dev
	h.mu.Unlock()
	d.NotificationReady()
}

// Sent returns every notification sent so far.
func (h *Host) Sent() []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Notification{}, h.sent...)
}
