package peripheral

import (
	"github.com/XC-/peripheral/event"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AdvertisingState is the state of the advertising session.
type AdvertisingState int

const (
	AdvertisingIdle AdvertisingState = iota
	AdvertisingStarting
	AdvertisingActive
	AdvertisingStopping
)

func (s AdvertisingState) String() string {
	str := []string{
		"idle",
		"starting",
		"active",
		"stopping",
	}
	if s < 0 || int(s) >= len(str) {
		return "unknown"
	}
	return str[int(s)]
}

// advertiser drives the advertising session:
//
//	Idle -> Starting -> Active -> Stopping -> Idle
//
// At most one session is Starting or Active, and only the callback
// handle issued for it is honored. The owning Device serializes
// every call.
type advertiser struct {
	host Host
	emit func(event.Event)
	log  *logrus.Logger

	state   AdvertisingState
	handle  string
	params  AdvertisingParams
	pending *Pending
}

func newAdvertiser(h Host, emit func(event.Event), log *logrus.Logger) *advertiser {
	return &advertiser{host: h, emit: emit, log: log}
}

func (a *advertiser) setState(s AdvertisingState) {
	if a.state == s {
		return
	}
	a.log.WithFields(logrus.Fields{"state": s, "handle": a.handle}).Debug("Advertising state changed")
	a.state = s
	a.emit(event.Event{Kind: event.AdvertisingStateChanged, State: s.String()})
}

// start asks the host to begin advertising p. It fails fast while
// another session is in flight or when the radio cannot advertise;
// in that case the host is never called. Otherwise the returned
// Pending resolves on the matching started callback.
func (a *advertiser) start(radio RadioState, p AdvertisingParams) (*Pending, error) {
	switch a.state {
	case AdvertisingStarting, AdvertisingStopping:
		return nil, ErrAlreadyStarting
	case AdvertisingActive:
		return nil, ErrAlreadyActive
	}
	if err := radio.startErr(); err != nil {
		return nil, err
	}

	a.handle = uuid.NewString()
	a.params = p
	a.pending = newPending()
	a.setState(AdvertisingStarting)

	if err := a.host.StartAdvertising(a.handle, p); err != nil {
		a.log.WithError(err).WithField("handle", a.handle).Error("Host refused to start advertising")
		a.finish(err)
		return nil, err
	}
	a.log.WithFields(logrus.Fields{
		"handle": a.handle,
		"mode":   p.Mode,
	}).Info("Advertising requested")
	return a.pending, nil
}

// started handles the host's start outcome for handle. It reports
// whether the callback matched the session in flight.
func (a *advertiser) started(handle string, err error) bool {
	if a.state != AdvertisingStarting || handle != a.handle {
		a.log.WithFields(logrus.Fields{
			"handle": handle,
			"state":  a.state,
		}).Debug("Ignoring stale advertising callback")
		return false
	}
	if err != nil {
		a.log.WithError(err).WithField("handle", handle).Error("Advertising failed to start")
		a.finish(err)
		return true
	}
	a.log.WithField("handle", handle).Info("Advertising")
	p := a.pending
	a.pending = nil
	a.setState(AdvertisingActive)
	p.resolve(nil)
	return true
}

// stop ends the session. A start still in flight is rejected with
// ErrAdvertisingCancelled. The session ends up Idle even if the host
// reports an error, which is returned. Stopping while Idle is a no-op.
func (a *advertiser) stop() error {
	if a.state == AdvertisingIdle {
		return nil
	}
	a.setState(AdvertisingStopping)
	err := a.host.StopAdvertising(a.handle)
	if err != nil {
		a.log.WithError(err).WithField("handle", a.handle).Warn("Host failed to stop advertising")
	}
	a.finish(ErrAdvertisingCancelled)
	return err
}

// radioChanged aborts the session when the radio leaves PoweredOn.
// The host has already lost the advertisement, so it is not called.
func (a *advertiser) radioChanged(s RadioState) {
	if s == StatePoweredOn || a.state == AdvertisingIdle {
		return
	}
	a.log.WithField("radio", s).Warn("Advertising aborted by radio state change")
	a.finish(ErrWrongRadioState)
}

// finish returns to Idle, rejecting any pending start with err.
func (a *advertiser) finish(err error) {
	p := a.pending
	a.pending = nil
	a.setState(AdvertisingIdle)
	a.handle = ""
	a.params = AdvertisingParams{}
	if p != nil {
		p.resolve(err)
	}
}
