package peripheral

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/XC-/peripheral/event"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
)

// ErrStopped is returned to a Start call pending when Stop is called.
var ErrStopped = errors.New("peripheral stopped")

// Device is a BLE peripheral: a GATT server and advertiser on top of
// a Host. It owns the attribute store, the prepared-write queue, the
// connected centrals and the advertising session.
//
// All methods are safe for concurrent use. Application calls and host
// callbacks are serialized, so each one is applied in full before the
// next. Events are delivered to the sink after the state lock is
// released, in the order they occurred within each call.
type Device struct {
	// notifyMu orders value changes with their notification fan-out.
	// It is taken before mu and held across Host.Notify.
	notifyMu sync.Mutex
	mu       sync.Mutex

	name  string
	store *Store
	queue *prepareQueue
	peers *peerTable
	adv   *advertiser
	host  Host
	sink  event.Sink
	log   *logrus.Logger

	prepareCap int

	radio         RadioState
	starting      *Pending
	serving       bool
	notifyBlocked bool
	readyGen      uint64

	outbox []event.Event
}

// NewDevice returns a Device driving host h.
func NewDevice(h Host, opts ...Option) *Device {
	d := &Device{
		name:       "peripheral",
		store:      NewStore(),
		peers:      newPeerTable(),
		host:       h,
		sink:       event.Discard,
		log:        logrus.StandardLogger(),
		prepareCap: DefaultPrepareQueueCapacity,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = newPrepareQueue(d.prepareCap, d.log)
	d.adv = newAdvertiser(h, d.emit, d.log)
	return d
}

// An Option configures a Device. Applying it returns an Option that
// restores the previous value.
type Option func(*Device) Option

// Option sets the options specified and returns an option to restore
// the last one's previous value.
func (d *Device) Option(opts ...Option) (prev Option) {
	d.mu.Lock()
	defer d.unlock()
	for _, opt := range opts {
		prev = opt(d)
	}
	return prev
}

// Name sets the device name used by the GAP service and as the
// default advertised local name.
func Name(s string) Option {
	return func(d *Device) Option {
		prev := d.name
		d.name = s
		return Name(prev)
	}
}

// Logger sets the logger.
func Logger(l *logrus.Logger) Option {
	return func(d *Device) Option {
		prev := d.log
		d.log = l
		if d.queue != nil {
			d.queue.log = l
		}
		if d.adv != nil {
			d.adv.log = l
		}
		return Logger(prev)
	}
}

// EventSink sets where events are delivered. A nil sink discards them.
func EventSink(s event.Sink) Option {
	return func(d *Device) Option {
		prev := d.sink
		if s == nil {
			s = event.Discard
		}
		d.sink = s
		return EventSink(prev)
	}
}

// PrepareQueueCapacity bounds the number of open prepared writes.
// Changing it on a running device drops every staged write.
func PrepareQueueCapacity(n int) Option {
	return func(d *Device) Option {
		prev := d.prepareCap
		d.prepareCap = n
		if d.queue != nil {
			d.queue.purge()
			d.queue = newPrepareQueue(n, d.log)
		}
		return PrepareQueueCapacity(prev)
	}
}

// emit queues e for delivery once the lock is released.
// Callers hold d.mu.
func (d *Device) emit(e event.Event) {
	d.outbox = append(d.outbox, e)
}

// unlock releases d.mu and delivers the queued events.
func (d *Device) unlock() {
	ee := d.outbox
	d.outbox = nil
	sink := d.sink
	d.mu.Unlock()
	for _, e := range ee {
		sink.Emit(e)
	}
}

// SetName sets the device name.
func (d *Device) SetName(name string) {
	d.Option(Name(name))
}

// Name returns the device name.
func (d *Device) Name() string {
	d.mu.Lock()
	defer d.unlock()
	return d.name
}

// AddService registers an empty service.
func (d *Device) AddService(u ble.UUID, primary bool) error {
	d.mu.Lock()
	defer d.unlock()
	if _, err := d.store.AddService(u, primary); err != nil {
		return err
	}
	d.log.WithField("service", CanonicalUUID(u)).Debug("Service added")
	return nil
}

// RemoveService removes service u. Subscriptions to its
// characteristics are dropped.
func (d *Device) RemoveService(u ble.UUID) error {
	d.mu.Lock()
	defer d.unlock()
	svc, err := d.store.Service(u)
	if err != nil {
		return err
	}
	for _, c := range svc.Characteristics() {
		d.dropSubscriptions(charAttr{c}.key())
	}
	if err := d.store.RemoveService(u); err != nil {
		return err
	}
	d.log.WithField("service", CanonicalUUID(u)).Debug("Service removed")
	return nil
}

// RemoveAllServices clears the attribute store.
func (d *Device) RemoveAllServices() {
	d.mu.Lock()
	defer d.unlock()
	d.store.RemoveAllServices()
	d.peers.each(func(p *peer) { p.subs = map[string]bool{} })
}

// AddCharacteristic appends a characteristic to service svc. A nil
// value makes it dynamic. Characteristics that can notify or indicate
// get a Client Characteristic Configuration descriptor.
func (d *Device) AddCharacteristic(svc, u ble.UUID, props ble.Property, perms Permission, value []byte) error {
	d.mu.Lock()
	defer d.unlock()
	c, err := d.store.AddCharacteristic(svc, u, props, perms, value)
	if err != nil {
		return err
	}
	if c.canNotify() {
		_, err := d.store.AddDescriptor(svc, u, gattAttrClientCharacteristicConfigUUID, PermRead|PermWrite, nil)
		if err != nil {
			return fmt.Errorf("client characteristic configuration: %w", err)
		}
	}
	d.log.WithFields(logrus.Fields{
		"service":        CanonicalUUID(svc),
		"characteristic": CanonicalUUID(u),
	}).Debug("Characteristic added")
	return nil
}

// AddDescriptor attaches a descriptor to characteristic char.
func (d *Device) AddDescriptor(svc, char, u ble.UUID, perms Permission, value []byte) error {
	d.mu.Lock()
	defer d.unlock()
	_, err := d.store.AddDescriptor(svc, char, u, perms, value)
	return err
}

// Services returns a snapshot of every service.
func (d *Device) Services() []ServiceInfo {
	d.mu.Lock()
	defer d.unlock()
	ss := d.store.Services()
	info := make([]ServiceInfo, 0, len(ss))
	for _, s := range ss {
		info = append(info, serviceInfo(s))
	}
	return info
}

// Characteristics returns a snapshot of the characteristics of
// service svc, or of every service when svc is nil.
func (d *Device) Characteristics(svc ble.UUID) ([]CharacteristicInfo, error) {
	d.mu.Lock()
	defer d.unlock()
	cc, err := d.store.List(svc)
	if err != nil {
		return nil, err
	}
	info := make([]CharacteristicInfo, 0, len(cc))
	for _, c := range cc {
		info = append(info, characteristicInfo(c))
	}
	return info, nil
}

// AttributeTable numbers every attribute, starting at handle 1. The
// GAP and GATT services are included unless already registered.
func (d *Device) AttributeTable() *HandleTable {
	d.mu.Lock()
	defer d.unlock()
	return generateHandles(d.name, d.store.Services(), 1)
}

// Start brings the GATT server up. It waits, until ctx is done, for
// the radio to settle if its state is not yet known. A second Start
// while one is waiting fails with ErrAlreadyStarting.
func (d *Device) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.starting != nil {
		d.unlock()
		return ErrAlreadyStarting
	}
	if d.serving {
		d.unlock()
		return ErrAlreadyActive
	}
	if d.radio.settled() {
		err := d.serve()
		d.unlock()
		return err
	}
	p := newPending()
	d.starting = p
	d.log.WithField("radio", d.radio).Info("Waiting for radio")
	d.unlock()

	err := p.Wait(ctx)
	if ctx.Err() != nil {
		d.mu.Lock()
		if d.starting == p {
			d.starting = nil
		}
		d.unlock()
		if err = p.Err(); err == nil && d.Serving() {
			return nil
		}
		return ctx.Err()
	}
	return err
}

// serve starts serving if the radio allows it. Callers hold d.mu.
func (d *Device) serve() error {
	if err := d.radio.startErr(); err != nil {
		d.log.WithError(err).WithField("radio", d.radio).Warn("Cannot start")
		return err
	}
	d.serving = true
	d.log.WithField("name", d.name).Info("Serving")
	return nil
}

// StartPending reports whether a Start call is waiting for the radio.
func (d *Device) StartPending() bool {
	d.mu.Lock()
	defer d.unlock()
	return d.starting != nil
}

// Serving reports whether Start succeeded and Stop has not been called
// since.
func (d *Device) Serving() bool {
	d.mu.Lock()
	defer d.unlock()
	return d.serving
}

// Stop stops advertising, disconnects every central and drops every
// staged write. A Start still waiting fails with ErrStopped.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.unlock()
	err := d.adv.stop()
	d.reset()
	if d.starting != nil {
		d.starting.resolve(ErrStopped)
		d.starting = nil
	}
	d.serving = false
	d.log.Info("Stopped")
	return err
}

// reset drops every peer and staged write. Callers hold d.mu.
func (d *Device) reset() {
	for _, id := range d.peers.clear() {
		d.emit(event.Event{Kind: event.PeerDisconnected, Device: id})
	}
	d.queue.purge()
	d.notifyBlocked = false
}

// StartAdvertising starts advertising cfg and waits for the host to
// confirm. If ctx is done first the attempt is cancelled and
// advertising stopped.
func (d *Device) StartAdvertising(ctx context.Context, cfg AdvertisingConfig) error {
	d.mu.Lock()
	if cfg.LocalName == "" {
		cfg.LocalName = d.name
	}
	if cfg.ServiceUUIDs == nil {
		for _, s := range d.store.Services() {
			if s.primary {
				cfg.ServiceUUIDs = append(cfg.ServiceUUIDs, s.uuid)
			}
		}
	}
	params, err := buildAdvertisement(cfg)
	if err != nil {
		d.unlock()
		return err
	}
	p, err := d.adv.start(d.radio, params)
	d.unlock()
	if err != nil {
		return err
	}

	select {
	case <-p.Done():
		return p.Err()
	case <-ctx.Done():
		d.mu.Lock()
		if d.adv.pending == p {
			d.adv.stop()
		}
		d.unlock()
		// p is resolved either way by now.
		if p.Err() == nil {
			return nil
		}
		return ctx.Err()
	}
}

// StopAdvertising stops advertising. It is a no-op when idle.
func (d *Device) StopAdvertising() error {
	d.mu.Lock()
	defer d.unlock()
	return d.adv.stop()
}

// AdvertisingState returns the advertising session state.
func (d *Device) AdvertisingState() AdvertisingState {
	d.mu.Lock()
	defer d.unlock()
	return d.adv.state
}

// RadioState returns the last radio state reported by the host.
func (d *Device) RadioState() RadioState {
	d.mu.Lock()
	defer d.unlock()
	return d.radio
}

// Enabled reports whether the radio is powered on.
func (d *Device) Enabled() bool { return d.RadioState() == StatePoweredOn }

// Authorized reports whether the application may use the radio.
func (d *Device) Authorized() bool {
	s := d.RadioState()
	return s != StateUnauthorized && s != StateUnknown
}

// SetRadioState is the host callback for radio power and
// authorization changes. Leaving PoweredOn aborts advertising, drops
// every central and stops serving. A waiting Start is answered once
// the state settles.
func (d *Device) SetRadioState(s RadioState) {
	d.mu.Lock()
	defer d.unlock()
	prev := d.radio
	d.radio = s
	if prev != s {
		d.log.WithFields(logrus.Fields{"from": prev, "to": s}).Info("Radio state changed")
		d.emit(event.Event{Kind: event.StateChanged, State: s.String()})
	}
	d.adv.radioChanged(s)
	if s != StatePoweredOn {
		d.reset()
		d.serving = false
	}
	if d.starting != nil && s.settled() {
		err := d.serve()
		d.starting.resolve(err)
		d.starting = nil
	}
}

// AdvertisingStarted is the host callback reporting the outcome of
// advertising session handle. Callbacks for sessions no longer in
// flight are ignored.
func (d *Device) AdvertisingStarted(handle string, err error) {
	d.mu.Lock()
	defer d.unlock()
	d.adv.started(handle, err)
}
