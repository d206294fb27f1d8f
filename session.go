package peripheral

import (
	"fmt"

	"github.com/XC-/peripheral/event"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
)

// A WriteRequest is a write from a central to one attribute.
type WriteRequest struct {
	Target

	// Offset is where Value is spliced in. The new value is the old
	// value up to Offset followed by Value.
	Offset int
	Value  []byte

	// Prepared stages the fragment in transaction ID instead of
	// applying it; ExecuteWrite commits or cancels the transaction.
	Prepared bool
	ID       int
}

// attach returns the peer for device, treating a request from an
// unknown central as an implicit connect. Callers hold d.mu.
func (d *Device) attach(device string) *peer {
	p, created := d.peers.connect(device)
	if created {
		d.log.WithField("device", device).Info("Central connected")
		d.emit(event.Event{Kind: event.PeerConnected, Device: device})
	}
	return p
}

// current returns the value of a as seen by peer p.
func current(p *peer, a attribute) []byte {
	if isCCC(a) {
		return p.ccc(charAttr{a.characteristic()}.key())
	}
	return a.get()
}

// assign stores v into a. Writing a Client Characteristic
// Configuration descriptor changes p's subscription instead.
// Callers hold d.mu.
func (d *Device) assign(p *peer, a attribute, v []byte) {
	if !isCCC(a) {
		a.set(v)
		return
	}
	var bits byte
	if len(v) > 0 {
		bits = v[0]
	}
	c := a.characteristic()
	if bits&(cccNotify|cccIndicate) == 0 {
		d.unsubscribe(p, c)
		return
	}
	// fall back to whichever of the two the characteristic supports
	indicate := bits&cccIndicate != 0 && c.props&ble.CharIndicate != 0 || c.props&ble.CharNotify == 0
	d.subscribe(p, c, indicate)
}

// checkWrite validates a write to a without applying it.
func checkWrite(a attribute) error {
	if !a.perms().writeable() {
		return ErrWriteNotPermitted
	}
	if isCCC(a) && !a.characteristic().canNotify() {
		return ErrNotSubscribable
	}
	return nil
}

func (d *Device) reqLog(device string, t Target) *logrus.Entry {
	return d.log.WithFields(logrus.Fields{
		"device": device,
		"target": t,
	})
}

// Read is the host callback for a read request. It returns the value
// from offset on, which is empty when offset equals the value length.
func (d *Device) Read(device string, t Target, offset int) ([]byte, error) {
	d.mu.Lock()
	defer d.unlock()
	log := d.reqLog(device, t).WithField("offset", offset)

	a, err := d.store.lookup(t)
	if err != nil {
		log.WithError(err).Warn("Read rejected")
		return nil, err
	}
	if !a.perms().readable() {
		log.Warn("Read rejected: not readable")
		return nil, ErrReadNotPermitted
	}
	p := d.attach(device)
	v := current(p, a)
	if offset < 0 || offset > len(v) {
		log.WithField("length", len(v)).Warn("Read rejected: invalid offset")
		return nil, ErrInvalidOffset
	}
	log.Debug("Read")
	return append([]byte{}, v[offset:]...), nil
}

// Write is the host callback for a write request. Immediate writes
// are applied at once and reported with a CharacteristicWritten
// event; prepared writes are staged.
func (d *Device) Write(device string, r WriteRequest) error {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()
	d.mu.Lock()
	defer d.unlock()
	log := d.reqLog(device, r.Target).WithFields(logrus.Fields{
		"offset": r.Offset,
		"length": len(r.Value),
	})

	a, err := d.store.lookup(r.Target)
	if err != nil {
		log.WithError(err).Warn("Write rejected")
		return err
	}
	if err := checkWrite(a); err != nil {
		log.WithError(err).Warn("Write rejected")
		return err
	}
	p := d.attach(device)

	if r.Prepared {
		if err := d.queue.stage(device, r.ID, r.Target, a.key(), r.Offset, r.Value); err != nil {
			log.WithError(err).WithField("request_id", r.ID).Warn("Prepared write rejected")
			return err
		}
		log.WithField("request_id", r.ID).Debug("Prepared write staged")
		return nil
	}

	v, err := splice(current(p, a), r.Offset, r.Value)
	if err != nil {
		log.WithError(err).Warn("Write rejected")
		return err
	}
	d.assign(p, a, v)
	log.Debug("Write")
	if !isCCC(a) {
		d.emit(event.Event{Kind: event.CharacteristicWritten, Characteristics: []event.Written{a.written()}})
	}
	return nil
}

// WriteBatch is the host callback for several writes sharing one
// response. The batch is all or nothing: every item is validated in
// order, items addressing the same attribute compose, and the first
// failure rejects the whole batch with nothing applied. On success a
// single CharacteristicWritten event lists every written attribute.
// Items are applied immediately; Prepared is ignored.
func (d *Device) WriteBatch(device string, rr []WriteRequest) error {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()
	d.mu.Lock()
	defer d.unlock()
	p := d.attach(device)

	scratch := map[string][]byte{}
	var order []attribute
	for i, r := range rr {
		a, err := d.store.lookup(r.Target)
		if err == nil {
			err = checkWrite(a)
		}
		if err != nil {
			d.reqLog(device, r.Target).WithError(err).WithField("item", i).Warn("Write batch rejected")
			return fmt.Errorf("batch item %d: %w", i, err)
		}
		cur, ok := scratch[a.key()]
		if !ok {
			cur = current(p, a)
			order = append(order, a)
		}
		v, err := splice(cur, r.Offset, r.Value)
		if err != nil {
			d.reqLog(device, r.Target).WithError(err).WithField("item", i).Warn("Write batch rejected")
			return fmt.Errorf("batch item %d: %w", i, err)
		}
		scratch[a.key()] = v
	}

	var written []event.Written
	for _, a := range order {
		d.assign(p, a, scratch[a.key()])
		if !isCCC(a) {
			written = append(written, a.written())
		}
	}
	d.log.WithFields(logrus.Fields{"device": device, "items": len(rr)}).Debug("Write batch applied")
	if len(written) > 0 {
		d.emit(event.Event{Kind: event.CharacteristicWritten, Characteristics: written})
	}
	return nil
}

// ExecuteWrite is the host callback ending prepared-write transaction
// id. With commit the staged bytes replace the target value in full;
// without, they are dropped. An unknown id is a no-op success.
func (d *Device) ExecuteWrite(device string, id int, commit bool) error {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()
	d.mu.Lock()
	defer d.unlock()
	log := d.log.WithFields(logrus.Fields{"device": device, "request_id": id, "commit": commit})

	pw, ok := d.queue.take(device, id)
	if !ok {
		log.Debug("Execute write: nothing staged")
		return nil
	}
	if !commit {
		log.Debug("Prepared write cancelled")
		return nil
	}
	a, err := d.store.lookup(pw.target)
	if err == nil && a.key() != pw.key {
		err = notFound("characteristic", pw.key)
	}
	if err != nil {
		log.WithError(err).Warn("Execute write rejected")
		return err
	}
	p := d.attach(device)
	d.assign(p, a, pw.buf)
	log.WithField("length", len(pw.buf)).Debug("Prepared write committed")
	if !isCCC(a) {
		d.emit(event.Event{Kind: event.CharacteristicWritten, Characteristics: []event.Written{a.written()}})
	}
	return nil
}

// Subscribe is the host callback for a central enabling notifications
// or indications on a characteristic. Indications are chosen only when
// the characteristic cannot notify.
func (d *Device) Subscribe(device string, t Target) error {
	d.mu.Lock()
	defer d.unlock()
	c, err := d.store.Find(t.Service, t.Characteristic)
	if err != nil {
		return err
	}
	if !c.canNotify() {
		d.reqLog(device, t).Warn("Subscribe rejected")
		return ErrNotSubscribable
	}
	d.subscribe(d.attach(device), c, c.props&ble.CharNotify == 0)
	return nil
}

// Unsubscribe is the host callback for a central disabling
// notifications on a characteristic.
func (d *Device) Unsubscribe(device string, t Target) error {
	d.mu.Lock()
	defer d.unlock()
	c, err := d.store.Find(t.Service, t.Characteristic)
	if err != nil {
		return err
	}
	if p, ok := d.peers.get(device); ok {
		d.unsubscribe(p, c)
	}
	return nil
}

func (d *Device) subscribe(p *peer, c *Characteristic, indicate bool) {
	key := charAttr{c}.key()
	if prev, ok := p.subs[key]; ok && prev == indicate {
		return
	}
	_, existed := p.subs[key]
	p.subs[key] = indicate
	d.log.WithFields(logrus.Fields{
		"device":         p.id,
		"characteristic": key,
		"indicate":       indicate,
	}).Info("Central subscribed")
	if !existed {
		d.emit(event.Event{Kind: event.Subscribed, Device: p.id, Characteristic: CanonicalUUID(c.uuid)})
	}
}

func (d *Device) unsubscribe(p *peer, c *Characteristic) {
	key := charAttr{c}.key()
	if _, ok := p.subs[key]; !ok {
		return
	}
	delete(p.subs, key)
	d.log.WithFields(logrus.Fields{"device": p.id, "characteristic": key}).Info("Central unsubscribed")
	d.emit(event.Event{Kind: event.Unsubscribed, Device: p.id, Characteristic: CanonicalUUID(c.uuid)})
}

// dropSubscriptions forgets every subscription to key.
func (d *Device) dropSubscriptions(key string) {
	d.peers.each(func(p *peer) { delete(p.subs, key) })
}

// Connected is the host callback for a central connecting.
func (d *Device) Connected(device string) {
	d.mu.Lock()
	defer d.unlock()
	d.attach(device)
}

// Disconnected is the host callback for a central disconnecting. Its
// staged writes are dropped, never committed.
func (d *Device) Disconnected(device string) {
	d.mu.Lock()
	defer d.unlock()
	d.drop(device, "Central disconnected")
}

// ConnectionFailed is the host callback for a connection attempt that
// failed or a link that was lost.
func (d *Device) ConnectionFailed(device string) {
	d.mu.Lock()
	defer d.unlock()
	d.drop(device, "Central connection failed")
}

func (d *Device) drop(device, msg string) {
	n := d.queue.discard(device)
	if !d.peers.remove(device) {
		return
	}
	d.log.WithFields(logrus.Fields{"device": device, "discarded": n}).Info(msg)
	d.emit(event.Event{Kind: event.PeerDisconnected, Device: device})
}

// MTUChanged is the host callback for a negotiated ATT MTU.
// Notifications to the central are truncated to fit it.
func (d *Device) MTUChanged(device string, mtu int) {
	d.mu.Lock()
	defer d.unlock()
	if mtu < DefaultMTU {
		mtu = DefaultMTU
	}
	d.attach(device).mtu = mtu
}

// Peers returns a snapshot of the connected centrals, sorted by id.
func (d *Device) Peers() []PeerInfo {
	d.mu.Lock()
	defer d.unlock()
	var pp []PeerInfo
	d.peers.each(func(p *peer) { pp = append(pp, p.info()) })
	return pp
}

// IsConnected reports whether device is connected. It does not wait
// for requests in progress.
func (d *Device) IsConnected(device string) bool {
	_, ok := d.peers.get(device)
	return ok
}
