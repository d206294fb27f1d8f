package peripheral

import (
	"context"
	"errors"

	"github.com/XC-/peripheral/event"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
)

// A notifier sends value updates of one characteristic to one
// subscribed central.
type notifier struct {
	host     Host
	device   string
	svc      ble.UUID
	char     ble.UUID
	indicate bool
	maxlen   int
}

// send delivers data, truncated to what fits in one notification.
func (n notifier) send(data []byte) error {
	if n.maxlen > 0 && len(data) > n.maxlen {
		data = data[:n.maxlen]
	}
	return n.host.Notify(n.device, n.svc, n.char, data, n.indicate)
}

// UpdateCharacteristic replaces the value of characteristic char and
// then notifies every connected central subscribed to it. The value
// is stored even if notifying fails. It reports whether every
// notification was sent; with no subscribers that is trivially true.
//
// Concurrent updates and central writes are serialized as whole
// operations, so the last notification a central receives carries the
// stored value. If ctx is done before all sends are attempted the
// remaining ones are skipped and the result is false.
func (d *Device) UpdateCharacteristic(ctx context.Context, svc, char ble.UUID, value []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()

	d.mu.Lock()
	c, err := d.store.Find(svc, char)
	if err != nil {
		d.unlock()
		return false, err
	}
	c.value = append([]byte{}, value...)
	key := charAttr{c}.key()
	var nn []notifier
	d.peers.each(func(p *peer) {
		indicate, ok := p.subs[key]
		if !ok || p.state != Connected {
			return
		}
		nn = append(nn, notifier{
			host:     d.host,
			device:   p.id,
			svc:      c.service.uuid,
			char:     c.uuid,
			indicate: indicate,
			maxlen:   p.maxNotification(),
		})
	})
	log := d.log.WithFields(logrus.Fields{"characteristic": key, "subscribers": len(nn)})
	d.unlock()
	log.Debug("Characteristic updated")

	ok := true
	for _, n := range nn {
		if ctx.Err() != nil {
			return false, nil
		}
		gen := d.readyGeneration()
		err := n.send(value)
		if err == nil {
			continue
		}
		ok = false
		log.WithError(err).WithField("device", n.device).Warn("Notification not sent")
		if errors.Is(err, ErrNotifyQueueFull) {
			d.blocked(gen)
		}
	}
	return ok, nil
}

func (d *Device) readyGeneration() uint64 {
	d.mu.Lock()
	defer d.unlock()
	return d.readyGen
}

// blocked marks the transmit queue full unless the host signalled
// NotificationReady after generation gen was read.
func (d *Device) blocked(gen uint64) {
	d.mu.Lock()
	defer d.unlock()
	if d.readyGen == gen {
		d.notifyBlocked = true
	}
}

// NotificationReady is the host callback signalling that the transmit
// queue has room again after a send failed with ErrNotifyQueueFull.
// It may be called from within Host.Notify.
func (d *Device) NotificationReady() {
	d.mu.Lock()
	defer d.unlock()
	if d.notifyBlocked {
		d.log.Debug("Notification queue drained")
	}
	d.notifyBlocked = false
	d.readyGen++
	d.emit(event.Event{Kind: event.NotificationReady})
}

// NotifyBlocked reports whether a notification failed on a full
// transmit queue and the host has not yet signalled NotificationReady.
func (d *Device) NotifyBlocked() bool {
	d.mu.Lock()
	defer d.unlock()
	return d.notifyBlocked
}
