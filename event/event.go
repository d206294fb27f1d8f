// Package event defines the outward notifications a peripheral emits
// to the binding layer, and the sinks that deliver them.
//
// Events are fire-and-forget: the engine never waits on a sink and
// expects no acknowledgment.
package event

import (
	"fmt"
	"strings"
)

// Kind identifies an event.
type Kind int

const (
	StateChanged Kind = iota
	NotificationReady
	CharacteristicWritten
	AdvertisingStateChanged
	PeerConnected
	PeerDisconnected
	Subscribed
	Unsubscribed
)

func (k Kind) String() string {
	switch k {
	case StateChanged:
		return "onStateChanged"
	case NotificationReady:
		return "onNotificationReady"
	case CharacteristicWritten:
		return "onCharacteristicWritten"
	case AdvertisingStateChanged:
		return "onAdvertisingStateChanged"
	case PeerConnected:
		return "onPeerConnected"
	case PeerDisconnected:
		return "onPeerDisconnected"
	case Subscribed:
		return "onSubscribed"
	case Unsubscribed:
		return "onUnsubscribed"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Written describes one attribute value changed by a central.
// Descriptor is empty when the characteristic value itself was written.
type Written struct {
	Service        string
	Characteristic string
	Descriptor     string
	Value          []byte
}

// Event is a single outward notification. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind            Kind
	State           string    // StateChanged, AdvertisingStateChanged
	Device          string    // peer events
	Characteristic  string    // Subscribed, Unsubscribed
	Characteristics []Written // CharacteristicWritten
}

func (e Event) String() string {
	switch e.Kind {
	case StateChanged, AdvertisingStateChanged:
		return fmt.Sprintf("%s{state=%s}", e.Kind, e.State)
	case PeerConnected, PeerDisconnected:
		return fmt.Sprintf("%s{device=%s}", e.Kind, e.Device)
	case Subscribed, Unsubscribed:
		return fmt.Sprintf("%s{device=%s characteristic=%s}", e.Kind, e.Device, e.Characteristic)
	case CharacteristicWritten:
		parts := make([]string, 0, len(e.Characteristics))
		for _, w := range e.Characteristics {
			id := w.Characteristic
			if w.Descriptor != "" {
				id += "/" + w.Descriptor
			}
			parts = append(parts, fmt.Sprintf("%s=%x", id, w.Value))
		}
		return fmt.Sprintf("%s{%s}", e.Kind, strings.Join(parts, " "))
	}
	return e.Kind.String()
}

// A Sink receives events. Emit must not block for long; it is called
// with the peripheral's state lock released but on the caller's
// goroutine.
type Sink interface {
	Emit(Event)
}

// Func is an adapter to allow the use of ordinary functions as Sinks.
type Func func(Event)

// Emit calls f(e).
func (f Func) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = Func(func(Event) {})

// Multi fans an event out to every sink in order.
type Multi []Sink

// Emit delivers e to each sink.
func (m Multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}
