package event

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventString(t *testing.T) {
	cases := []struct {
		e    Event
		want string
	}{
		{e: Event{Kind: StateChanged, State: "poweredOn"}, want: "onStateChanged{state=poweredOn}"},
		{e: Event{Kind: NotificationReady}, want: "onNotificationReady"},
		{e: Event{Kind: PeerConnected, Device: "p1"}, want: "onPeerConnected{device=p1}"},
		{e: Event{Kind: Subscribed, Device: "p1", Characteristic: "c1"}, want: "onSubscribed{device=p1 characteristic=c1}"},
		{
			e: Event{Kind: CharacteristicWritten, Characteristics: []Written{
				{Characteristic: "c1", Value: []byte{0x01, 0x02}},
				{Characteristic: "c1", Descriptor: "d1", Value: []byte{0xff}},
			}},
			want: "onCharacteristicWritten{c1=0102 c1/d1=ff}",
		},
	}
	for _, tt := range cases {
		if got := tt.e.String(); got != tt.want {
			t.Errorf("String(): got %q want %q", got, tt.want)
		}
	}
}

func TestMultiPreservesOrder(t *testing.T) {
	var got []string
	m := Multi{
		Func(func(e Event) { got = append(got, "a:"+e.Kind.String()) }),
		Func(func(e Event) { got = append(got, "b:"+e.Kind.String()) }),
	}
	m.Emit(Event{Kind: NotificationReady})
	assert.Equal(t, []string{"a:onNotificationReady", "b:onNotificationReady"}, got)
}

func TestBufferDrain(t *testing.T) {
	b := NewBuffer(16)
	for i := 0; i < 3; i++ {
		b.Emit(Event{Kind: PeerConnected, Device: fmt.Sprintf("p%d", i)})
	}

	ee := b.Drain()
	require.Len(t, ee, 3)
	for i, e := range ee {
		assert.Equal(t, fmt.Sprintf("p%d", i), e.Device, "events drain oldest first")
	}
	assert.Empty(t, b.Drain(), "buffer is empty after drain")
}

func TestBufferOverwritesOldest(t *testing.T) {
	b := NewBuffer(4)
	for i := 0; i < 64; i++ {
		b.Emit(Event{Kind: PeerConnected, Device: fmt.Sprintf("p%d", i)})
	}

	ee := b.Drain()
	require.NotEmpty(t, ee)
	assert.Less(t, len(ee), 64, "ring does not grow past its capacity")
	assert.Equal(t, "p63", ee[len(ee)-1].Device, "newest event survives overflow")
}
