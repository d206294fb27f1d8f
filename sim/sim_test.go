package sim

import (
	"context"
	"io"
	"testing"

	"github.com/XC-/peripheral"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) (*peripheral.Device, *Host) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	h := New(log)
	d := peripheral.NewDevice(h, peripheral.Logger(log))
	h.Attach(d)
	return d, h
}

func TestHostAdvertisingLifecycle(t *testing.T) {
	d, h := newTestDevice(t)
	h.SetRadioState(peripheral.StatePoweredOn)

	require.NoError(t, d.StartAdvertising(context.Background(), peripheral.AdvertisingConfig{LocalName: "x"}))
	assert.Equal(t, 1, h.Starts())
	require.Len(t, h.Advertised(), 1)
	assert.Equal(t, "x", h.Advertised()[0].LocalName)

	require.NoError(t, d.StopAdvertising())
	assert.Empty(t, h.Advertised())
	assert.Len(t, h.Stops(), 1)
}

func TestHostRefusesAdvertising(t *testing.T) {
	d, h := newTestDevice(t)
	h.SetRadioState(peripheral.StatePoweredOn)
	h.RefuseAdvertising(&peripheral.PlatformError{Op: "start advertising", Code: 2})

	err := d.StartAdvertising(context.Background(), peripheral.AdvertisingConfig{})
	code, ok := peripheral.IsPlatformError(err)
	require.True(t, ok)
	assert.Equal(t, 2, code)

	h.RefuseAdvertising(nil)
	assert.NoError(t, d.StartAdvertising(context.Background(), peripheral.AdvertisingConfig{}))
}

func TestHostNotifyQueue(t *testing.T) {
	_, h := newTestDevice(t)
	h.SetQueueDepth(2)
	u := peripheral.UUID16(0x2a19)

	assert.NoError(t, h.Notify("a", u, u, []byte{1}, false))
	assert.NoError(t, h.Notify("b", u, u, []byte{2}, true))
	assert.ErrorIs(t, h.Notify("a", u, u, []byte{3}, false), peripheral.ErrNotifyQueueFull)
	h.Drain()
	assert.NoError(t, h.Notify("a", u, u, []byte{4}, false))

	sent := h.Sent()
	require.Len(t, sent, 3)
	assert.True(t, sent[1].Indicate)
	assert.Equal(t, "00002a19-0000-1000-8000-00805f9b34fb", sent[2].Characteristic)
}

func TestCentralLongReadAndWrite(t *testing.T) {
	d, _ := newTestDevice(t)
	svc := peripheral.UUID16(0x180f)
	char := peripheral.UUID16(0x2a19)
	require.NoError(t, d.AddService(svc, true))
	require.NoError(t, d.AddCharacteristic(svc, char, ble.CharRead|ble.CharWrite, peripheral.PermRead|peripheral.PermWrite, nil))

	c := NewCentral("c", d)
	c.Connect()
	tgt := peripheral.Target{Service: svc, Characteristic: char}
	v := make([]byte, 100)
	for i := range v {
		v[i] = byte(i)
	}
	require.NoError(t, c.LongWrite(tgt, v))
	got, err := c.Read(tgt)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	c.Disconnect()
	assert.False(t, d.IsConnected("c"))
}
