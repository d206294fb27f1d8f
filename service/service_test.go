package service

import (
	"context"
	"io"
	"testing"

	"github.com/XC-/peripheral"
	"github.com/XC-/peripheral/sim"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(t *testing.T) (*peripheral.Device, *sim.Host) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	h := sim.New(log)
	d := peripheral.NewDevice(h, peripheral.Logger(log))
	h.Attach(d)
	return d, h
}

func TestAddGAPReplacesDefault(t *testing.T) {
	d, _ := newDevice(t)
	require.NoError(t, AddGAP(d, "gopher"))

	got, err := d.Read("c", peripheral.Target{Characteristic: AttrDeviceNameUUID}, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("gopher"), got)

	n := 0
	for _, h := range d.AttributeTable().Handles() {
		if h.Type == peripheral.ServiceHandle && peripheral.CanonicalUUID(h.UUID) == peripheral.CanonicalUUID(AttrGAPUUID) {
			n++
		}
	}
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, AddGAP(d, "again"), peripheral.ErrDuplicateService)
}

func TestServicesChangedIndicates(t *testing.T) {
	d, h := newDevice(t)
	require.NoError(t, AddGATT(d))
	c := sim.NewCentral("c", d)
	c.Connect()
	require.NoError(t, c.Subscribe(peripheral.Target{Characteristic: AttrServiceChangedUUID}))

	ok, err := ServicesChanged(context.Background(), d, 0x0001, 0xffff)
	require.NoError(t, err)
	assert.True(t, ok)

	sent := h.Sent()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].Indicate, "service changed only indicates")
	assert.Equal(t, []byte{0x01, 0x00, 0xff, 0xff}, sent[0].Value)
}

func TestBattery(t *testing.T) {
	d, h := newDevice(t)
	assert.Error(t, AddBattery(d, 101))
	require.NoError(t, AddBattery(d, 80))

	tgt := peripheral.Target{Service: AttrBatteryUUID, Characteristic: AttrBatteryLevelUUID}
	got, err := d.Read("c", tgt, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{80}, got)

	require.NoError(t, d.Subscribe("c", tgt))
	ok, err := SetBatteryLevel(context.Background(), d, 79)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, h.Sent(), 1)
	assert.Equal(t, []byte{79}, h.Sent()[0].Value)

	_, err = SetBatteryLevel(context.Background(), d, 200)
	assert.Error(t, err)
}

func TestCounter(t *testing.T) {
	d, h := newDevice(t)
	cnt, err := AddCounter(d)
	require.NoError(t, err)
	c := sim.NewCentral("c", d)
	c.Connect()
	require.NoError(t, c.Subscribe(peripheral.Target{Characteristic: CountValueUUID}))

	for i := uint32(1); i <= 3; i++ {
		n, ok, err := cnt.Incr(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, i, n)
	}
	sent := h.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, []byte{3, 0, 0, 0}, sent[2].Value)

	// long write through prepared writes
	echo := peripheral.Target{Characteristic: CountEchoUUID}
	long := []byte("a value much longer than a single twenty byte write")
	require.NoError(t, c.LongWrite(echo, long))
	got, err := c.Read(echo)
	require.NoError(t, err)
	assert.Equal(t, long, got)
}
