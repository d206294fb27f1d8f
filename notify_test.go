package peripheral_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/XC-/peripheral"
	"github.com/XC-/peripheral/sim"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateHost records notifications. A Notify carrying hold blocks until
// release is closed; onNotify, if set, decides the send result.
type gateHost struct {
	hold     []byte
	entered  chan struct{}
	release  chan struct{}
	onNotify func() error

	mu   sync.Mutex
	sent []string
}

func (h *gateHost) StartAdvertising(string, peripheral.AdvertisingParams) error { return nil }
func (h *gateHost) StopAdvertising(string) error                               { return nil }

func (h *gateHost) Notify(device string, svc, char ble.UUID, value []byte, indicate bool) error {
	if h.hold != nil && bytes.Equal(value, h.hold) {
		close(h.entered)
		<-h.release
	}
	if h.onNotify != nil {
		if err := h.onNotify(); err != nil {
			return err
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, string(value))
	return nil
}

func (h *gateHost) values() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.sent...)
}

func newGateDevice(t *testing.T, h peripheral.Host) *peripheral.Device {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	d := peripheral.NewDevice(h, peripheral.Logger(log))
	require.NoError(t, d.AddService(svc1, true))
	require.NoError(t, d.AddCharacteristic(svc1, char1, ble.CharRead|ble.CharWrite|ble.CharNotify,
		peripheral.PermRead|peripheral.PermWrite, []byte{}))
	require.NoError(t, d.Subscribe("P1", t1))
	return d
}

func TestUpdatesNotifyInStoreOrder(t *testing.T) {
	ctx := context.Background()
	h := &gateHost{hold: []byte("A"), entered: make(chan struct{}), release: make(chan struct{})}
	d := newGateDevice(t, h)

	first := make(chan error, 1)
	go func() {
		_, err := d.UpdateCharacteristic(ctx, svc1, char1, []byte("A"))
		first <- err
	}()
	<-h.entered

	second := make(chan error, 1)
	go func() {
		_, err := d.UpdateCharacteristic(ctx, svc1, char1, []byte("B"))
		second <- err
	}()
	select {
	case <-second:
		t.Fatal("second update finished while the first was still notifying")
	case <-time.After(50 * time.Millisecond):
	}
	got, err := d.Read("P1", t1, 0)
	require.NoError(t, err)
	assert.Equal(t, "A", string(got))

	close(h.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	got, err = d.Read("P1", t1, 0)
	require.NoError(t, err)
	assert.Equal(t, "B", string(got))
	assert.Equal(t, []string{"A", "B"}, h.values())
}

func TestNotificationReadyDuringFailedSend(t *testing.T) {
	h := &gateHost{}
	d := newGateDevice(t, h)
	h.onNotify = func() error {
		done := make(chan struct{})
		go func() {
			d.NotificationReady()
			close(done)
		}()
		<-done
		return peripheral.ErrNotifyQueueFull
	}

	ok, err := d.UpdateCharacteristic(context.Background(), svc1, char1, []byte{0x01})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, d.NotifyBlocked(), "ready signal delivered before the send failed is kept")
}

func TestQueueFullMarksBlocked(t *testing.T) {
	h := &gateHost{onNotify: func() error { return peripheral.ErrNotifyQueueFull }}
	d := newGateDevice(t, h)

	ok, err := d.UpdateCharacteristic(context.Background(), svc1, char1, []byte{0x01})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, d.NotifyBlocked())

	d.NotificationReady()
	assert.False(t, d.NotifyBlocked())
}

func TestConcurrentUpdatesLastNotificationMatchesValue(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.dev.Subscribe("P1", t1))

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.dev.UpdateCharacteristic(context.Background(), svc1, char1, []byte{byte(i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.dev.Read("P1", t1, 0)
	require.NoError(t, err)
	sent := f.host.Sent()
	require.Len(t, sent, 64)
	assert.Equal(t, got, sent[len(sent)-1].Value)
}

func TestConcurrentUpdatesAndWrites(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.dev.Subscribe("P1", t1))

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := f.dev.UpdateCharacteristic(context.Background(), svc1, char1, []byte{byte(i)})
			assert.NoError(t, err)
		}(i)
		go func(i int) {
			defer wg.Done()
			err := f.dev.Write("P2", peripheral.WriteRequest{Target: t1, Value: []byte{0xf0, byte(i)}})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.dev.Read("P1", t1, 0)
	require.NoError(t, err)
	sent := f.host.Sent()
	require.Len(t, sent, 64)
	switch len(got) {
	case 1:
		// an update was applied last
		assert.Equal(t, got, sent[len(sent)-1].Value)
	case 2:
		assert.Equal(t, byte(0xf0), got[0])
	default:
		t.Fatalf("unexpected value %x", got)
	}
}

func TestServiceLifecycleLogging(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	d := peripheral.NewDevice(sim.New(log), peripheral.Logger(log))

	require.NoError(t, d.AddService(svc1, true))
	require.NoError(t, d.AddCharacteristic(svc1, char1, ble.CharRead|ble.CharIndicate, peripheral.PermRead, nil))
	cc, err := d.Characteristics(svc1)
	require.NoError(t, err)
	require.Len(t, cc[0].Descriptors, 1)
	assert.Equal(t, peripheral.CanonicalUUID(peripheral.UUID16(0x2902)), cc[0].Descriptors[0].UUID)

	hook.Reset()
	assert.ErrorIs(t, d.RemoveService(char1), peripheral.ErrNotFound)
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, "Service removed", e.Message)
	}

	require.NoError(t, d.RemoveService(svc1))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Service removed", hook.LastEntry().Message)
	assert.Empty(t, d.Services())
}
