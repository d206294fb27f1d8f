package peripheral

import (
	"errors"
	"testing"

	"github.com/XC-/peripheral/event"
	"github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHost records host calls and never answers on its own.
type recordingHost struct {
	starts  []string
	stops   []string
	refuse  error
	stopErr error
}

func (h *recordingHost) StartAdvertising(handle string, _ AdvertisingParams) error {
	if h.refuse != nil {
		return h.refuse
	}
	h.starts = append(h.starts, handle)
	return nil
}

func (h *recordingHost) StopAdvertising(handle string) error {
	h.stops = append(h.stops, handle)
	return h.stopErr
}

func (h *recordingHost) Notify(string, ble.UUID, ble.UUID, []byte, bool) error { return nil }

func newTestAdvertiser() (*advertiser, *recordingHost, *[]string) {
	h := &recordingHost{}
	var states []string
	a := newAdvertiser(h, func(e event.Event) { states = append(states, e.State) }, quietLogger())
	return a, h, &states
}

func TestAdvertiserStartSucceeds(t *testing.T) {
	a, h, states := newTestAdvertiser()
	p, err := a.start(StatePoweredOn, AdvertisingParams{})
	require.NoError(t, err)
	require.Len(t, h.starts, 1)
	assert.Equal(t, AdvertisingStarting, a.state)

	assert.True(t, a.started(h.starts[0], nil))
	assert.Equal(t, AdvertisingActive, a.state)
	select {
	case <-p.Done():
	default:
		t.Fatal("pending start not resolved")
	}
	assert.NoError(t, p.Err())
	assert.Equal(t, []string{"starting", "active"}, *states)
}

func TestAdvertiserMutualExclusion(t *testing.T) {
	a, h, _ := newTestAdvertiser()
	_, err := a.start(StatePoweredOn, AdvertisingParams{})
	require.NoError(t, err)

	_, err = a.start(StatePoweredOn, AdvertisingParams{})
	assert.ErrorIs(t, err, ErrAlreadyStarting)

	a.started(h.starts[0], nil)
	_, err = a.start(StatePoweredOn, AdvertisingParams{})
	assert.ErrorIs(t, err, ErrAlreadyActive)
	assert.Len(t, h.starts, 1, "rejected starts do not reach the host")
}

func TestAdvertiserRadioGate(t *testing.T) {
	cases := []struct {
		radio RadioState
		want  error
	}{
		{StatePoweredOff, ErrWrongRadioState},
		{StateUnknown, ErrWrongRadioState},
		{StateResetting, ErrWrongRadioState},
		{StateUnsupported, ErrWrongRadioState},
		{StateUnauthorized, ErrPermissionDenied},
	}
	for _, tt := range cases {
		a, h, states := newTestAdvertiser()
		if _, err := a.start(tt.radio, AdvertisingParams{}); !errors.Is(err, tt.want) {
			t.Errorf("start(%v): got %v want %v", tt.radio, err, tt.want)
		}
		if len(h.starts) != 0 || len(*states) != 0 {
			t.Errorf("start(%v): host called or state changed", tt.radio)
		}
	}
}

func TestAdvertiserStartFails(t *testing.T) {
	a, h, states := newTestAdvertiser()
	p, err := a.start(StatePoweredOn, AdvertisingParams{})
	require.NoError(t, err)

	a.started(h.starts[0], &PlatformError{Op: "start advertising", Code: 3})
	assert.Equal(t, AdvertisingIdle, a.state)
	code, ok := IsPlatformError(p.Err())
	require.True(t, ok)
	assert.Equal(t, 3, code)
	assert.Equal(t, []string{"starting", "idle"}, *states)

	// a new attempt is allowed after failure
	_, err = a.start(StatePoweredOn, AdvertisingParams{})
	assert.NoError(t, err)
}

func TestAdvertiserHostRefuses(t *testing.T) {
	a, h, _ := newTestAdvertiser()
	h.refuse = &PlatformError{Op: "start advertising", Code: 1}
	_, err := a.start(StatePoweredOn, AdvertisingParams{})
	code, ok := IsPlatformError(err)
	require.True(t, ok)
	assert.Equal(t, 1, code)
	assert.Equal(t, AdvertisingIdle, a.state)
}

func TestAdvertiserIgnoresStaleCallbacks(t *testing.T) {
	a, h, _ := newTestAdvertiser()
	_, err := a.start(StatePoweredOn, AdvertisingParams{})
	require.NoError(t, err)
	first := h.starts[0]
	require.NoError(t, a.stop())

	p, err := a.start(StatePoweredOn, AdvertisingParams{})
	require.NoError(t, err)
	assert.NotEqual(t, first, h.starts[1], "each session gets a fresh handle")

	assert.False(t, a.started(first, nil))
	assert.Equal(t, AdvertisingStarting, a.state)
	assert.False(t, a.started("bogus", errors.New("x")))
	assert.Nil(t, p.Err())

	assert.True(t, a.started(h.starts[1], nil))
	assert.False(t, a.started(h.starts[1], nil), "a handle is answered once")
}

func TestAdvertiserStop(t *testing.T) {
	a, h, states := newTestAdvertiser()
	require.NoError(t, a.stop(), "stop while idle is a no-op")
	assert.Empty(t, h.stops)
	assert.Empty(t, *states)

	p, err := a.start(StatePoweredOn, AdvertisingParams{})
	require.NoError(t, err)
	require.NoError(t, a.stop())
	assert.ErrorIs(t, p.Err(), ErrAdvertisingCancelled)
	assert.Equal(t, AdvertisingIdle, a.state)
	assert.Equal(t, []string{"starting", "stopping", "idle"}, *states)

	_, err = a.start(StatePoweredOn, AdvertisingParams{})
	require.NoError(t, err)
	a.started(h.starts[1], nil)
	h.stopErr = &PlatformError{Op: "stop advertising", Code: 2}
	assert.Error(t, a.stop())
	assert.Equal(t, AdvertisingIdle, a.state, "stop reaches idle regardless of errors")
}

func TestAdvertiserRadioOff(t *testing.T) {
	a, h, _ := newTestAdvertiser()
	p, err := a.start(StatePoweredOn, AdvertisingParams{})
	require.NoError(t, err)

	a.radioChanged(StatePoweredOff)
	assert.Equal(t, AdvertisingIdle, a.state)
	assert.ErrorIs(t, p.Err(), ErrWrongRadioState)
	assert.Empty(t, h.stops)
}
