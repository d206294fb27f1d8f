package peripheral

// RadioState is the power and authorization state of the host
// Bluetooth radio, delivered asynchronously by the platform.
type RadioState int

const (
	StateUnknown      RadioState = 0
	StateResetting    RadioState = 1
	StateUnsupported  RadioState = 2
	StateUnauthorized RadioState = 3
	StatePoweredOff   RadioState = 4
	StatePoweredOn    RadioState = 5
)

func (s RadioState) String() string {
	str := []string{
		"unknown",
		"resetting",
		"unsupported",
		"unauthorized",
		"poweredOff",
		"poweredOn",
	}
	if s < 0 || int(s) >= len(str) {
		return "unknown"
	}
	return str[int(s)]
}

// ParseRadioState is the inverse of RadioState.String.
func ParseRadioState(s string) (RadioState, bool) {
	for st := StateUnknown; st <= StatePoweredOn; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return StateUnknown, false
}

// settled reports whether the state is final enough to answer a
// pending start: unknown and resetting are expected to change soon.
func (s RadioState) settled() bool {
	return s != StateUnknown && s != StateResetting
}

// startErr is the error a start attempt fails with in state s.
func (s RadioState) startErr() error {
	switch s {
	case StatePoweredOn:
		return nil
	case StateUnauthorized:
		return ErrPermissionDenied
	}
	return ErrWrongRadioState
}
