package overrides

// Gate is the external kill switch consulted before overrides are applied.
// When Enabled reports false every domain behaves as if nothing is forced;
// the stored partitions are left alone.
type Gate interface {
	Enabled() bool
}

// WatchableGate is a Gate that announces changes. Domains subscribe to it
// and re-merge whenever it flips.
type WatchableGate interface {
	Gate
	Subscribe(fn func(enabled bool)) (unsubscribe func())
}

// GateFunc adapts a plain function to Gate.
type GateFunc func() bool

// Enabled calls fn. A nil func counts as enabled.
func (fn GateFunc) Enabled() bool {
	if fn == nil {
		return true
	}
	return fn()
}

// AlwaysOn is the gate used when none is configured.
var AlwaysOn Gate = GateFunc(func() bool { return true })

// Switch is a manually toggled, watchable gate.
type Switch struct {
	state *Observable[bool]
}

var _ WatchableGate = (*Switch)(nil)

// NewSwitch returns a Switch in the given position.
func NewSwitch(enabled bool) *Switch {
	return &Switch{state: NewObservable(enabled, nil)}
}

// Enabled reports the current position.
func (s *Switch) Enabled() bool {
	return s.state.Value()
}

// Set moves the switch. Subscribers are only notified on an actual change.
func (s *Switch) Set(enabled bool) {
	if s.state.Value() == enabled {
		return
	}
	s.state.Publish(enabled)
}

// Enable turns overrides on.
func (s *Switch) Enable() { s.Set(true) }

// Disable turns overrides off.
func (s *Switch) Disable() { s.Set(false) }

// Toggle flips the switch and returns the new position.
func (s *Switch) Toggle() bool {
	next := !s.Enabled()
	s.Set(next)
	return next
}

// Subscribe receives the current position and every later change.
func (s *Switch) Subscribe(fn func(bool)) func() {
	return s.state.Subscribe(fn)
}
