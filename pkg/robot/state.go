package robot

import "sync"

// Feedback is what a motor controller reports it is currently running.
type Feedback struct {
	Mode     ControlMode `json:"mode"`
	Setpoint float64     `json:"setpoint"`
}

// SliderFeedback is the reported state of the slider mechanism.
type SliderFeedback struct {
	Encoder    float64     `json:"encoder"`
	Velocity   float64     `json:"velocity"`
	OnTarget   bool        `json:"on_target"`
	ClosedLoop bool        `json:"closed_loop"`
	State      SliderState `json:"state"`
}

// State is everything the hardware layer reports once per tick.
type State struct {
	Pose          Pose           `json:"pose"`
	LeftFeedback  Feedback       `json:"left_feedback"`
	RightFeedback Feedback       `json:"right_feedback"`
	Slider        SliderFeedback `json:"slider"`
	Spatula       SpatulaState   `json:"spatula"`
}

// DriveInstalled reports whether both drive motor controllers report running
// the given signal.
func (s State) DriveInstalled(sig Signal) bool {
	return sig.Left.Matches(s.LeftFeedback) && sig.Right.Matches(s.RightFeedback)
}

// StateHolder publishes the latest State. The hardware polling side calls
// Store; the tick side reads Latest at the start of each cycle.
type StateHolder struct {
	mu    sync.RWMutex
	state State
}

// NewStateHolder returns a holder seeded with initial.
func NewStateHolder(initial State) *StateHolder {
	return &StateHolder{state: initial}
}

// Store replaces the published state.
func (h *StateHolder) Store(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// Latest returns a copy of the published state.
func (h *StateHolder) Latest() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

var _ StateSource = (*StateHolder)(nil)
