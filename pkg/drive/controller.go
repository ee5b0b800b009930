package drive

import (
	"fmt"

	"github.com/teslashibe/go-drivetrain/pkg/robot"
)

// Controller computes drive outputs from sensor state, one tick at a time.
// A controller captures its baseline from the state it is constructed with
// and is discarded when superseded.
type Controller interface {
	Update(state robot.State) robot.Signal
	OnTarget() bool
	Setpoint() robot.Pose
}

// ClosedLoopReporter is implemented by controllers whose on-target decision
// is made from the motor controllers' own closed-loop error reporting.
type ClosedLoopReporter interface {
	ReportsClosedLoopError() bool
}

var (
	_ Controller = (*BangBangTurn)(nil)
	_ Controller = (*EncoderTurn)(nil)
	_ Controller = (*GyroTurn)(nil)
	_ Controller = (*Offboard)(nil)
	_ Controller = (*Straight)(nil)
	_ Controller = (*TrajectoryFollowing)(nil)

	_ ClosedLoopReporter = (*Offboard)(nil)
)

// Name returns a short label for c, used in logs and metrics.
func Name(c Controller) string {
	if c == nil {
		return "none"
	}
	if s, ok := c.(fmt.Stringer); ok {
		return s.String()
	}
	return "custom"
}

// ReportsClosedLoopError reports whether c opts into closed-loop error
// reporting.
func ReportsClosedLoopError(c Controller) bool {
	r, ok := c.(ClosedLoopReporter)
	return ok && r.ReportsClosedLoopError()
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
