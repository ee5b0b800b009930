// Package trajectory holds precomputed wheel trajectories and the follower
// that tracks one of them.
package trajectory

import "math"

// Segment is one time step of a wheel trajectory. Distances are in inches,
// time in seconds, heading in radians counter-clockwise from the start.
type Segment struct {
	Pos     float64 `json:"pos"`
	Vel     float64 `json:"vel"`
	Acc     float64 `json:"acc"`
	Jerk    float64 `json:"jerk"`
	Heading float64 `json:"heading"`
	Dt      float64 `json:"dt"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// Trajectory is an ordered list of segments for one side of the drivetrain.
type Trajectory struct {
	Segments []Segment `json:"segments"`
}

// Len returns the number of segments.
func (t *Trajectory) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Segments)
}

// Mirrored returns a copy with Y and heading reflected across the X axis.
// The receiver is left untouched so a loaded path can be reused.
func (t *Trajectory) Mirrored() *Trajectory {
	if t == nil {
		return nil
	}
	out := &Trajectory{Segments: make([]Segment, len(t.Segments))}
	for i, s := range t.Segments {
		s.Y = -s.Y
		s.Heading = BoundRadians(-s.Heading)
		out.Segments[i] = s
	}
	return out
}

// Path is a named pair of wheel trajectories produced by an external path
// generator.
type Path struct {
	Name  string      `json:"name"`
	Left  *Trajectory `json:"left"`
	Right *Trajectory `json:"right"`
}

// Inverted returns the left/right mirror image of p: sides are swapped and
// headings negated, so a path planned for one side of the field can be run on
// the other.
func (p *Path) Inverted() *Path {
	if p == nil {
		return nil
	}
	return &Path{
		Name:  p.Name,
		Left:  p.Right.Mirrored(),
		Right: p.Left.Mirrored(),
	}
}

// Gains configure trajectory following. P, D, V and A feed the per-side
// followers; TurnP and TurnD the heading correction loop.
type Gains struct {
	P     float64 `json:"p" mapstructure:"p" yaml:"p"`
	D     float64 `json:"d" mapstructure:"d" yaml:"d"`
	V     float64 `json:"v" mapstructure:"v" yaml:"v"`
	A     float64 `json:"a" mapstructure:"a" yaml:"a"`
	TurnP float64 `json:"turn_p" mapstructure:"turn_p" yaml:"turn_p"`
	TurnD float64 `json:"turn_d" mapstructure:"turn_d" yaml:"turn_d"`
}

// BoundRadians wraps a into (-π, π].
func BoundRadians(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// AngleDiffRadians returns the shortest signed rotation from `from` to `to`.
func AngleDiffRadians(from, to float64) float64 {
	return BoundRadians(to - from)
}

// AngleDiffDegrees is AngleDiffRadians for degrees.
func AngleDiffDegrees(from, to float64) float64 {
	return AngleDiffRadians(from*math.Pi/180, to*math.Pi/180) * 180 / math.Pi
}
