package trajectory

// Follower tracks one wheel trajectory, one segment per call to Calculate.
//
// Output is kp·e + kd·((e−e₋₁)/dt − v) + kv·v + ka·a, where e is the
// position error against the current segment.
type Follower struct {
	name string
	kp   float64
	kd   float64
	kv   float64
	ka   float64

	traj      *Trajectory
	current   int
	lastError float64
	heading   float64
}

// NewFollower returns a follower with no trajectory.
func NewFollower(name string, g Gains) *Follower {
	return &Follower{name: name, kp: g.P, kd: g.D, kv: g.V, ka: g.A}
}

// SetTrajectory installs t and rewinds to the first segment.
func (f *Follower) SetTrajectory(t *Trajectory) {
	f.traj = t
	f.Reset()
}

// Reset rewinds to the first segment.
func (f *Follower) Reset() {
	f.current = 0
	f.lastError = 0
}

// Calculate returns the output for the current segment given the distance
// travelled so far, in inches, and advances to the next segment. Once the
// trajectory is exhausted it returns 0.
func (f *Follower) Calculate(distance float64) float64 {
	if f.Finished() {
		return 0
	}
	seg := f.traj.Segments[f.current]

	err := seg.Pos - distance
	var deriv float64
	if seg.Dt > 0 {
		deriv = (err-f.lastError)/seg.Dt - seg.Vel
	}
	out := f.kp*err + f.kd*deriv + f.kv*seg.Vel + f.ka*seg.Acc

	f.lastError = err
	f.heading = seg.Heading
	f.current++
	return out
}

// Finished reports whether every segment has been consumed.
func (f *Follower) Finished() bool {
	return f.current >= f.traj.Len()
}

// Heading returns the heading of the most recently consumed segment.
func (f *Follower) Heading() float64 { return f.heading }

// Segment returns the index of the next segment to be consumed.
func (f *Follower) Segment() int { return f.current }

// Name identifies the side this follower tracks.
func (f *Follower) Name() string { return f.name }
