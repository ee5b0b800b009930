package trajectory

// Line returns a straight-line path of the given length with a trapezoidal
// velocity profile. Both sides share the profile. Non-positive limits yield
// an empty path.
func Line(name string, distance, maxVel, maxAcc, dt float64) *Path {
	p := &Path{Name: name, Left: &Trajectory{}, Right: &Trajectory{}}
	if distance <= 0 || maxVel <= 0 || maxAcc <= 0 || dt <= 0 {
		return p
	}

	var segs []Segment
	var pos, vel float64
	for pos < distance {
		acc := maxAcc
		if vel*vel/(2*maxAcc) >= distance-pos {
			acc = -maxAcc
		}
		next := vel + acc*dt
		if next > maxVel {
			next = maxVel
		}
		if next < 0 {
			next = 0
		}
		pos += (vel + next) / 2 * dt
		if pos > distance || (next == 0 && acc < 0) {
			pos = distance
		}
		segs = append(segs, Segment{Pos: pos, Vel: next, Acc: (next - vel) / dt, Dt: dt, X: pos})
		vel = next
	}

	p.Left.Segments = segs
	p.Right.Segments = append([]Segment(nil), segs...)
	return p
}
