package types

// A ray with an origin and a direction. The direction does not need to be
// normalized; hit distances are expressed in units of the direction length.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// Get the point at distance t along the ray.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// A ray is degenerate if its direction has zero length or any of its
// components is not a finite number.
func (r Ray) IsDegenerate() bool {
	if !r.Origin.IsFinite() || !r.Dir.IsFinite() {
		return true
	}
	return r.Dir.Dot(r.Dir) == 0
}
