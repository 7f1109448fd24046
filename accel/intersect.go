package accel

import (
	"github.com/Sansait/Paralight/scene"
	"github.com/Sansait/Paralight/types"
	"github.com/chewxy/math32"
)

const (
	// Hits closer than this distance are ignored to avoid self-intersections
	// for rays that start on a surface.
	RayEpsilon float32 = 1e-4

	// Rays whose direction is (nearly) parallel to the triangle plane produce
	// a determinant below this threshold and are treated as misses.
	DetEpsilon float32 = 1e-7

	// Of all hits at most this far behind the nearest hit, the triangle with
	// the lowest index wins.
	TieEpsilon float32 = 1e-5
)

// Intersect a ray with a triangle using the Moller-Trumbore algorithm and
// return the hit distance together with the barycentric coordinates of the
// hit point.
func IntersectTriangle(ray *types.Ray, tri *scene.Triangle) (dist, u, v float32, hit bool) {
	e1 := tri.Vertices[1].Sub(tri.Vertices[0])
	e2 := tri.Vertices[2].Sub(tri.Vertices[0])
	p := ray.Dir.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < DetEpsilon {
		return 0, 0, 0, false
	}

	invDet := 1.0 / det
	s := ray.Origin.Sub(tri.Vertices[0])
	u = s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	q := s.Cross(e1)
	v = ray.Dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	dist = e2.Dot(q) * invDet
	if !(dist >= RayEpsilon) {
		return 0, 0, 0, false
	}
	return dist, u, v, true
}

// Test a ray against an AABB using the slab method and return the distance
// to the box entry point clamped to 0. The comparisons are arranged so that
// NaN slab distances (ray origin on a slab plane with a zero direction
// component) leave the running interval untouched.
func intersectBox(origin, invDir types.Vec3, bboxMin, bboxMax types.Vec3, maxDist float32) (float32, bool) {
	tmin := float32(0)
	tmax := maxDist
	for axis := 0; axis < 3; axis++ {
		t1 := (bboxMin[axis] - origin[axis]) * invDir[axis]
		t2 := (bboxMax[axis] - origin[axis]) * invDir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
