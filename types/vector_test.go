package types

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestNormalize(t *testing.T) {
	v := XYZ(3, 0, 4).Normalize()
	if !ApproxEqual(v, XYZ(0.6, 0, 0.8), 1e-6) {
		t.Fatalf("expected normalized vector to be (0.6, 0, 0.8); got %v", v)
	}

	v = Vec3{}.Normalize()
	if v != (Vec3{}) {
		t.Fatalf("expected zero vector to normalize to zero; got %v", v)
	}
}

func TestCross(t *testing.T) {
	v := XYZ(1, 0, 0).Cross(XYZ(0, 1, 0))
	if v != XYZ(0, 0, 1) {
		t.Fatalf("expected X cross Y to be Z; got %v", v)
	}
}

func TestMinMaxVec3(t *testing.T) {
	a := XYZ(1, 5, -2)
	b := XYZ(3, -1, 0)
	if min := MinVec3(a, b); min != XYZ(1, -1, -2) {
		t.Fatalf("expected min to be (1, -1, -2); got %v", min)
	}
	if max := MaxVec3(a, b); max != XYZ(3, 5, 0) {
		t.Fatalf("expected max to be (3, 5, 0); got %v", max)
	}
}

func TestDegenerateRays(t *testing.T) {
	type spec struct {
		ray    Ray
		expDeg bool
	}
	specs := []spec{
		{Ray{XYZ(0, 0, 0), XYZ(0, 0, -1)}, false},
		{Ray{XYZ(0, 0, 0), XYZ(0, 0, 0)}, true},
		{Ray{XYZ(0, 0, 0), XYZ(math32.NaN(), 0, -1)}, true},
		{Ray{XYZ(math32.Inf(1), 0, 0), XYZ(0, 0, -1)}, true},
	}

	for index, s := range specs {
		if got := s.ray.IsDegenerate(); got != s.expDeg {
			t.Fatalf("[spec %d] expected IsDegenerate to return %t; got %t", index, s.expDeg, got)
		}
	}
}
