package scene

import (
	"math"
	"sync/atomic"

	"github.com/Sansait/Paralight/types"
)

// A triangle defined by three vertex positions and optional per-vertex
// normals. Triangles are immutable once added to a TriangleSet.
type Triangle struct {
	Vertices [3]types.Vec3
	Normals  [3]types.Vec3

	// Set when Normals contains per-vertex normals. Otherwise the face
	// normal is used for shading.
	HasNormals bool
}

// Create a triangle from three vertices.
func NewTriangle(v0, v1, v2 types.Vec3) Triangle {
	return Triangle{Vertices: [3]types.Vec3{v0, v1, v2}}
}

// Create a triangle with per-vertex normals.
func NewTriangleWithNormals(vertices, normals [3]types.Vec3) Triangle {
	return Triangle{
		Vertices: vertices,
		Normals: [3]types.Vec3{
			normals[0].Normalize(),
			normals[1].Normalize(),
			normals[2].Normalize(),
		},
		HasNormals: true,
	}
}

// Get the triangle bounding box.
func (t *Triangle) BBox() [2]types.Vec3 {
	return [2]types.Vec3{
		types.MinVec3(types.MinVec3(t.Vertices[0], t.Vertices[1]), t.Vertices[2]),
		types.MaxVec3(types.MaxVec3(t.Vertices[0], t.Vertices[1]), t.Vertices[2]),
	}
}

// Get the triangle centroid.
func (t *Triangle) Center() types.Vec3 {
	return t.Vertices[0].Add(t.Vertices[1]).Add(t.Vertices[2]).Mul(1.0 / 3.0)
}

// Get the normalized face normal using the counter-clockwise winding order.
func (t *Triangle) FaceNormal() types.Vec3 {
	e1 := t.Vertices[1].Sub(t.Vertices[0])
	e2 := t.Vertices[2].Sub(t.Vertices[0])
	return e1.Cross(e2).Normalize()
}

// Get the shading normal at barycentric coordinates (u, v). If the triangle
// has no per-vertex normals the face normal is returned.
func (t *Triangle) NormalAt(u, v float32) types.Vec3 {
	if !t.HasNormals {
		return t.FaceNormal()
	}
	w := 1 - u - v
	return t.Normals[0].Mul(w).Add(t.Normals[1].Mul(u)).Add(t.Normals[2].Mul(v)).Normalize()
}

// TriangleSet owns the scene triangles. The position of a triangle in the set
// is its identity: BVH leaves and hit records refer to triangles by index.
//
// The set also owns the per-frame ray/triangle intersection test counter.
// The counter is reset by the renderer at the start of every frame and
// incremented by the tracers while traversing.
type TriangleSet struct {
	triangles []Triangle
	tests     atomic.Uint64
}

// Create a triangle set from a copy of the supplied triangle list.
func NewTriangleSet(triangles []Triangle) *TriangleSet {
	ts := &TriangleSet{
		triangles: make([]Triangle, len(triangles)),
	}
	copy(ts.triangles, triangles)
	return ts
}

// Get the number of triangles in the set.
func (ts *TriangleSet) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.triangles)
}

// Get a pointer to the triangle at index. The returned triangle must not be modified.
func (ts *TriangleSet) At(index int) *Triangle {
	return &ts.triangles[index]
}

// Get the underlying triangle list. The returned slice must not be modified.
func (ts *TriangleSet) All() []Triangle {
	if ts == nil {
		return nil
	}
	return ts.triangles
}

// Get the bounding box enclosing all triangles. An empty set returns an
// inverted box (min > max).
func (ts *TriangleSet) Bounds() [2]types.Vec3 {
	bbox := [2]types.Vec3{
		{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
	for i := range ts.All() {
		triBBox := ts.triangles[i].BBox()
		bbox[0] = types.MinVec3(bbox[0], triBBox[0])
		bbox[1] = types.MaxVec3(bbox[1], triBBox[1])
	}
	return bbox
}

// Add n intersection tests to the per-frame counter.
func (ts *TriangleSet) AddTests(n uint64) {
	if n != 0 {
		ts.tests.Add(n)
	}
}

// Get the number of intersection tests since the last counter reset.
func (ts *TriangleSet) Tests() uint64 {
	return ts.tests.Load()
}

// Zero the intersection test counter.
func (ts *TriangleSet) ResetCounters() {
	ts.tests.Store(0)
}
