package opencl

import (
	"testing"

	"github.com/Sansait/Paralight/accel"
	"github.com/Sansait/Paralight/scene"
	"github.com/Sansait/Paralight/types"
)

func TestPackScene(t *testing.T) {
	tris := []scene.Triangle{
		scene.NewTriangle(types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0)),
		scene.NewTriangleWithNormals(
			[3]types.Vec3{types.XYZ(0, 0, 1), types.XYZ(1, 0, 1), types.XYZ(0, 1, 1)},
			[3]types.Vec3{types.XYZ(0, 0, 2), types.XYZ(0, 0, 1), types.XYZ(0, 0, 1)},
		),
	}
	tree, err := accel.Build(scene.NewTriangleSet(tris), accel.BuildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sb := packScene(tree)
	if sb.nodeCount != uint32(len(tree.Nodes())) {
		t.Fatalf("expected node count %d; got %d", len(tree.Nodes()), sb.nodeCount)
	}
	if len(sb.vertices) != 6 || len(sb.normals) != 6 {
		t.Fatalf("expected 6 vertices and normals; got %d and %d", len(sb.vertices), len(sb.normals))
	}
	if sb.vertices[4] != types.XYZW(1, 0, 1, 1) {
		t.Fatalf("expected packed vertex (1, 0, 1, 1); got %v", sb.vertices[4])
	}
	if sb.normals[0][3] != 0 {
		t.Fatalf("expected flat triangle normal flag to be 0; got %f", sb.normals[0][3])
	}
	if sb.normals[3] != types.XYZW(0, 0, 1, 1) {
		t.Fatalf("expected normalized smooth normal with flag set; got %v", sb.normals[3])
	}
}

func TestPackEmptyScene(t *testing.T) {
	tree, err := accel.Build(scene.NewTriangleSet(nil), accel.BuildOptions{})
	if err != accel.ErrEmptyGeometry {
		t.Fatalf("expected ErrEmptyGeometry; got %v", err)
	}

	sb := packScene(tree)
	if sb.nodeCount != 0 {
		t.Fatalf("expected node count 0; got %d", sb.nodeCount)
	}
	if len(sb.nodes) != 1 || len(sb.primIndices) != 1 || len(sb.vertices) != 3 {
		t.Fatal("expected single-entry placeholder buffers")
	}
}

func TestKernelCounters(t *testing.T) {
	c := kernelCounters([]uint32{10, 20, 3})
	if c.NodesVisited != 10 || c.TriangleTests != 20 || c.DegenerateRays != 3 {
		t.Fatalf("expected counters {10 20 3}; got %+v", c)
	}
}
