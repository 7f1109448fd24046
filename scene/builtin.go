package scene

import (
	"fmt"
	"sort"

	"github.com/Sansait/Paralight/types"
	"github.com/chewxy/math32"
)

var (
	ErrUnknownScene = fmt.Errorf("scene: unknown built-in scene")
)

type builtinFactory func() *State

var builtins = map[string]builtinFactory{
	"cornell":  cornellBox,
	"pyramids": pyramidField,
	"sphere":   icoSphere,
	"coplanar": coplanarPair,
}

// Get the names of the procedurally generated scenes.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generate a built-in scene by name.
func Builtin(name string) (*State, error) {
	factory, exists := builtins[name]
	if !exists {
		return nil, fmt.Errorf("%w %q; available scenes: %v", ErrUnknownScene, name, BuiltinNames())
	}
	return factory(), nil
}

// Append the two triangles of the quad a, b, c, d (counter-clockwise).
func appendQuad(tris []Triangle, a, b, c, d types.Vec3) []Triangle {
	return append(tris,
		NewTriangle(a, b, c),
		NewTriangle(a, c, d),
	)
}

// Append the 12 triangles of an axis aligned box.
func appendBox(tris []Triangle, min, max types.Vec3) []Triangle {
	p := func(x, y, z int) types.Vec3 {
		v := min
		if x == 1 {
			v[0] = max[0]
		}
		if y == 1 {
			v[1] = max[1]
		}
		if z == 1 {
			v[2] = max[2]
		}
		return v
	}

	tris = appendQuad(tris, p(0, 0, 1), p(1, 0, 1), p(1, 1, 1), p(0, 1, 1)) // front
	tris = appendQuad(tris, p(1, 0, 0), p(0, 0, 0), p(0, 1, 0), p(1, 1, 0)) // back
	tris = appendQuad(tris, p(0, 0, 0), p(0, 0, 1), p(0, 1, 1), p(0, 1, 0)) // left
	tris = appendQuad(tris, p(1, 0, 1), p(1, 0, 0), p(1, 1, 0), p(1, 1, 1)) // right
	tris = appendQuad(tris, p(0, 1, 1), p(1, 1, 1), p(1, 1, 0), p(0, 1, 0)) // top
	tris = appendQuad(tris, p(0, 0, 0), p(1, 0, 0), p(1, 0, 1), p(0, 0, 1)) // bottom
	return tris
}

// An open box with two blocks inside.
func cornellBox() *State {
	tris := make([]Triangle, 0, 34)

	// Floor, ceiling, back, left and right walls
	tris = appendQuad(tris, types.XYZ(-1, 0, 1), types.XYZ(1, 0, 1), types.XYZ(1, 0, -1), types.XYZ(-1, 0, -1))
	tris = appendQuad(tris, types.XYZ(-1, 2, -1), types.XYZ(1, 2, -1), types.XYZ(1, 2, 1), types.XYZ(-1, 2, 1))
	tris = appendQuad(tris, types.XYZ(-1, 0, -1), types.XYZ(1, 0, -1), types.XYZ(1, 2, -1), types.XYZ(-1, 2, -1))
	tris = appendQuad(tris, types.XYZ(-1, 0, 1), types.XYZ(-1, 0, -1), types.XYZ(-1, 2, -1), types.XYZ(-1, 2, 1))
	tris = appendQuad(tris, types.XYZ(1, 0, -1), types.XYZ(1, 0, 1), types.XYZ(1, 2, 1), types.XYZ(1, 2, -1))

	tris = appendBox(tris, types.XYZ(-0.7, 0, -0.6), types.XYZ(-0.1, 1.2, 0))
	tris = appendBox(tris, types.XYZ(0.1, 0, 0), types.XYZ(0.6, 0.6, 0.5))

	return NewState(
		"cornell",
		NewTriangleSet(tris),
		CameraState{Position: types.XYZ(0, 1, 3.4), FOV: DefaultFOV},
		1,
	)
}

// A floor covered with a grid of pyramids of varying height.
func pyramidField() *State {
	const (
		gridSize = 16
		cellSize = float32(1)
		baseSize = float32(0.8)
	)

	extent := float32(gridSize) * cellSize * 0.5
	tris := make([]Triangle, 0, 2+gridSize*gridSize*4)
	tris = appendQuad(tris,
		types.XYZ(-extent, 0, extent), types.XYZ(extent, 0, extent),
		types.XYZ(extent, 0, -extent), types.XYZ(-extent, 0, -extent),
	)

	half := baseSize * 0.5
	for row := 0; row < gridSize; row++ {
		for col := 0; col < gridSize; col++ {
			cx := -extent + (float32(col)+0.5)*cellSize
			cz := -extent + (float32(row)+0.5)*cellSize
			height := 0.4 + 0.4*float32((row*7+col*3)%4)

			b0 := types.XYZ(cx-half, 0, cz+half)
			b1 := types.XYZ(cx+half, 0, cz+half)
			b2 := types.XYZ(cx+half, 0, cz-half)
			b3 := types.XYZ(cx-half, 0, cz-half)
			apex := types.XYZ(cx, height, cz)

			tris = append(tris,
				NewTriangle(b0, b1, apex),
				NewTriangle(b1, b2, apex),
				NewTriangle(b2, b3, apex),
				NewTriangle(b3, b0, apex),
			)
		}
	}

	return NewState(
		"pyramids",
		NewTriangleSet(tris),
		CameraState{Position: types.XYZ(0, 4, extent+4), Pitch: -0.5, FOV: DefaultFOV},
		4,
	)
}

// A subdivided icosahedron with smooth per-vertex normals.
func icoSphere() *State {
	const subdivisions = 3

	t := (1 + math32.Sqrt(5)) / 2
	vertices := []types.Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range vertices {
		vertices[i] = vertices[i].Normalize()
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for level := 0; level < subdivisions; level++ {
		midpoints := make(map[[2]int]int)
		midpoint := func(a, b int) int {
			key := [2]int{a, b}
			if a > b {
				key = [2]int{b, a}
			}
			if index, exists := midpoints[key]; exists {
				return index
			}
			vertices = append(vertices, vertices[a].Add(vertices[b]).Mul(0.5).Normalize())
			midpoints[key] = len(vertices) - 1
			return len(vertices) - 1
		}

		nextFaces := make([][3]int, 0, len(faces)*4)
		for _, f := range faces {
			ab := midpoint(f[0], f[1])
			bc := midpoint(f[1], f[2])
			ca := midpoint(f[2], f[0])
			nextFaces = append(nextFaces,
				[3]int{f[0], ab, ca},
				[3]int{f[1], bc, ab},
				[3]int{f[2], ca, bc},
				[3]int{ab, bc, ca},
			)
		}
		faces = nextFaces
	}

	tris := make([]Triangle, 0, len(faces)+2)
	for _, f := range faces {
		v := [3]types.Vec3{vertices[f[0]], vertices[f[1]], vertices[f[2]]}
		tris = append(tris, NewTriangleWithNormals(v, v))
	}
	tris = appendQuad(tris, types.XYZ(-4, -1, 4), types.XYZ(4, -1, 4), types.XYZ(4, -1, -4), types.XYZ(-4, -1, -4))

	return NewState(
		"sphere",
		NewTriangleSet(tris),
		CameraState{Position: types.XYZ(0, 0, 4), FOV: DefaultFOV},
		1,
	)
}

// Two overlapping coplanar triangles facing the default camera.
func coplanarPair() *State {
	tris := []Triangle{
		NewTriangle(types.XYZ(-1, -1, 0), types.XYZ(1, -1, 0), types.XYZ(0, 1, 0)),
		NewTriangle(types.XYZ(-1, 1, 0), types.XYZ(0, -1, 0), types.XYZ(1, 1, 0)),
	}
	return NewState(
		"coplanar",
		NewTriangleSet(tris),
		CameraState{Position: types.XYZ(0, 0, 3), FOV: DefaultFOV},
		1,
	)
}
