package tracer

import (
	"github.com/Sansait/Paralight/accel"
	"github.com/Sansait/Paralight/scene"
	"github.com/Sansait/Paralight/types"
	"github.com/chewxy/math32"
)

const (
	// Headlight shading: albedo * (ambient + direct * |cos|)
	ambientTerm float32 = 0.2
	directTerm  float32 = 0.8

	// Fraction of the shaded value kept when the ambient occlusion ray is blocked.
	occludedTerm float32 = 0.4

	// Ambient occlusion rays start this far above the surface.
	aoBias float32 = 1e-3

	// Node visit count that maps to the hottest heatmap color.
	heatmapScale float32 = 64

	// Used when AORadius is not set.
	DefaultAORadius float32 = 0.5
)

var (
	albedo = types.XYZ(0.75, 0.75, 0.75)

	bgHorizon = types.XYZ(0.05, 0.05, 0.08)
	bgZenith  = types.XYZ(0.30, 0.40, 0.60)
)

// Shading parameters shared by all pixels of a pass.
type ShadeParams struct {
	Flags       Flag
	AORadius    float32
	FrameNumber uint32
}

// Render one sample for pixel (x, y) accumulating traversal counters into rs.
// The returned value has its alpha component set to 1.
func TracePixel(s *accel.Structure, basis *scene.CameraBasis, frameW, frameH, x, y uint32, params *ShadeParams, rs *accel.RayStats) types.Vec4 {
	sampler := NewPixelSampler(params.FrameNumber, x, y)
	jx := sampler.Next()
	jy := sampler.Next()
	ray := PrimaryRay(basis, frameW, frameH, x, y, jx, jy)

	visitsBefore := rs.NodesVisited
	hit, found := s.IntersectCounted(ray, rs)

	if params.Flags&DebugHeatmap != 0 {
		return heatmap(float32(rs.NodesVisited - visitsBefore)).Vec4(1)
	}

	if !found {
		return Background(ray.Dir).Vec4(1)
	}

	tri := s.Triangles().At(hit.Triangle)
	normal := tri.NormalAt(hit.U, hit.V)
	if normal.Dot(ray.Dir) > 0 {
		normal = normal.Mul(-1)
	}

	if params.Flags&DebugNormals != 0 {
		return normal.Mul(0.5).Add(types.XYZ(0.5, 0.5, 0.5)).Vec4(1)
	}

	cosTheta := math32.Abs(normal.Dot(ray.Dir))
	radiance := albedo.Mul(ambientTerm + directTerm*cosTheta)

	if params.Flags&AmbientOcclusion != 0 {
		radius := params.AORadius
		if radius <= 0 {
			radius = DefaultAORadius
		}
		hitPoint := ray.At(hit.Distance)
		aoRay := types.Ray{
			Origin: hitPoint.Add(normal.Mul(aoBias)),
			Dir:    cosineSampleHemisphere(normal, sampler.Next(), sampler.Next()),
		}
		if s.OccludedCounted(aoRay, radius, rs) {
			radiance = radiance.Mul(occludedTerm)
		}
	}

	return radiance.Vec4(1)
}

// Get the background color for a ray direction. Non-finite directions
// (degenerate rays) map to black.
func Background(dir types.Vec3) types.Vec3 {
	if !dir.IsFinite() {
		return types.Vec3{}
	}
	t := 0.5 * (dir[1] + 1)
	return bgHorizon.Mul(1 - t).Add(bgZenith.Mul(t))
}

// Map a node visit count to a blue-green-red gradient.
func heatmap(visits float32) types.Vec3 {
	t := visits / heatmapScale
	if t > 1 {
		t = 1
	}
	return types.XYZ(t, 1-math32.Abs(2*t-1), 1-t)
}

// Generate a cosine weighted direction in the hemisphere around n.
func cosineSampleHemisphere(n types.Vec3, u1, u2 float32) types.Vec3 {
	r := math32.Sqrt(u1)
	phi := 2 * math32.Pi * u2
	lx := r * math32.Cos(phi)
	ly := r * math32.Sin(phi)
	lz := math32.Sqrt(1 - u1)

	// Build an orthonormal basis around n
	var helper types.Vec3
	if math32.Abs(n[0]) > 0.9 {
		helper = types.XYZ(0, 1, 0)
	} else {
		helper = types.XYZ(1, 0, 0)
	}
	tangent := helper.Cross(n).Normalize()
	bitangent := n.Cross(tangent)

	return tangent.Mul(lx).Add(bitangent.Mul(ly)).Add(n.Mul(lz)).Normalize()
}
