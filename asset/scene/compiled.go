// Package scene defines the compiled scene format: the triangles of a scene
// together with a prebuilt acceleration structure so that loading a
// compiled scene does not require rebuilding the BVH.
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Sansait/Paralight/accel"
	core "github.com/Sansait/Paralight/scene"
	"github.com/olekukonko/tablewriter"
)

// Bumped whenever the layout of Compiled changes.
const FormatVersion uint32 = 1

var ErrUnsupportedVersion = errors.New("compiled scene: unsupported format version")

// A compiled scene.
type Compiled struct {
	FormatVersion uint32

	Name       string
	Camera     core.CameraState
	DebugScale float32

	Triangles []core.Triangle

	// The serialized acceleration structure.
	Strategy    accel.SplitStrategy
	Nodes       []accel.Node
	PrimIndices []uint32
}

// Compile a scene snapshot by building its acceleration structure.
func Compile(snap core.Snapshot, opts accel.BuildOptions) (*Compiled, error) {
	structure, err := accel.Build(snap.Triangles, opts)
	if err != nil {
		return nil, err
	}

	return &Compiled{
		FormatVersion: FormatVersion,
		Name:          snap.Name,
		Camera:        snap.DefaultCamera,
		DebugScale:    snap.DebugScale,
		Triangles:     snap.Triangles.All(),
		Strategy:      structure.Stats().Strategy,
		Nodes:         structure.Nodes(),
		PrimIndices:   structure.PrimIndices(),
	}, nil
}

// Create the scene state and restore the acceleration structure. The
// returned structure is built from the same triangle set as the state's
// geometry.
func (c *Compiled) Load() (*core.State, *accel.Structure, error) {
	if c.FormatVersion != FormatVersion {
		return nil, nil, fmt.Errorf("%w: %d (expected %d)", ErrUnsupportedVersion, c.FormatVersion, FormatVersion)
	}

	ts := core.NewTriangleSet(c.Triangles)
	structure, err := accel.Restore(ts, c.Nodes, c.PrimIndices, c.Strategy)
	if err != nil && !errors.Is(err, accel.ErrEmptyGeometry) {
		return nil, nil, err
	}

	return core.NewState(c.Name, ts, c.Camera, c.DebugScale), structure, err
}

// Build a tabular representation of scene statistics.
func (c *Compiled) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Size"})
	table.Append([]string{"Geometry", "---", fmtSize(c.Triangles)})
	table.Append([]string{"", fmt.Sprintf("Triangles (%d)", len(c.Triangles)), fmtSize(c.Triangles)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"BVH", "---", fmtSize(c.Nodes, c.PrimIndices)})
	table.Append([]string{"", fmt.Sprintf("Nodes (%d, %s)", len(c.Nodes), c.Strategy), fmtSize(c.Nodes)})
	table.Append([]string{"", "Prim. indices", fmtSize(c.PrimIndices)})
	table.SetFooter([]string{"Total", " ", strings.TrimLeft(fmtSize(c.Triangles, c.Nodes, c.PrimIndices), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
