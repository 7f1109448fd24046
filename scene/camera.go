package scene

import (
	"fmt"
	"sync"

	"github.com/Sansait/Paralight/types"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type CameraDirection uint8

// Camera movement directions.
const (
	Forward CameraDirection = iota
	Backward
	Left
	Right
	Up
	Down
)

const (
	// Default vertical field of view in degrees.
	DefaultFOV float32 = 45

	// Pitch is clamped to avoid flipping over the poles.
	maxPitch float32 = 0.49 * math32.Pi
)

// A comparable snapshot of the camera parameters. Two snapshots are equal
// exactly when they would generate the same primary rays.
type CameraState struct {
	Position types.Vec3

	// Rotation around the X axis (the angle in the YZ plane).
	Pitch float32

	// Rotation around the Y axis (the angle in the XZ plane).
	Yaw float32

	// Vertical field of view in degrees.
	FOV float32
}

func (c CameraState) String() string {
	return fmt.Sprintf(
		"pos: (%3.3f, %3.3f, %3.3f), pitch: %3.3f, yaw: %3.3f, fov: %3.1f",
		c.Position[0], c.Position[1], c.Position[2],
		c.Pitch, c.Yaw, c.FOV,
	)
}

// The camera eye and its orthonormal basis. Primary rays are generated as
// Forward + Right * sx * TanHalfFOV * aspect + Up * sy * TanHalfFOV where
// sx, sy are the pixel coordinates mapped to [-1, 1].
type CameraBasis struct {
	Eye     types.Vec3
	Forward types.Vec3
	Right   types.Vec3
	Up      types.Vec3

	TanHalfFOV float32
}

// Calculate the camera basis. The camera looks down -Z when both angles are zero.
func (c CameraState) Basis() CameraBasis {
	rot := mgl32.Rotate3DY(c.Yaw).Mul3(mgl32.Rotate3DX(c.Pitch))
	fwd := rot.Mul3x1(mgl32.Vec3{0, 0, -1})
	right := rot.Mul3x1(mgl32.Vec3{1, 0, 0})
	up := rot.Mul3x1(mgl32.Vec3{0, 1, 0})

	fov := c.FOV
	if fov <= 0 {
		fov = DefaultFOV
	}

	return CameraBasis{
		Eye:        c.Position,
		Forward:    types.Vec3(fwd).Normalize(),
		Right:      types.Vec3(right).Normalize(),
		Up:         types.Vec3(up).Normalize(),
		TanHalfFOV: math32.Tan(mgl32.DegToRad(fov) * 0.5),
	}
}

// CameraControls holds the interactive camera. Its mutators may be invoked
// by input handlers at any time; the renderer only reads the camera through
// Snapshot, once per frame.
type CameraControls struct {
	mu    sync.Mutex
	state CameraState
	speed float32
}

// Create camera controls initialized to the given pose.
func NewCameraControls(initial CameraState) *CameraControls {
	if initial.FOV <= 0 {
		initial.FOV = DefaultFOV
	}
	return &CameraControls{
		state: initial,
		speed: 1,
	}
}

// Get a snapshot of the current camera parameters.
func (cc *CameraControls) Snapshot() CameraState {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.state
}

// Set camera position.
func (cc *CameraControls) SetPosition(pos types.Vec3) {
	cc.mu.Lock()
	cc.state.Position = pos
	cc.mu.Unlock()
}

// Set camera rotation angles.
func (cc *CameraControls) SetRotation(pitch, yaw float32) {
	cc.mu.Lock()
	cc.state.Pitch = clampPitch(pitch)
	cc.state.Yaw = yaw
	cc.mu.Unlock()
}

// Reset the camera to the given pose.
func (cc *CameraControls) Reset(pose CameraState) {
	if pose.FOV <= 0 {
		pose.FOV = DefaultFOV
	}
	cc.mu.Lock()
	cc.state = pose
	cc.mu.Unlock()
}

// Set the movement speed scaler. Scenes with large extents use a larger
// scaler so that a key press moves the camera a similar on-screen amount.
func (cc *CameraControls) SetSpeed(speed float32) {
	if speed <= 0 {
		speed = 1
	}
	cc.mu.Lock()
	cc.speed = speed
	cc.mu.Unlock()
}

// Move the camera along the given direction by amount * speed.
func (cc *CameraControls) Move(dir CameraDirection, amount float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	basis := cc.state.Basis()
	var delta types.Vec3
	switch dir {
	case Forward:
		delta = basis.Forward
	case Backward:
		delta = basis.Forward.Mul(-1)
	case Left:
		delta = basis.Right.Mul(-1)
	case Right:
		delta = basis.Right
	case Up:
		delta = basis.Up
	case Down:
		delta = basis.Up.Mul(-1)
	}
	cc.state.Position = cc.state.Position.Add(delta.Mul(amount * cc.speed))
}

// Rotate the camera by the given pitch and yaw deltas.
func (cc *CameraControls) Rotate(dPitch, dYaw float32) {
	cc.mu.Lock()
	cc.state.Pitch = clampPitch(cc.state.Pitch + dPitch)
	cc.state.Yaw += dYaw
	cc.mu.Unlock()
}

func clampPitch(pitch float32) float32 {
	if pitch > maxPitch {
		return maxPitch
	}
	if pitch < -maxPitch {
		return -maxPitch
	}
	return pitch
}
