//go:build gl

package renderer

import (
	"fmt"
	"image"
	"image/color"
	"runtime"

	"github.com/Sansait/Paralight/scene"
	"github.com/Sansait/Paralight/tracer"
	"github.com/Sansait/Paralight/types"
	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	// Coefficients for converting delta cursor movements to yaw/pitch camera angles.
	mouseSensitivityX float32 = 0.005
	mouseSensitivityY float32 = 0.005

	// Camera movement speed
	cameraMoveSpeed float32 = 0.05
)

const (
	leftMouseButton  = 0
	rightMouseButton = 1
)

// Glfw calls must be made from the main thread.
func init() {
	runtime.LockOSThread()
}

// An opengl window that displays the resolved frames and maps keyboard and
// mouse input to camera, settings and backend changes.
type glDisplay struct {
	renderer *Progressive
	camera   *scene.CameraControls
	settings *Settings

	screenshotDir string

	// opengl handles
	window    *glfw.Window
	texture   uint32
	texFbo    uint32
	texW      int32
	texH      int32
	winW      int32
	winH      int32
	lastStats FrameStats

	// state
	lastCursorPos types.Vec2
	mousePressed  [2]bool

	// Display options
	showUI bool
}

// Open a window of the given size that presents frames rendered by r.
func NewGLDisplay(r *Progressive, camera *scene.CameraControls, settings *Settings, frameW, frameH uint32, screenshotDir string) (InteractiveDisplay, error) {
	d := &glDisplay{
		renderer:      r,
		camera:        camera,
		settings:      settings,
		screenshotDir: screenshotDir,
		winW:          int32(frameW),
		winH:          int32(frameH),
	}

	if err := d.initGL(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *glDisplay) initGL() error {
	var err error
	if err = glfw.Init(); err != nil {
		return fmt.Errorf("%w: failed to initialize glfw: %v", ErrDisplayUnavailable, err)
	}

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	d.window, err = glfw.CreateWindow(int(d.winW), int(d.winH), "paralight", nil, nil)
	if err != nil {
		return fmt.Errorf("%w: could not create opengl window: %v", ErrDisplayUnavailable, err)
	}
	d.window.MakeContextCurrent()

	if err = gl.Init(); err != nil {
		return fmt.Errorf("%w: could not init opengl: %v", ErrDisplayUnavailable, err)
	}

	gl.GenTextures(1, &d.texture)
	gl.GenFramebuffers(1, &d.texFbo)

	// Setup ortho projection for UI bits
	gl.Disable(gl.DEPTH_TEST)
	gl.MatrixMode(gl.PROJECTION)
	gl.LoadIdentity()
	gl.Ortho(0, float64(d.winW), float64(d.winH), 0, -1, 1)
	gl.Viewport(0, 0, d.winW, d.winH)
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadIdentity()

	// Bind event callbacks
	d.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	d.window.SetKeyCallback(d.onKeyEvent)
	d.window.SetMouseButtonCallback(d.onMouseEvent)
	d.window.SetCursorPosCallback(d.onCursorPosEvent)

	return nil
}

// (Re)allocate the frame texture and attach it to the read FBO.
func (d *glDisplay) allocTexture(w, h int32) {
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, d.texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, w, h, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, d.texFbo)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, d.texture, 0)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	d.texW, d.texH = w, h
}

func (d *glDisplay) PollEvents() {
	glfw.PollEvents()
}

func (d *glDisplay) ShouldClose() bool {
	return d.window == nil || d.window.ShouldClose()
}

// Upload the frame and blit it to the window. The frame is flipped while
// blitting as image rows start at the top.
func (d *glDisplay) Present(img *image.RGBA, stats FrameStats) error {
	d.lastStats = stats
	if d.showUI {
		DrawOverlay(img, stats.Lines(), color.RGBA{255, 255, 255, 255})
	}

	w, h := int32(img.Rect.Dx()), int32(img.Rect.Dy())
	if w != d.texW || h != d.texH {
		d.allocTexture(w, h)
	}

	gl.BindTexture(gl.TEXTURE_2D, d.texture)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, w, h, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, d.texFbo)
	gl.BlitFramebuffer(0, 0, w, h, 0, d.winH, d.winW, 0, gl.COLOR_BUFFER_BIT, gl.LINEAR)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	if d.showUI {
		d.renderBlockRows(h)
	}

	d.window.SwapBuffers()
	return nil
}

// Outline the row blocks assigned to each backend worker.
func (d *glDisplay) renderBlockRows(filmH int32) {
	if len(d.lastStats.BlockRows) == 0 || filmH == 0 {
		return
	}

	scale := float32(d.winH) / float32(filmH)
	var y float32
	gl.LineWidth(1.0)
	for idx, blockH := range d.lastStats.BlockRows {
		if blockH == 0 {
			continue
		}
		shade := 0.4 + 0.6*float32(idx%2)
		gl.Color3f(shade, shade, 1.0)
		gl.Begin(gl.LINE_LOOP)
		gl.Vertex2f(0, y)
		gl.Vertex2f(float32(d.winW-1), y)
		gl.Vertex2f(float32(d.winW-1), y+float32(blockH)*scale)
		gl.Vertex2f(0, y+float32(blockH)*scale)
		gl.End()

		y += float32(blockH) * scale
	}
}

func (d *glDisplay) Close() {
	if d.window != nil {
		d.window.Destroy()
		d.window = nil
	}
	glfw.Terminate()
}

func (d *glDisplay) selectBackend(kind tracer.Kind) {
	if err := d.renderer.SelectBackend(kind); err != nil {
		d.renderer.logger.Warningf("cannot switch to %s backend: %v", kind, err)
	}
}

func (d *glDisplay) onKeyEvent(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}

	var moveDir scene.CameraDirection
	switch key {
	case glfw.KeyEscape:
		d.window.SetShouldClose(true)
		return
	case glfw.KeyUp:
		moveDir = scene.Forward
	case glfw.KeyDown:
		moveDir = scene.Backward
	case glfw.KeyLeft:
		moveDir = scene.Left
	case glfw.KeyRight:
		moveDir = scene.Right
	case glfw.KeyPageUp:
		moveDir = scene.Up
	case glfw.KeyPageDown:
		moveDir = scene.Down
	case glfw.Key1:
		d.selectBackend(tracer.CPU)
		return
	case glfw.Key2:
		d.selectBackend(tracer.OpenCL)
		return
	case glfw.Key0:
		d.settings.CycleDebugView()
		return
	case glfw.KeyA:
		d.settings.ToggleFlag(tracer.AmbientOcclusion)
		return
	case glfw.KeyR:
		d.renderer.ResetCamera()
		return
	case glfw.KeyP:
		if _, err := d.renderer.Screenshot(d.screenshotDir); err != nil {
			d.renderer.logger.Errorf("could not save screenshot: %v", err)
		}
		return
	case glfw.KeyTab:
		d.showUI = !d.showUI
		return
	default:
		return
	}

	// Double speed if shift is pressed
	var speedScaler float32 = 1.0
	if (mods & glfw.ModShift) == glfw.ModShift {
		speedScaler = 2.0
	}
	d.camera.Move(moveDir, speedScaler*cameraMoveSpeed)
}

func (d *glDisplay) onMouseEvent(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mod glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft && button != glfw.MouseButtonRight {
		return
	}

	d.mousePressed[leftMouseButton] = false
	d.mousePressed[rightMouseButton] = false

	if action == glfw.Press {
		xPos, yPos := w.GetCursorPos()
		d.lastCursorPos[0], d.lastCursorPos[1] = float32(xPos), float32(yPos)

		buttonIndex := leftMouseButton
		if button == glfw.MouseButtonRight {
			buttonIndex = rightMouseButton
		}

		d.mousePressed[buttonIndex] = true
	}
}

func (d *glDisplay) onCursorPosEvent(w *glfw.Window, xPos, yPos float64) {
	if !d.mousePressed[leftMouseButton] && !d.mousePressed[rightMouseButton] {
		return
	}

	// Calculate delta movement and apply mouse sensitivity
	newPos := types.Vec2{float32(xPos), float32(yPos)}
	delta := d.lastCursorPos.Sub(newPos)
	delta[0] *= mouseSensitivityX
	delta[1] *= mouseSensitivityY
	d.lastCursorPos = newPos

	if d.mousePressed[leftMouseButton] {
		// The left mouse button rotates the view around the eye
		d.camera.Rotate(delta[1], delta[0])
	} else {
		// The right mouse button pans up and down
		d.camera.Move(scene.Up, -delta[1]*10)
	}
}
