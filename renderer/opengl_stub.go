//go:build !gl

package renderer

import (
	"fmt"

	"github.com/Sansait/Paralight/scene"
)

// Open a window of the given size that presents frames rendered by r. This
// build does not include opengl support.
func NewGLDisplay(r *Progressive, camera *scene.CameraControls, settings *Settings, frameW, frameH uint32, screenshotDir string) (InteractiveDisplay, error) {
	return nil, fmt.Errorf("%w: opengl support not compiled in (rebuild with -tags gl)", ErrDisplayUnavailable)
}
