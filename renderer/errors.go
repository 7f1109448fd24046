package renderer

import "errors"

var (
	ErrNoBackends         = errors.New("renderer: no backends registered")
	ErrUnknownBackend     = errors.New("renderer: backend not registered")
	ErrNoUsableBackend    = errors.New("renderer: no usable backend left")
	ErrSceneNotDefined    = errors.New("renderer: no scene defined")
	ErrFrameNotPrepared   = errors.New("renderer: Render called without a preceding Update")
	ErrDisplayUnavailable = errors.New("renderer: display unavailable")
)
