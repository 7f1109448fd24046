package tracer

import "errors"

var (
	ErrBackendUnavailable = errors.New("tracer: backend unavailable")
	ErrNoSceneData        = errors.New("tracer: no scene data")
	ErrInvalidPass        = errors.New("tracer: invalid pass request")
	ErrNotInitialized     = errors.New("tracer: not initialized")
)
