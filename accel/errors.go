package accel

import "errors"

var (
	ErrEmptyGeometry = errors.New("accel: cannot build acceleration structure for empty geometry")
	ErrCorruptTree   = errors.New("accel: corrupt bvh tree")
)
