package scene

// ChangeTracker remembers the last observed value of a comparable input and
// reports whether a newly observed value differs from it. The first
// observation always counts as a change.
type ChangeTracker[T comparable] struct {
	last T
	seen bool
}

// Record cur and report whether it differs from the previously recorded value.
func (ct *ChangeTracker[T]) Observe(cur T) bool {
	changed := !ct.seen || ct.last != cur
	ct.last = cur
	ct.seen = true
	return changed
}

// Get the last recorded value and whether any value was recorded.
func (ct *ChangeTracker[T]) Last() (T, bool) {
	return ct.last, ct.seen
}

// Forget the recorded value so the next observation is reported as a change.
func (ct *ChangeTracker[T]) Invalidate() {
	var zero T
	ct.last = zero
	ct.seen = false
}
