package feed

// Window is a bounded, insertion-ordered set of recently delivered
// transaction signatures. Eviction is strict FIFO once capacity is exceeded.
// It is owned by a single subscription loop and is not safe for concurrent
// use.
type Window struct {
	capacity int
	order    []string
	set      map[string]struct{}
}

// NewWindow creates a dedupe window with the given capacity.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		set:      make(map[string]struct{}, capacity),
	}
}

// Seen reports whether key is currently in the window.
func (w *Window) Seen(key string) bool {
	_, ok := w.set[key]
	return ok
}

// Add inserts key, evicting the oldest entry when over capacity.
// Returns false if the key was already present.
func (w *Window) Add(key string) bool {
	if w.Seen(key) {
		return false
	}
	w.set[key] = struct{}{}
	w.order = append(w.order, key)
	for len(w.order) > w.capacity {
		oldest := w.order[0]
		w.order = w.order[1:]
		delete(w.set, oldest)
	}
	return true
}

// Len returns the current number of entries.
func (w *Window) Len() int {
	return len(w.order)
}
