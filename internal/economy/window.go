package economy

// Window is a fixed-capacity ring of samples. It is always full: the
// constructor pre-fills every slot, and Push evicts the oldest sample.
// Window is not safe for concurrent use; the owner serializes access.
type Window struct {
	buf  []float64
	head int // index of the oldest sample
}

// NewWindow returns a window of the given capacity filled with fill.
func NewWindow(size int, fill float64) *Window {
	if size < 1 {
		size = 1
	}
	w := &Window{buf: make([]float64, size)}
	w.Fill(fill)
	return w
}

// Push appends v and evicts the oldest sample.
func (w *Window) Push(v float64) {
	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
}

// Oldest returns the sample that will be evicted next.
func (w *Window) Oldest() float64 {
	return w.buf[w.head]
}

// Newest returns the most recently pushed sample.
func (w *Window) Newest() float64 {
	return w.buf[(w.head+len(w.buf)-1)%len(w.buf)]
}

// Len returns the capacity, which is also the number of samples held.
func (w *Window) Len() int {
	return len(w.buf)
}

// Fill overwrites every slot with v.
func (w *Window) Fill(v float64) {
	for i := range w.buf {
		w.buf[i] = v
	}
	w.head = 0
}

// Values returns a copy of the samples ordered oldest to newest.
func (w *Window) Values() []float64 {
	out := make([]float64, 0, len(w.buf))
	out = append(out, w.buf[w.head:]...)
	out = append(out, w.buf[:w.head]...)
	return out
}
