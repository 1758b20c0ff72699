package stream

// ringBuffer keeps the most recent events up to a fixed capacity.
// Appends past capacity overwrite the oldest entry.
type ringBuffer struct {
	buf   []*Event
	head  int
	count int
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = 1024
	}
	return &ringBuffer{buf: make([]*Event, capacity)}
}

func (r *ringBuffer) append(evt *Event) {
	if evt == nil {
		return
	}
	idx := (r.head + r.count) % len(r.buf)
	r.buf[idx] = evt
	if r.count < len(r.buf) {
		r.count++
		return
	}
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ringBuffer) snapshot() []*Event {
	out := make([]*Event, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}
