package segment

// Capacity is the maximum number of segments the window holds at once.
const Capacity = 1000

// Window is a fixed-capacity ring of segments representing a contiguous run
// of ranges starting at file offset persistedSegments*Size. It is the
// single source of truth for which ranges are in flight, received, or still
// to be scheduled — the caller must never write a byte to the output file
// except through the run returned by Shrink.
type Window struct {
	queue             []*Segment
	recycled          []*Segment
	persistedSegments uint64
}

// NewWindow seeds a window from the range iterator, consuming up to
// Capacity ranges.
func NewWindow(it *RangeIterator) *Window {
	w := &Window{queue: make([]*Segment, 0, Capacity)}
	for len(w.queue) < Capacity {
		r, ok := it.Next()
		if !ok {
			break
		}
		w.queue = append(w.queue, New(r))
	}
	return w
}

// Len returns the number of segments currently held in the queue.
func (w *Window) Len() int {
	return len(w.queue)
}

// PersistedSegments returns the count of segments already written to disk.
func (w *Window) PersistedSegments() uint64 {
	return w.persistedSegments
}

// baseOffset is the file offset of the window's first (possibly unreceived)
// segment.
func (w *Window) baseOffset() uint64 {
	return w.persistedSegments * Size
}

// Contains reports whether r's start offset falls inside the window.
func (w *Window) Contains(r ByteRange) bool {
	lo := w.baseOffset()
	hi := lo + uint64(len(w.queue))*Size
	return r.Start >= lo && r.Start < hi
}

// index computes the queue slot for a range known to satisfy Contains.
// Indexing a range that fails Contains is a programming error.
func (w *Window) index(r ByteRange) int {
	return int(r.Start/Size) - int(w.persistedSegments)
}

// RecordReceived stores payload for the slot addressed by r, provided the
// slot is inside the window, NotReceived, and its stored range matches r
// exactly. Any other case — out of window, already Received (duplicate),
// or a mismatched range — is dropped silently: the network is assumed
// lossy and possibly adversarial, never the source of a fatal condition.
func (w *Window) RecordReceived(r ByteRange, payload []byte) {
	if !w.Contains(r) {
		return
	}
	i := w.index(r)
	if i < 0 || i >= len(w.queue) {
		return
	}
	seg := w.queue[i]
	if seg.Received() {
		return
	}
	if seg.Range != r {
		return
	}
	seg.SetData(payload)
}

// Shrink drains the longest Received prefix of the queue into the recycled
// pool, advances persistedSegments, and returns the drained run so the
// caller can persist its payloads, in order, to the output file. This is
// the only path by which bytes reach the file.
func (w *Window) Shrink() []*Segment {
	k := 0
	for k < len(w.queue) && w.queue[k].Received() {
		k++
	}
	drained := w.queue[:k]
	w.queue = w.queue[k:]
	w.recycled = append(w.recycled, drained...)
	w.persistedSegments += uint64(k)
	return drained
}

// Extend tops the queue back up from the recycled pool: for each recycled
// segment it pulls the next range from it and pushes a fresh segment,
// reusing the recycled segment's buffer. It stops when recycled is empty or
// it is exhausted.
func (w *Window) Extend(it *RangeIterator) {
	for len(w.recycled) > 0 {
		r, ok := it.Next()
		if !ok {
			break
		}
		old := w.recycled[0]
		w.recycled = w.recycled[1:]
		w.queue = append(w.queue, WithBuffer(r, old.releaseBuffer()))
	}
}

// Unreceived returns every segment in the queue whose status is
// NotReceived, in queue order, for the sender to re-request.
func (w *Window) Unreceived() []*Segment {
	out := make([]*Segment, 0, len(w.queue))
	for _, s := range w.queue {
		if !s.Received() {
			out = append(out, s)
		}
	}
	return out
}
