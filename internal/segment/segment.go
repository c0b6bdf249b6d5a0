// Package segment implements the byte-range slot (Segment), the lazy
// sequence of ranges covering a file (RangeIterator), and the bounded
// sliding window (Window) that ties them together for the downloader.
package segment

import "github.com/mikiSpoko200/computer-networks/internal/wire"

// Size is the fixed segment length in bytes. Every segment's range has this
// length except possibly the file's final segment.
const Size = wire.SegmentSize

// Status is a segment's receipt state.
type Status int

const (
	NotReceived Status = iota
	Received
)

// ByteRange is a half-open interval [Start, End) of file offsets.
type ByteRange struct {
	Start uint64
	End   uint64
}

// Len returns End - Start.
func (r ByteRange) Len() uint64 {
	return r.End - r.Start
}

// Segment owns a byte buffer of capacity Size and tracks whether its range
// has been received from the server yet.
type Segment struct {
	Range  ByteRange
	status Status
	data   []byte
}

// New allocates a fresh, NotReceived segment for range r.
func New(r ByteRange) *Segment {
	return WithBuffer(r, make([]byte, 0, Size))
}

// WithBuffer builds a fresh NotReceived segment for range r reusing buf's
// backing array (cleared first). This is the window's recycle path.
func WithBuffer(r ByteRange, buf []byte) *Segment {
	return &Segment{Range: r, status: NotReceived, data: buf[:0]}
}

// Received reports whether the segment's payload has been stored.
func (s *Segment) Received() bool {
	return s.status == Received
}

// SetData copies payload (truncated to Size) into the segment's buffer and
// marks it Received. Writing into an already-Received segment is a no-op —
// callers must check Received() before calling, to avoid corrupting a
// payload already counted toward the persisted prefix.
func (s *Segment) SetData(payload []byte) {
	if s.status == Received {
		return
	}
	n := len(payload)
	if n > Size {
		n = Size
	}
	s.data = append(s.data[:0], payload[:n]...)
	s.status = Received
}

// Data returns the segment's valid bytes. Its length equals Range.Len()
// once Received.
func (s *Segment) Data() []byte {
	return s.data
}

// Request renders this segment's wire-form GET request.
func (s *Segment) Request() []byte {
	return wire.EncodeRequest(s.Range.Start, s.Range.Len())
}

// releaseBuffer hands back the segment's backing array, truncated to zero
// length, for a freshly constructed segment to reuse via WithBuffer. The
// segment itself must not be used again afterward.
func (s *Segment) releaseBuffer() []byte {
	buf := s.data[:0]
	s.data = nil
	return buf
}
