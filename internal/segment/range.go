package segment

// RangeIterator produces successive Size-byte ranges covering a file of
// known length: [0, Size), [Size, 2*Size), ..., terminating with a final,
// possibly shorter, range. It is stateful, deterministic, and
// non-restartable; the downloader consumes it only sequentially.
type RangeIterator struct {
	offset   uint64
	fileSize uint64
	segSize  uint64
}

// NewRangeIterator builds an iterator over a file of fileSize bytes using
// the protocol's fixed Size.
func NewRangeIterator(fileSize uint64) *RangeIterator {
	return NewRangeIteratorWithSize(fileSize, Size)
}

// NewRangeIteratorWithSize builds an iterator with an explicit segment
// size, primarily so tests can exercise the iterator's chunking arithmetic
// independently of the protocol's fixed Size.
func NewRangeIteratorWithSize(fileSize, segSize uint64) *RangeIterator {
	return &RangeIterator{fileSize: fileSize, segSize: segSize}
}

// Next returns the next range and true, or a zero ByteRange and false once
// the file has been fully covered.
func (it *RangeIterator) Next() (ByteRange, bool) {
	if it.offset >= it.fileSize {
		return ByteRange{}, false
	}

	start := it.offset
	remaining := it.fileSize - start
	length := it.segSize
	if remaining < length {
		length = remaining
	}
	end := start + length
	it.offset = end

	return ByteRange{Start: start, End: end}, true
}
