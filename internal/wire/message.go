// Package wire implements the text-framed request/response protocol spoken
// between the downloader and the file server.
package wire

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// SegmentSize is the maximum number of payload bytes carried by a single
// DATA response, and the size every request asks for except for the final,
// possibly-shorter, segment of a file.
const SegmentSize = 500

// ErrMalformed is wrapped by every decode failure so callers can drop a bad
// datagram with a single errors.Is check instead of switching on message text.
var ErrMalformed = errors.New("malformed response")

// Response is a decoded DATA message: the byte range it claims to carry and
// the payload itself, trimmed to exactly that range's length.
type Response struct {
	Start  uint64
	Length uint64
	Data   []byte
}

// End returns the exclusive end offset of the response's byte range.
func (r Response) End() uint64 {
	return r.Start + r.Length
}

// EncodeRequest renders the wire form of a GET for [start, start+length).
//
//	GET <start> <length>\n
func EncodeRequest(start, length uint64) []byte {
	var buf bytes.Buffer
	buf.Grow(19)
	buf.WriteString("GET ")
	buf.WriteString(strconv.FormatUint(start, 10))
	buf.WriteByte(' ')
	buf.WriteString(strconv.FormatUint(length, 10))
	buf.WriteByte('\n')
	return buf.Bytes()
}

// DecodeResponse parses a DATA message of the form:
//
//	DATA <start> <length>\n<length bytes of payload>
//
// Every validation failure wraps ErrMalformed; callers should drop the
// datagram and continue rather than treat decode errors as fatal.
func DecodeResponse(datagram []byte) (Response, error) {
	nl := bytes.IndexByte(datagram, '\n')
	if nl < 0 {
		return Response{}, fmt.Errorf("%w: no header terminator", ErrMalformed)
	}

	header := datagram[:nl]
	payload := datagram[nl+1:]

	fields := bytes.Fields(header)
	if len(fields) != 3 || !bytes.Equal(fields[0], []byte("DATA")) {
		return Response{}, fmt.Errorf("%w: bad header %q", ErrMalformed, header)
	}

	start, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return Response{}, fmt.Errorf("%w: bad start: %v", ErrMalformed, err)
	}

	length, err := strconv.ParseUint(string(fields[2]), 10, 64)
	if err != nil {
		return Response{}, fmt.Errorf("%w: bad length: %v", ErrMalformed, err)
	}

	if length < 1 || length > SegmentSize {
		return Response{}, fmt.Errorf("%w: length %d out of range [1,%d]", ErrMalformed, length, SegmentSize)
	}

	if uint64(len(payload)) != length {
		return Response{}, fmt.Errorf("%w: payload length %d, want %d", ErrMalformed, len(payload), length)
	}

	return Response{Start: start, Length: length, Data: payload}, nil
}

// MinHeaderSize and MaxHeaderSize bound the header text alone: the shortest
// header is "DATA 0 1\n" (9 bytes); the longest allows a 9-digit start
// offset with a 3-digit length field (19 bytes), the widest length field
// a value of at most SegmentSize needs.
const (
	MinHeaderSize = 9
	MaxHeaderSize = 19
)

// MinSize and MaxSize bound a complete DATA datagram (header + payload),
// used by callers sizing receive buffers and rejecting oversized reads
// before attempting to decode.
const (
	MinSize = MinHeaderSize + 1
	MaxSize = MaxHeaderSize + SegmentSize
)
