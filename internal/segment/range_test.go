package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeIterator_FileSize1000Seg300(t *testing.T) {
	it := NewRangeIteratorWithSize(1000, 300)

	var got []ByteRange
	for {
		r, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, r)
	}

	assert.Equal(t, []ByteRange{
		{Start: 0, End: 300},
		{Start: 300, End: 600},
		{Start: 600, End: 900},
		{Start: 900, End: 1000},
	}, got)
}

func TestRangeIterator_FileSize100Seg1000(t *testing.T) {
	it := NewRangeIteratorWithSize(100, 1000)

	r, ok := it.Next()
	assert.True(t, ok)
	assert.Equal(t, ByteRange{Start: 0, End: 100}, r)

	_, ok = it.Next()
	assert.False(t, ok)
}

func TestRangeIterator_DefaultSize_ExactMultiple(t *testing.T) {
	it := NewRangeIterator(1500)

	var got []ByteRange
	for {
		r, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, r)
	}

	assert.Equal(t, []ByteRange{
		{Start: 0, End: 500},
		{Start: 500, End: 1000},
		{Start: 1000, End: 1500},
	}, got)
}

func TestRangeIterator_ZeroFileSize(t *testing.T) {
	it := NewRangeIterator(0)
	_, ok := it.Next()
	assert.False(t, ok)
}
