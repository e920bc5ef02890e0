package pool

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewByteBuffer(t *testing.T) {
	bb := NewByteBuffer(1024)

	require.NotNil(t, bb)
	assert.Equal(t, 0, len(bb.B), "new buffer should have zero length")
	assert.Equal(t, 1024, cap(bb.B), "new buffer should have specified capacity")
}

func TestByteBuffer_Bytes(t *testing.T) {
	bb := NewByteBuffer(ColumnBufferDefaultSize)
	bb.MustWrite([]byte("hello"))

	got := bb.Bytes()
	assert.Equal(t, []byte("hello"), got)
	assert.True(t, &bb.B[0] == &got[0], "Bytes should return the same underlying slice")
}

func TestByteBuffer_Reset(t *testing.T) {
	bb := NewByteBuffer(ColumnBufferDefaultSize)
	bb.MustWrite([]byte("some data"))
	originalCap := cap(bb.B)

	bb.Reset()

	assert.Equal(t, 0, bb.Len(), "Reset should clear the buffer length")
	assert.Equal(t, originalCap, bb.Cap(), "Reset should preserve capacity")
}

func TestByteBuffer_MustWriteByte(t *testing.T) {
	bb := NewByteBuffer(4)
	bb.MustWriteByte(0xAB)
	bb.MustWriteByte(0xCD)

	assert.Equal(t, []byte{0xAB, 0xCD}, bb.Bytes())
}

func TestByteBuffer_Grow(t *testing.T) {
	t.Run("no-op with sufficient capacity", func(t *testing.T) {
		bb := NewByteBuffer(64)
		bb.Grow(32)
		assert.Equal(t, 64, bb.Cap())
	})

	t.Run("grows when required", func(t *testing.T) {
		bb := NewByteBuffer(8)
		bb.MustWrite([]byte("12345678"))
		bb.Grow(1024)
		assert.GreaterOrEqual(t, bb.Cap()-bb.Len(), 1024)
		assert.Equal(t, []byte("12345678"), bb.Bytes(), "Grow must preserve contents")
	})
}

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.MustWrite([]byte("payload"))

	var out bytes.Buffer
	n, err := bb.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "payload", out.String())
}

func TestByteBufferPool_GetPut(t *testing.T) {
	p := NewByteBufferPool(128, 1024)

	bb := p.Get()
	require.NotNil(t, bb)
	bb.MustWrite([]byte("data"))
	p.Put(bb)

	// A recycled buffer must come back empty.
	bb2 := p.Get()
	assert.Equal(t, 0, bb2.Len())
}

func TestByteBufferPool_DiscardsOversized(t *testing.T) {
	p := NewByteBufferPool(16, 32)

	bb := p.Get()
	bb.Grow(1024)
	p.Put(bb) // over threshold, must not be retained

	bb2 := p.Get()
	assert.LessOrEqual(t, bb2.Cap(), 1024)
}

func TestByteBufferPool_NilPut(t *testing.T) {
	p := NewByteBufferPool(16, 32)
	require.NotPanics(t, func() { p.Put(nil) })
}

func TestColumnBufferPool_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for k := 0; k < 8; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 100; k++ {
				bb := GetColumnBuffer()
				bb.MustWrite([]byte("column data"))
				PutColumnBuffer(bb)
			}
		}()
	}
	wg.Wait()
}
