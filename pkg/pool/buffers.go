// Package pool recycles render buffers on the hot path.
package pool

import (
	"bytes"
	"sync"
)

// maxPooledCap bounds the buffers kept for reuse.
const maxPooledCap = 64 * 1024

var buffers = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// GetBuffer returns an empty buffer.
func GetBuffer() *bytes.Buffer {
	buf := buffers.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer hands buf back. Oversized buffers are dropped.
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledCap {
		return
	}
	buffers.Put(buf)
}
