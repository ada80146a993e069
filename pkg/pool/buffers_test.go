package pool

import (
	"bytes"
	"testing"
)

func TestGetBuffer_Empty(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("dirty")
	PutBuffer(buf)

	again := GetBuffer()
	if again.Len() != 0 {
		t.Errorf("Expected empty buffer, got %q", again.String())
	}
	PutBuffer(again)
}

func TestPutBuffer_Nil(t *testing.T) {
	PutBuffer(nil)
}

func TestPutBuffer_Oversized(t *testing.T) {
	big := bytes.NewBuffer(make([]byte, 0, maxPooledCap+1))
	PutBuffer(big)

	buf := GetBuffer()
	if buf.Cap() > maxPooledCap {
		t.Errorf("Oversized buffer should not be recycled, cap=%d", buf.Cap())
	}
}
