package binary

import (
	"io"
)

// SafeWriter wraps io.Writer with position tracking.
type SafeWriter struct {
	w      io.Writer
	offset int64
}

// NewSafeWriter creates a new SafeWriter.
func NewSafeWriter(w io.Writer) *SafeWriter {
	return &SafeWriter{w: w}
}

// Offset returns the current position (number of bytes written).
func (sw *SafeWriter) Offset() int64 {
	return sw.offset
}

// WriteBytes writes raw bytes to the underlying writer.
func (sw *SafeWriter) WriteBytes(b []byte) error {
	n, err := sw.w.Write(b)
	sw.offset += int64(n)
	return err
}

// Write writes a value of type T in little-endian byte order.
func Write[T Number](sw *SafeWriter, val T) error {
	buf := make([]byte, SizeOf[T]())
	encode(buf, val)
	return sw.WriteBytes(buf)
}

// WriteAll writes every value in order, stopping at the first error.
func WriteAll[T Number](sw *SafeWriter, vals []T) error {
	for _, v := range vals {
		if err := Write(sw, v); err != nil {
			return err
		}
	}
	return nil
}
