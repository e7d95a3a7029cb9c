package conditions

import (
	"math"
	"unsafe"
)

// Bytes views a float64 slice as raw bytes without copying. The view
// aliases xs, so it is valid only while xs is.
func Bytes(xs []float64) []byte {
	if len(xs) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&xs[0])), len(xs)*8)
}

// Floats views raw bytes as a float64 slice without copying. len(p) must
// be a multiple of 8.
func Floats(p []byte) []float64 {
	if len(p) == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&p[0])), len(p)/8)
}

// Float32Bytes narrows a float64 host array to the float32 bytes a
// 4-byte-element device consumes. Allocates.
func Float32Bytes(xs []float64) []byte {
	out := make([]byte, len(xs)*4)
	for i, v := range xs {
		bits := math.Float32bits(float32(v))
		out[i*4] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

// Float32Values widens float32 bytes back to float64 values. Allocates.
func Float32Values(p []byte) []float64 {
	out := make([]float64, len(p)/4)
	for i := range out {
		bits := uint32(p[i*4]) | uint32(p[i*4+1])<<8 | uint32(p[i*4+2])<<16 | uint32(p[i*4+3])<<24
		out[i] = float64(math.Float32frombits(bits))
	}
	return out
}
