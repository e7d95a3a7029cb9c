// Package stride implements rectangular region copies between flat,
// differently strided byte buffers.
//
// A multi-field array stored as [field][condition] (or [condition][field])
// cannot hand a sub-range of conditions to a linear copy in one pass: the
// active chunk is a rectangle cut out of the full array. CopyIn and CopyOut
// move such a rectangle between a strided host allocation and a contiguous
// device-visible image that holds only the chunk.
package stride

import "fmt"

// Region is the shape of a rectangular copy: a contiguous run of
// BytesPerRow bytes, repeated Rows times per slice over Slices slices.
type Region struct {
	BytesPerRow int
	Rows        int
	Slices      int
}

func (r Region) empty() bool {
	return r.BytesPerRow == 0 || r.Rows == 0 || r.Slices == 0
}

// Origin locates row 0 of a region inside a strided buffer:
// byte offset, row index, slice index. The first row starts at
// Origin[0] + rowPitch*Origin[1] + slicePitch*Origin[2].
type Origin [3]int

func (o Origin) offset(rowPitch, slicePitch int) int {
	return o[0] + rowPitch*o[1] + slicePitch*o[2]
}

// CopyIn copies a region from a strided host buffer into a device-visible
// image whose origin is zero. Behavior is undefined if dst and src overlap.
func CopyIn(dst, src []byte, hostOrigin Origin, r Region, dstRowPitch, dstSlicePitch, hostRowPitch, hostSlicePitch int) error {
	return rectCopy(dst, src, Origin{}, hostOrigin, r, dstRowPitch, dstSlicePitch, hostRowPitch, hostSlicePitch)
}

// CopyOut copies a region from a device-visible image whose origin is zero
// back into a strided host buffer. Behavior is undefined if dst and src
// overlap.
func CopyOut(dst, src []byte, hostOrigin Origin, r Region, hostRowPitch, hostSlicePitch, srcRowPitch, srcSlicePitch int) error {
	return rectCopy(dst, src, hostOrigin, Origin{}, r, hostRowPitch, hostSlicePitch, srcRowPitch, srcSlicePitch)
}

func rectCopy(dst, src []byte, dstOrigin, srcOrigin Origin, r Region, dstRowPitch, dstSlicePitch, srcRowPitch, srcSlicePitch int) error {
	if r.empty() {
		return nil
	}
	if r.BytesPerRow < 0 || r.Rows < 0 || r.Slices < 0 {
		return fmt.Errorf("stride: negative region %+v", r)
	}
	if dstRowPitch < 0 || dstSlicePitch < 0 || srcRowPitch < 0 || srcSlicePitch < 0 {
		return fmt.Errorf("stride: negative pitch")
	}

	dstBase := dstOrigin.offset(dstRowPitch, dstSlicePitch)
	srcBase := srcOrigin.offset(srcRowPitch, srcSlicePitch)
	if dstBase < 0 || srcBase < 0 {
		return fmt.Errorf("stride: negative origin offset")
	}

	// Rows within a slice and slices within the buffer are laid out at
	// non-negative pitches, so the furthest byte touched is the end of the
	// last row of the last slice.
	dstEnd := dstBase + (r.Slices-1)*dstSlicePitch + (r.Rows-1)*dstRowPitch + r.BytesPerRow
	srcEnd := srcBase + (r.Slices-1)*srcSlicePitch + (r.Rows-1)*srcRowPitch + r.BytesPerRow
	if dstEnd > len(dst) {
		return fmt.Errorf("stride: destination region out of range: need %d bytes, have %d", dstEnd, len(dst))
	}
	if srcEnd > len(src) {
		return fmt.Errorf("stride: source region out of range: need %d bytes, have %d", srcEnd, len(src))
	}

	for s := 0; s < r.Slices; s++ {
		dstRow := dstBase + s*dstSlicePitch
		srcRow := srcBase + s*srcSlicePitch
		for row := 0; row < r.Rows; row++ {
			copy(dst[dstRow:dstRow+r.BytesPerRow], src[srcRow:srcRow+r.BytesPerRow])
			dstRow += dstRowPitch
			srcRow += srcRowPitch
		}
	}
	return nil
}
