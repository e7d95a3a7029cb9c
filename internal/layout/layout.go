// Package layout computes buffer sizes, byte offsets and transfer regions
// for batched per-condition arrays.
//
// Every array processed by a kernel stores a fixed number of elements per
// condition. A batch of N conditions is stored either row-major
// ([condition][field], "C") or column-major ([field][condition], "F");
// the choice must match the ordering the kernel source was generated for.
package layout

import (
	"fmt"

	"github.com/kinetix-hpc/kinetix/internal/stride"
)

// Order is the storage ordering of a multi-field, multi-condition array.
type Order int

const (
	// RowMajor stores all fields of one condition contiguously ("C").
	RowMajor Order = iota
	// ColMajor stores all conditions of one field contiguously ("F").
	ColMajor
)

// ParseOrder converts the single-letter order tag used by generated
// kernels and data files.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "C", "c":
		return RowMajor, nil
	case "F", "f":
		return ColMajor, nil
	}
	return RowMajor, fmt.Errorf("layout: unknown order %q (want \"C\" or \"F\")", s)
}

func (o Order) String() string {
	if o == ColMajor {
		return "F"
	}
	return "C"
}

// PadCount rounds a condition count up to a multiple of the vector width.
// Padding affects buffer sizing only; the number of logically valid
// conditions is never rounded.
func PadCount(n, vecWidth int) int {
	if vecWidth <= 1 || n <= 0 {
		return n
	}
	return ((n + vecWidth - 1) / vecWidth) * vecWidth
}

// FloorCount rounds a condition count down to a multiple of the vector
// width. Applied once to the configured max-per-run when the kernel is
// vectorized, so every full chunk starts vector-aligned.
func FloorCount(n, vecWidth int) int {
	if vecWidth <= 1 || n <= 0 {
		return n
	}
	return (n / vecWidth) * vecWidth
}

// BufferBytes is the allocation size for one array holding count
// conditions of perCond elements each, padded to the vector width.
// Pure arithmetic; callers guarantee non-negative inputs.
func BufferBytes(perCond, elemBytes, count, vecWidth int) int64 {
	return int64(perCond) * int64(elemBytes) * int64(PadCount(count, vecWidth))
}

// AlignSize rounds size up to a multiple of align (a power of two).
func AlignSize(size, align int64) int64 {
	if align <= 1 {
		return size
	}
	return (size + align - 1) &^ (align - 1)
}

// PackOffsets packs a set of scratch allocations into one shared buffer.
// Each offset is aligned up to align bytes. Returns the byte offset of
// every allocation and the total buffer size.
func PackOffsets(sizes []int64, align int64) (offsets []int64, total int64) {
	offsets = make([]int64, len(sizes))
	for i, sz := range sizes {
		total = AlignSize(total, align)
		offsets[i] = total
		total += sz
	}
	return offsets, AlignSize(total, align)
}

// Transfer describes the strided copy that moves conditions
// [offset, offset+n) of one array between a host allocation of hostConds
// conditions and a device image of devConds conditions. The device image
// holds only the active chunk, so its origin is always zero.
type Transfer struct {
	HostOrigin stride.Origin
	Region     stride.Region

	DevRowPitch   int
	DevSlicePitch int

	HostRowPitch   int
	HostSlicePitch int
}

// DeviceBytes is the extent of the transfer in the device image, counted
// from the image start to the furthest byte the region touches.
func (t Transfer) DeviceBytes() int {
	r := t.Region
	if r.BytesPerRow <= 0 || r.Rows <= 0 || r.Slices <= 0 {
		return 0
	}
	return (r.Slices-1)*t.DevSlicePitch + (r.Rows-1)*t.DevRowPitch + r.BytesPerRow
}

// ChunkRegion computes the Transfer for one array and one chunk.
//
// Row-major storage keeps a chunk of whole conditions contiguous, so the
// copy collapses to a single row. Column-major storage scatters the chunk
// across perCond field rows, each hostConds (resp. devConds) elements
// apart; this is the case a naive linear copy cannot express.
func ChunkRegion(order Order, perCond, elemBytes, hostConds, devConds, offset, n int) Transfer {
	if order == RowMajor {
		row := n * perCond * elemBytes
		return Transfer{
			HostOrigin:     stride.Origin{offset * perCond * elemBytes, 0, 0},
			Region:         stride.Region{BytesPerRow: row, Rows: 1, Slices: 1},
			DevRowPitch:    row,
			DevSlicePitch:  row,
			HostRowPitch:   row,
			HostSlicePitch: row,
		}
	}
	row := n * elemBytes
	devPitch := devConds * elemBytes
	hostPitch := hostConds * elemBytes
	return Transfer{
		HostOrigin:     stride.Origin{offset * elemBytes, 0, 0},
		Region:         stride.Region{BytesPerRow: row, Rows: perCond, Slices: 1},
		DevRowPitch:    devPitch,
		DevSlicePitch:  devPitch * perCond,
		HostRowPitch:   hostPitch,
		HostSlicePitch: hostPitch * perCond,
	}
}
