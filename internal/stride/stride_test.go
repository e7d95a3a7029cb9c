package stride

import (
	"bytes"
	"testing"
)

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i%251 + 1)
	}
	return b
}

func filled(n int, v byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = v
	}
	return b
}

func TestCopyInContiguousRow(t *testing.T) {
	src := pattern(64)
	dst := make([]byte, 16)

	// One row of 16 bytes starting at byte 24.
	err := CopyIn(dst, src, Origin{24, 0, 0}, Region{BytesPerRow: 16, Rows: 1, Slices: 1}, 16, 16, 16, 16)
	if err != nil {
		t.Fatalf("CopyIn failed: %v", err)
	}
	if !bytes.Equal(dst, src[24:40]) {
		t.Errorf("contiguous row mismatch: got %v, want %v", dst, src[24:40])
	}
}

func TestCopyInStridedRows(t *testing.T) {
	// Host: 3 field rows of 8 conditions each (1 byte per element).
	// Chunk: conditions [2, 6) of every field.
	const hostConds, fields = 8, 3
	const offset, n = 2, 4
	src := pattern(hostConds * fields)
	dst := make([]byte, n*fields)

	err := CopyIn(dst, src,
		Origin{offset, 0, 0},
		Region{BytesPerRow: n, Rows: fields, Slices: 1},
		n, n*fields,
		hostConds, hostConds*fields)
	if err != nil {
		t.Fatalf("CopyIn failed: %v", err)
	}

	for f := 0; f < fields; f++ {
		for c := 0; c < n; c++ {
			got := dst[f*n+c]
			want := src[f*hostConds+offset+c]
			if got != want {
				t.Errorf("field %d cond %d: got %d, want %d", f, c, got, want)
			}
		}
	}
}

func TestRoundTripRestoresExactlyTheRegion(t *testing.T) {
	const hostConds, fields = 10, 4
	const offset, n = 3, 5
	src := pattern(hostConds * fields)
	region := Region{BytesPerRow: n, Rows: fields, Slices: 1}
	origin := Origin{offset, 0, 0}

	image := make([]byte, n*fields)
	if err := CopyIn(image, src, origin, region, n, n*fields, hostConds, hostConds*fields); err != nil {
		t.Fatalf("CopyIn failed: %v", err)
	}

	// Copy back into a sentinel-filled host buffer with identical region
	// parameters: the copied region must match src, everything else must
	// keep the sentinel.
	back := filled(hostConds*fields, 0xEE)
	if err := CopyOut(back, image, origin, region, hostConds, hostConds*fields, n, n*fields); err != nil {
		t.Fatalf("CopyOut failed: %v", err)
	}

	for f := 0; f < fields; f++ {
		for c := 0; c < hostConds; c++ {
			i := f*hostConds + c
			inside := c >= offset && c < offset+n
			if inside && back[i] != src[i] {
				t.Errorf("inside region at field %d cond %d: got %d, want %d", f, c, back[i], src[i])
			}
			if !inside && back[i] != 0xEE {
				t.Errorf("outside region at field %d cond %d touched: got %d", f, c, back[i])
			}
		}
	}
}

func TestSlicedRegion(t *testing.T) {
	// Two slices of 2 rows x 4 bytes inside a 2x4x16 source.
	const srcSlice, srcRow = 64, 16
	src := pattern(2 * srcSlice)
	dst := make([]byte, 2*2*4)

	err := CopyIn(dst, src,
		Origin{4, 1, 0},
		Region{BytesPerRow: 4, Rows: 2, Slices: 2},
		4, 8,
		srcRow, srcSlice)
	if err != nil {
		t.Fatalf("CopyIn failed: %v", err)
	}

	for s := 0; s < 2; s++ {
		for r := 0; r < 2; r++ {
			want := src[s*srcSlice+(r+1)*srcRow+4 : s*srcSlice+(r+1)*srcRow+8]
			got := dst[s*8+r*4 : s*8+r*4+4]
			if !bytes.Equal(got, want) {
				t.Errorf("slice %d row %d: got %v, want %v", s, r, got, want)
			}
		}
	}
}

func TestEmptyRegionIsNoop(t *testing.T) {
	dst := filled(8, 0xAA)
	if err := CopyIn(dst, nil, Origin{}, Region{}, 0, 0, 0, 0); err != nil {
		t.Fatalf("empty region should not error: %v", err)
	}
	if !bytes.Equal(dst, filled(8, 0xAA)) {
		t.Error("empty region modified destination")
	}
}

func TestOutOfRangeRejected(t *testing.T) {
	src := pattern(16)
	dst := make([]byte, 16)

	if err := CopyIn(dst, src, Origin{8, 0, 0}, Region{BytesPerRow: 12, Rows: 1, Slices: 1}, 12, 12, 12, 12); err == nil {
		t.Error("source overrun not detected")
	}
	if err := CopyIn(dst[:4], src, Origin{}, Region{BytesPerRow: 8, Rows: 1, Slices: 1}, 8, 8, 8, 8); err == nil {
		t.Error("destination overrun not detected")
	}
	if err := CopyIn(dst, src, Origin{0, 1, 0}, Region{BytesPerRow: 4, Rows: 2, Slices: 1}, 4, 8, 12, 16); err == nil {
		t.Error("origin row offset overrun not detected")
	}
}
