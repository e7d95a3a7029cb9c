package layout

import (
	"testing"

	"github.com/kinetix-hpc/kinetix/internal/stride"
)

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    Order
		wantErr bool
	}{
		{"C", RowMajor, false},
		{"c", RowMajor, false},
		{"F", ColMajor, false},
		{"f", ColMajor, false},
		{"X", RowMajor, true},
		{"", RowMajor, true},
	}
	for _, tt := range tests {
		got, err := ParseOrder(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOrder(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseOrder(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOrderString(t *testing.T) {
	if RowMajor.String() != "C" || ColMajor.String() != "F" {
		t.Errorf("Order.String() = %q/%q, want C/F", RowMajor, ColMajor)
	}
}

func TestPadCount(t *testing.T) {
	tests := []struct {
		n, vw, want int
	}{
		{10, 4, 12},
		{12, 4, 12},
		{1, 8, 8},
		{10, 1, 10},
		{10, 0, 10},
		{0, 4, 0},
	}
	for _, tt := range tests {
		if got := PadCount(tt.n, tt.vw); got != tt.want {
			t.Errorf("PadCount(%d, %d) = %d, want %d", tt.n, tt.vw, got, tt.want)
		}
	}
}

func TestFloorCount(t *testing.T) {
	tests := []struct {
		n, vw, want int
	}{
		{10, 4, 8},
		{12, 4, 12},
		{3, 8, 0},
		{10, 1, 10},
		{10, 0, 10},
	}
	for _, tt := range tests {
		if got := FloorCount(tt.n, tt.vw); got != tt.want {
			t.Errorf("FloorCount(%d, %d) = %d, want %d", tt.n, tt.vw, got, tt.want)
		}
	}
}

func TestBufferBytes(t *testing.T) {
	// 5 elements per condition, float64, 10 conditions padded to 12.
	if got := BufferBytes(5, 8, 10, 4); got != 5*8*12 {
		t.Errorf("BufferBytes = %d, want %d", got, 5*8*12)
	}
	// No vectorization: exact.
	if got := BufferBytes(5, 8, 10, 1); got != 5*8*10 {
		t.Errorf("BufferBytes unpadded = %d, want %d", got, 5*8*10)
	}
}

func TestPackOffsets(t *testing.T) {
	offsets, total := PackOffsets([]int64{100, 30, 8}, 64)
	want := []int64{0, 128, 192}
	for i := range want {
		if offsets[i] != want[i] {
			t.Errorf("offset[%d] = %d, want %d", i, offsets[i], want[i])
		}
	}
	if total != 256 {
		t.Errorf("total = %d, want 256", total)
	}

	// Alignment of 1 packs tight.
	offsets, total = PackOffsets([]int64{3, 5}, 1)
	if offsets[0] != 0 || offsets[1] != 3 || total != 8 {
		t.Errorf("tight pack = %v/%d, want [0 3]/8", offsets, total)
	}
}

func TestChunkRegionRowMajor(t *testing.T) {
	// 3 fields per condition, float64, conditions [2, 5) of 10.
	tr := ChunkRegion(RowMajor, 3, 8, 10, 4, 2, 3)

	if tr.HostOrigin != (stride.Origin{2 * 3 * 8, 0, 0}) {
		t.Errorf("host origin = %v", tr.HostOrigin)
	}
	want := stride.Region{BytesPerRow: 3 * 3 * 8, Rows: 1, Slices: 1}
	if tr.Region != want {
		t.Errorf("region = %+v, want %+v", tr.Region, want)
	}
}

func TestChunkRegionColMajor(t *testing.T) {
	// 3 fields per condition, float64, host of 10 conditions, device image
	// of 4, chunk [2, 5).
	tr := ChunkRegion(ColMajor, 3, 8, 10, 4, 2, 3)

	if tr.HostOrigin != (stride.Origin{2 * 8, 0, 0}) {
		t.Errorf("host origin = %v", tr.HostOrigin)
	}
	want := stride.Region{BytesPerRow: 3 * 8, Rows: 3, Slices: 1}
	if tr.Region != want {
		t.Errorf("region = %+v, want %+v", tr.Region, want)
	}
	if tr.HostRowPitch != 10*8 || tr.DevRowPitch != 4*8 {
		t.Errorf("pitches = host %d dev %d, want %d %d", tr.HostRowPitch, tr.DevRowPitch, 10*8, 4*8)
	}
}

// TestChunkRegionMovesTheRightElements drives a real copy through the
// computed transfer and checks element identity for both orders.
func TestChunkRegionMovesTheRightElements(t *testing.T) {
	const perCond, hostConds, devConds = 3, 8, 4
	const offset, n = 2, 3

	host := make([]byte, perCond*hostConds)
	for i := range host {
		host[i] = byte(i + 1)
	}

	for _, order := range []Order{RowMajor, ColMajor} {
		tr := ChunkRegion(order, perCond, 1, hostConds, devConds, offset, n)
		image := make([]byte, perCond*devConds)
		err := stride.CopyIn(image, host, tr.HostOrigin, tr.Region,
			tr.DevRowPitch, tr.DevSlicePitch, tr.HostRowPitch, tr.HostSlicePitch)
		if err != nil {
			t.Fatalf("order %v: CopyIn failed: %v", order, err)
		}

		for c := 0; c < n; c++ {
			for f := 0; f < perCond; f++ {
				var got, want byte
				if order == RowMajor {
					got = image[c*perCond+f]
					want = host[(offset+c)*perCond+f]
				} else {
					got = image[f*devConds+c]
					want = host[f*hostConds+offset+c]
				}
				if got != want {
					t.Errorf("order %v cond %d field %d: got %d, want %d", order, c, f, got, want)
				}
			}
		}
	}
}
