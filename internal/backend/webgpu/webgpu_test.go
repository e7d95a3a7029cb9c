//go:build windows

package webgpu

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/kinetix-hpc/kinetix/internal/backend"
)

const doubleShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> output: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        output[idx] = 2.0 * input[idx];
    }
}
`

func TestIsAvailable(t *testing.T) {
	t.Logf("WebGPU available: %v", IsAvailable())
}

func TestNewRejectsCPUKind(t *testing.T) {
	_, err := New(backend.Config{Kind: backend.KindCPU})
	if !backend.IsCode(err, backend.NoDevicesOfKind) {
		t.Fatalf("expected NoDevicesOfKind, got %v", err)
	}
}

func TestLoadBinaryMissingFile(t *testing.T) {
	dev, err := New(backend.Config{Kind: backend.KindGPU})
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	defer dev.Release()

	_, err = dev.LoadBinary(filepath.Join(t.TempDir(), "nope.wgsl"))
	if !backend.IsCode(err, backend.BinaryNotFound) {
		t.Fatalf("expected BinaryNotFound, got %v", err)
	}

	empty := filepath.Join(t.TempDir(), "empty.wgsl")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = dev.LoadBinary(empty)
	if !backend.IsCode(err, backend.BinaryReadError) {
		t.Fatalf("expected BinaryReadError, got %v", err)
	}
}

func TestBufferRoundTrip(t *testing.T) {
	dev, err := New(backend.Config{Kind: backend.KindGPU})
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	defer dev.Release()

	buf, err := dev.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Release()

	in := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := buf.Write(16, in); err != nil {
		t.Fatal(err)
	}
	out := make([]byte, len(in))
	if err := buf.Read(16, out); err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("byte %d = %d, want %d", i, out[i], in[i])
		}
	}

	if err := buf.Write(60, in); !backend.IsCode(err, backend.TransferFailure) {
		t.Fatalf("expected TransferFailure past the end, got %v", err)
	}
}

func TestStagingPoolRecycles(t *testing.T) {
	dev, err := New(backend.Config{Kind: backend.KindGPU})
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	defer dev.Release()

	buf, err := dev.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Release()

	data := make([]byte, 64)
	if err := buf.Write(0, data); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := buf.Read(0, data); err != nil {
			t.Fatal(err)
		}
	}

	hits, misses, pooled := dev.(*Device).staging.stats()
	if hits < 2 {
		t.Fatalf("staging pool hits = %d after repeated reads, want >= 2 (misses %d)", hits, misses)
	}
	if pooled == 0 {
		t.Fatal("no staging buffer retained after release")
	}
}

func TestDispatchDoubles(t *testing.T) {
	dev, err := New(backend.Config{Kind: backend.KindGPU})
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	defer dev.Release()

	path := filepath.Join(t.TempDir(), "double.wgsl")
	if err := os.WriteFile(path, []byte(doubleShader), 0o644); err != nil {
		t.Fatal(err)
	}
	prog, err := dev.LoadBinary(path)
	if err != nil {
		t.Fatal(err)
	}
	defer prog.Release()

	k, err := prog.Kernel("main")
	if err != nil {
		t.Fatal(err)
	}
	defer k.Release()

	const n = 1000
	src := make([]byte, 0, n*4)
	for i := 0; i < n; i++ {
		src = binary.LittleEndian.AppendUint32(src, math.Float32bits(float32(i)))
	}

	in, err := dev.Allocate(int64(len(src)))
	if err != nil {
		t.Fatal(err)
	}
	defer in.Release()
	out, err := dev.Allocate(int64(len(src)))
	if err != nil {
		t.Fatal(err)
	}
	defer out.Release()

	if err := in.Write(0, src); err != nil {
		t.Fatal(err)
	}

	// Shader binding order: input, output, then the scalar uniform.
	if err := k.SetArg(0, backend.Int(n)); err != nil {
		t.Fatal(err)
	}
	if err := k.SetArg(1, backend.Buf(in)); err != nil {
		t.Fatal(err)
	}
	if err := k.SetArg(2, backend.Buf(out)); err != nil {
		t.Fatal(err)
	}
	if err := k.Enqueue(n, 256); err != nil {
		t.Fatal(err)
	}
	if err := dev.Synchronize(); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, len(src))
	if err := out.Read(0, got); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(got[i*4:])
		want := float32(2 * i)
		if math.Float32frombits(bits) != want {
			t.Fatalf("output[%d] = %g, want %g", i, math.Float32frombits(bits), want)
		}
	}
}
