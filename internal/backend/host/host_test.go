package host

import (
	"encoding/binary"
	"math"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kinetix-hpc/kinetix/internal/backend"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewSelectsByHintAndKind(t *testing.T) {
	d, err := New(backend.Config{Kind: backend.KindCPU})
	require.NoError(t, err)
	assert.Equal(t, backend.KindCPU, d.Kind())
	assert.Equal(t, runtime.NumCPU(), d.Units())
	d.Release()

	d, err = New(backend.Config{Kind: backend.KindCPU, PlatformHint: "HOST"})
	require.NoError(t, err, "hint matching is case-insensitive")
	d.Release()

	_, err = New(backend.Config{Kind: backend.KindCPU, PlatformHint: "nvidia"})
	assert.True(t, backend.IsCode(err, backend.DeviceNotFound))

	_, err = New(backend.Config{Kind: backend.KindGPU})
	assert.True(t, backend.IsCode(err, backend.NoDevicesOfKind))
}

func TestNewRejectsTooManyUnits(t *testing.T) {
	_, err := New(backend.Config{Kind: backend.KindCPU, WorkSize: runtime.NumCPU() + 1})
	assert.True(t, backend.IsCode(err, backend.TooManyUnitsRequested))

	d, err := New(backend.Config{Kind: backend.KindCPU, WorkSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Workers(), "work size partitions the device")
	d.Release()
}

func TestBufferRoundTrip(t *testing.T) {
	d, err := New(backend.Config{Kind: backend.KindCPU})
	require.NoError(t, err)
	defer d.Release()

	buf, err := d.Allocate(32)
	require.NoError(t, err)
	defer buf.Release()

	in := []byte{9, 8, 7, 6}
	require.NoError(t, buf.Write(8, in))

	out := make([]byte, 4)
	require.NoError(t, buf.Read(8, out))
	assert.Equal(t, in, out)

	err = buf.Write(30, []byte{1, 2, 3})
	assert.True(t, backend.IsCode(err, backend.TransferFailure))
}

func TestBufferUseAfterRelease(t *testing.T) {
	d, err := New(backend.Config{Kind: backend.KindCPU})
	require.NoError(t, err)
	defer d.Release()

	buf, err := d.Allocate(8)
	require.NoError(t, err)
	buf.Release()

	assert.True(t, backend.IsCode(buf.Write(0, []byte{1}), backend.TransferFailure))
	assert.True(t, backend.IsCode(buf.Read(0, make([]byte, 1)), backend.TransferFailure))
}

func TestKernelResolution(t *testing.T) {
	Register("host-test-noop", func(lo, hi int, args Args) {})

	d, err := New(backend.Config{Kind: backend.KindCPU})
	require.NoError(t, err)
	defer d.Release()

	prog, err := d.LoadBinary("ignored.bin")
	require.NoError(t, err)
	defer prog.Release()

	k, err := prog.Kernel("host-test-noop")
	require.NoError(t, err)
	k.Release()

	_, err = prog.Kernel("host-test-missing")
	assert.True(t, backend.IsCode(err, backend.BuildFailure))
	assert.Contains(t, err.Error(), "host-test-missing")
}

func TestEnqueueCoversRangeExactlyOnce(t *testing.T) {
	const n = 1000
	hits := make([]int32, n)
	Register("host-test-count", func(lo, hi int, args Args) {
		if got := args.Int(0); got != n {
			t.Errorf("args[0] = %d, want chunk size %d", got, n)
		}
		for i := lo; i < hi; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})

	d, err := New(backend.Config{Kind: backend.KindCPU})
	require.NoError(t, err)
	defer d.Release()

	prog, err := d.LoadBinary("")
	require.NoError(t, err)
	k, err := prog.Kernel("host-test-count")
	require.NoError(t, err)
	defer k.Release()

	require.NoError(t, k.SetArg(0, backend.Int(n)))
	require.NoError(t, k.Enqueue(n, 4))
	require.NoError(t, d.Synchronize())

	for i, h := range hits {
		if h != 1 {
			t.Fatalf("condition %d evaluated %d times, want exactly once", i, h)
		}
	}
}

func TestEnqueueKernelSeesBufferData(t *testing.T) {
	Register("host-test-double", func(lo, hi int, args Args) {
		in := args.Float64(1)
		out := args.Float64(2)
		for i := lo; i < hi; i++ {
			out[i] = 2 * in[i]
		}
	})

	d, err := New(backend.Config{Kind: backend.KindCPU, WorkSize: 2})
	require.NoError(t, err)
	defer d.Release()

	in, err := d.Allocate(4 * 8)
	require.NoError(t, err)
	defer in.Release()
	out, err := d.Allocate(4 * 8)
	require.NoError(t, err)
	defer out.Release()

	src := []float64{1, 2, 3, 4}
	require.NoError(t, in.Write(0, floatBytes(src)))

	prog, err := d.LoadBinary("")
	require.NoError(t, err)
	k, err := prog.Kernel("host-test-double")
	require.NoError(t, err)
	defer k.Release()

	require.NoError(t, k.SetArg(0, backend.Int(4)))
	require.NoError(t, k.SetArg(1, backend.Buf(in)))
	require.NoError(t, k.SetArg(2, backend.Buf(out)))
	require.NoError(t, k.Enqueue(4, 0))

	got := make([]byte, 4*8)
	require.NoError(t, out.Read(0, got))
	want := []float64{2, 4, 6, 8}
	assert.Equal(t, floatBytes(want), got)
}

func TestEnqueueZeroIsNoop(t *testing.T) {
	var calls int32
	Register("host-test-nocall", func(lo, hi int, args Args) {
		atomic.AddInt32(&calls, 1)
	})

	d, err := New(backend.Config{Kind: backend.KindCPU})
	require.NoError(t, err)
	defer d.Release()

	prog, _ := d.LoadBinary("")
	k, err := prog.Kernel("host-test-nocall")
	require.NoError(t, err)
	defer k.Release()

	require.NoError(t, k.Enqueue(0, 0))
	assert.Zero(t, calls)
}

func floatBytes(xs []float64) []byte {
	buf := make([]byte, 0, len(xs)*8)
	for _, x := range xs {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
	}
	return buf
}
