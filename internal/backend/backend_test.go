package backend

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildErrorCarriesLogVerbatim(t *testing.T) {
	log := "3:14: error: unknown identifier 'phj'\nnote: did you mean 'phi'?"
	err := BuildError("LoadBinary", log, nil)

	assert.Equal(t, log, BuildLog(err), "build log must survive unmodified")
	assert.Contains(t, err.Error(), log)
	assert.True(t, IsCode(err, BuildFailure))
}

func TestCodeOfUnwrapsChains(t *testing.T) {
	base := Errorf(TooManyUnitsRequested, "New", "requested 64 units, have 8")
	wrapped := fmt.Errorf("opening device: %w", base)

	assert.Equal(t, TooManyUnitsRequested, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, TooManyUnitsRequested))
	assert.False(t, IsCode(wrapped, DeviceNotFound))
	assert.Equal(t, Code(0), CodeOf(errors.New("plain")))
}

func TestWrapErrorKeepsCause(t *testing.T) {
	cause := errors.New("short read")
	err := WrapError(BinaryReadError, "LoadBinary", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "short read")
	assert.Contains(t, err.Error(), BinaryReadError.String())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("gpu")
	require.NoError(t, err)
	assert.Equal(t, KindGPU, k)

	k, err = ParseKind("CPU")
	require.NoError(t, err)
	assert.Equal(t, KindCPU, k)

	_, err = ParseKind("tpu")
	assert.True(t, IsCode(err, NoDevicesOfKind))
}

func TestValueKinds(t *testing.T) {
	v := Int(42)
	assert.True(t, v.IsScalar())
	assert.False(t, v.IsBuffer())
	assert.Equal(t, 42, v.Int())
	assert.Equal(t, 42.0, v.Float())

	f := Float(2.5)
	assert.Equal(t, 2.5, f.Float())
	assert.Equal(t, 2, f.Int())

	buf := &MockBuffer{data: make([]byte, 8)}
	b := Buf(buf)
	assert.True(t, b.IsBuffer())
	assert.Same(t, Buffer(buf), b.Buffer())
}

func TestRegistryOpen(t *testing.T) {
	dev := NewMockDevice(4)
	Register("backend-test-mock", func(cfg Config) (Device, error) {
		return dev, nil
	})

	got, err := Open(Config{Backend: "backend-test-mock"})
	require.NoError(t, err)
	assert.Same(t, Device(dev), got)
	assert.Contains(t, Backends(), "backend-test-mock")

	_, err = Open(Config{Backend: "no-such-backend"})
	assert.True(t, IsCode(err, DeviceNotFound))
}

func TestMockDeviceRecordsOrderedEvents(t *testing.T) {
	dev := NewMockDevice(2)

	buf, err := dev.Allocate(16)
	require.NoError(t, err)
	require.NoError(t, buf.Write(0, []byte{1, 2, 3, 4}))

	prog, err := dev.LoadBinary("k.bin")
	require.NoError(t, err)
	kern, err := prog.Kernel("main")
	require.NoError(t, err)

	require.NoError(t, kern.SetArg(0, Int(4)))
	require.NoError(t, kern.SetArg(1, Buf(buf)))
	require.NoError(t, kern.Enqueue(4, 2))
	require.NoError(t, dev.Synchronize())

	kern.Release()
	prog.Release()
	buf.Release()
	dev.Release()

	assert.Equal(t, []string{
		"alloc buf0 16",
		"write buf0 4",
		"load k.bin",
		"kernel main",
		"enqueue 4 2",
		"sync",
		"release kernel",
		"release program",
		"release buffer buf0",
		"release device",
	}, dev.Events)

	mk := kern.(*MockKernel)
	require.Len(t, mk.Launches, 1)
	assert.Equal(t, 4, mk.Launches[0].Scalars[0])
}

func TestMockBufferGuardsMisuse(t *testing.T) {
	dev := NewMockDevice(1)
	buf, err := dev.Allocate(8)
	require.NoError(t, err)

	err = buf.Write(4, make([]byte, 8))
	assert.True(t, IsCode(err, TransferFailure), "overrun must be a transfer failure")

	buf.Release()
	err = buf.Read(0, make([]byte, 4))
	assert.True(t, IsCode(err, TransferFailure), "use after release must fail")
}
