//go:build windows

package webgpu

import (
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/kinetix-hpc/kinetix/internal/backend"
)

// gpuBuffer is a storage buffer on the device. Host access goes through
// staging buffers since storage buffers cannot be mapped directly.
type gpuBuffer struct {
	dev      *Device
	buf      *wgpu.Buffer
	size     int64
	released bool
}

var _ backend.Buffer = (*gpuBuffer)(nil)

// Allocate creates a device-local storage buffer of the given size.
func (d *Device) Allocate(size int64) (buf backend.Buffer, err error) {
	if size < 0 {
		return nil, backend.Errorf(backend.AllocationFailure, "webgpu.Allocate", "negative size %d", size)
	}
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = backend.Errorf(backend.AllocationFailure, "webgpu.Allocate", "%v", r)
		}
	}()

	// WebGPU rejects zero-sized buffers and binding offsets must be
	// 4-byte aligned, so round the physical allocation up.
	physical := uint64(size)
	if physical < 4 {
		physical = 4
	}
	physical = (physical + 3) &^ 3

	b := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  physical,
	})
	if b == nil {
		return nil, backend.Errorf(backend.AllocationFailure, "webgpu.Allocate", "out of device memory (%d bytes)", size)
	}
	return &gpuBuffer{dev: d, buf: b, size: size}, nil
}

// Size returns the logical size requested at allocation.
func (b *gpuBuffer) Size() int64 { return b.size }

// Write uploads p to the buffer at offset through a mapped staging buffer.
func (b *gpuBuffer) Write(offset int64, p []byte) (err error) {
	if err := b.check("webgpu.Write", offset, len(p)); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = backend.Errorf(backend.TransferFailure, "webgpu.Write", "%v", r)
		}
	}()

	size := alignUp(uint64(len(p)), 4)
	staging := b.dev.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	defer staging.Release()

	mapped := unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size)
	copy(mapped, p)
	staging.Unmap()

	encoder := b.dev.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, b.buf, uint64(offset), size)
	b.dev.queue.Submit(encoder.Finish(nil))
	return nil
}

// Read copies len(p) bytes from the buffer at offset into p. The call
// blocks until the device has finished all work writing the buffer.
func (b *gpuBuffer) Read(offset int64, p []byte) (err error) {
	if err := b.check("webgpu.Read", offset, len(p)); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = backend.Errorf(backend.TransferFailure, "webgpu.Read", "%v", r)
		}
	}()

	size := alignUp(uint64(len(p)), 4)
	staging := b.dev.staging.acquire(size)
	defer b.dev.staging.release(staging)

	encoder := b.dev.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(b.buf, uint64(offset), staging, 0, size)
	b.dev.queue.Submit(encoder.Finish(nil))

	if mapErr := staging.MapAsync(b.dev.device, wgpu.MapModeRead, 0, size); mapErr != nil {
		return backend.WrapError(backend.TransferFailure, "webgpu.Read", mapErr)
	}
	mapped := unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size)
	copy(p, mapped)
	staging.Unmap()
	return nil
}

// Release frees the device buffer. Safe to call more than once.
func (b *gpuBuffer) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

func (b *gpuBuffer) check(op string, offset int64, n int) error {
	if b.released {
		return backend.Errorf(backend.TransferFailure, op, "buffer released")
	}
	if offset < 0 || offset+int64(n) > b.size {
		return backend.Errorf(backend.TransferFailure, op,
			"range [%d, %d) outside buffer of %d bytes", offset, offset+int64(n), b.size)
	}
	// WebGPU buffer copies validate against 4-byte offsets.
	if offset%4 != 0 {
		return backend.Errorf(backend.TransferFailure, op, "offset %d not 4-byte aligned", offset)
	}
	return nil
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
