//go:build windows

// Package webgpu implements the GPU device on WebGPU using go-webgpu
// (github.com/go-webgpu/webgpu), a zero-CGO binding over wgpu_native.
//
// Kernel binaries are WGSL shader files. Buffer arguments bind in
// positional order at @group(0), and scalar arguments are packed as
// 32-bit words into a single uniform bound after the last buffer.
package webgpu

import (
	"fmt"
	"strings"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/kinetix-hpc/kinetix/internal/backend"
)

// workgroupSize is the dispatch granularity assumed when the caller does
// not pass an explicit local size. Shaders compiled with a different
// @workgroup_size must be enqueued with their own local size.
const workgroupSize = 256

func init() {
	backend.Register("webgpu", New)
}

// Device is a WebGPU adapter opened for compute work.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	info     wgpu.AdapterInfo
	staging  *stagingPool
	released bool
}

var _ backend.Device = (*Device)(nil)

// New opens the default WebGPU adapter. The platform hint, when set, is
// matched case-insensitively against the adapter and vendor names so a
// host with several drivers can pin one.
func New(cfg backend.Config) (dev backend.Device, err error) {
	if cfg.Kind != backend.KindGPU {
		return nil, backend.Errorf(backend.NoDevicesOfKind, "webgpu.New",
			"webgpu exposes gpu devices only, asked for %s", cfg.Kind)
	}

	// wgpu_native is loaded lazily; a missing library surfaces as a panic
	// on the first call into the binding.
	defer func() {
		if r := recover(); r != nil {
			dev = nil
			err = backend.Errorf(backend.DeviceNotFound, "webgpu.New",
				"native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)

	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, backend.WrapError(backend.DeviceNotFound, "webgpu.New", adapterErr)
	}

	info := adapter.GetInfo()
	if hint := strings.TrimSpace(cfg.PlatformHint); hint != "" {
		name := strings.ToLower(info.Name + " " + info.VendorName)
		if !strings.Contains(name, strings.ToLower(hint)) {
			adapter.Release()
			instance.Release()
			return nil, backend.Errorf(backend.DeviceNotFound, "webgpu.New",
				"no adapter matching %q, have %q", hint, strings.TrimSpace(info.Name+" "+info.VendorName))
		}
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, backend.WrapError(backend.DeviceNotFound, "webgpu.New", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, backend.Errorf(backend.DeviceNotFound, "webgpu.New", "device has no queue")
	}

	return &Device{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		info:     info,
		staging:  newStagingPool(device),
	}, nil
}

// IsAvailable reports whether a WebGPU adapter can be acquired on this
// system without opening a full device.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Name returns the adapter description as reported by the driver.
func (d *Device) Name() string {
	name := strings.TrimSpace(d.info.Name + " " + d.info.VendorName)
	if name == "" {
		return "webgpu adapter"
	}
	return name
}

// Kind reports KindGPU.
func (d *Device) Kind() backend.Kind { return backend.KindGPU }

// Units returns 0. WebGPU does not expose a compute unit count, and no
// work size limit is enforced on GPU devices.
func (d *Device) Units() int { return 0 }

// Synchronize blocks until all previously submitted work has completed.
// WebGPU has no explicit fence API in this binding, so a 4-byte readback
// through the queue serves as the completion point.
func (d *Device) Synchronize() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = backend.Errorf(backend.TransferFailure, "webgpu.Synchronize", "%v", r)
		}
	}()

	fence := d.staging.acquire(4)
	defer d.staging.release(fence)

	src := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             4,
		MappedAtCreation: wgpu.True,
	})
	defer src.Release()
	src.Unmap()

	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, fence, 0, 4)
	d.queue.Submit(encoder.Finish(nil))

	// MapAsync waits for the queue to drain before the mapping resolves.
	if mapErr := fence.MapAsync(d.device, wgpu.MapModeRead, 0, 4); mapErr != nil {
		return backend.WrapError(backend.TransferFailure, "webgpu.Synchronize", mapErr)
	}
	fence.Unmap()
	return nil
}

// Release frees the staging pool, queue, device, adapter and instance.
// Safe to call more than once.
func (d *Device) Release() {
	if d.released {
		return
	}
	d.released = true

	if d.staging != nil {
		d.staging.clear()
		d.staging = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

func (d *Device) String() string {
	return fmt.Sprintf("webgpu(%s)", d.Name())
}
