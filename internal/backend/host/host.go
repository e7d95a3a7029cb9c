// Package host implements the native execution device: generated kernels
// compiled into this process as Go functions, run across a bounded worker
// pool instead of device compute units.
//
// The device is the degenerate backend variant: it is always "compiled",
// LoadBinary records the path without reading it (the process image is
// the binary), and Enqueue is a direct call into the registered routine.
package host

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/kinetix-hpc/kinetix/internal/backend"
)

func init() {
	backend.Register("host", func(cfg backend.Config) (backend.Device, error) {
		d, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}

// Device executes registered kernels on the local machine.
type Device struct {
	name     string
	units    int
	workers  int
	released bool
}

var _ backend.Device = (*Device)(nil)

// New opens the host device. The descriptor must contain cfg.PlatformHint
// (case-insensitive); cfg.WorkSize partitions the device to that many
// units and must not exceed the machine's logical CPU count.
func New(cfg backend.Config) (*Device, error) {
	if cfg.Kind != backend.KindCPU {
		return nil, backend.Errorf(backend.NoDevicesOfKind, "host.New",
			"host backend has no %s devices", cfg.Kind)
	}

	units := runtime.NumCPU()
	name := fmt.Sprintf("host %s/%s go", runtime.GOOS, runtime.GOARCH)
	if cfg.PlatformHint != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(cfg.PlatformHint)) {
		return nil, backend.Errorf(backend.DeviceNotFound, "host.New",
			"no device matching %q (have %q)", cfg.PlatformHint, name)
	}

	workers := cfg.WorkSize
	if workers > units {
		return nil, backend.Errorf(backend.TooManyUnitsRequested, "host.New",
			"requested %d units, have %d", workers, units)
	}
	if workers <= 0 {
		workers = units
	}

	return &Device{name: name, units: units, workers: workers}, nil
}

func (d *Device) Name() string       { return d.name }
func (d *Device) Kind() backend.Kind { return backend.KindCPU }
func (d *Device) Units() int         { return d.units }

// Workers reports the partitioned unit count this device runs with.
func (d *Device) Workers() int { return d.workers }

// Allocate returns a host-memory buffer.
func (d *Device) Allocate(size int64) (buf backend.Buffer, err error) {
	if d.released {
		return nil, backend.Errorf(backend.AllocationFailure, "host.Allocate", "device released")
	}
	if size < 0 {
		return nil, backend.Errorf(backend.AllocationFailure, "host.Allocate", "negative size %d", size)
	}
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = backend.Errorf(backend.AllocationFailure, "host.Allocate", "%d bytes: %v", size, r)
		}
	}()
	return &hostBuffer{data: make([]byte, size)}, nil
}

// LoadBinary returns the program backed by the in-process kernel registry.
// The path is recorded for diagnostics but never read: native kernels are
// linked into the binary that is already running.
func (d *Device) LoadBinary(path string) (backend.Program, error) {
	if d.released {
		return nil, backend.Errorf(backend.BinaryNotFound, "host.LoadBinary", "device released")
	}
	return &program{dev: d, path: path}, nil
}

// Synchronize is immediate: every enqueue completed before returning.
func (d *Device) Synchronize() error { return nil }

func (d *Device) Release() { d.released = true }

type hostBuffer struct {
	data     []byte
	released bool
}

func (b *hostBuffer) Size() int64 { return int64(len(b.data)) }

func (b *hostBuffer) Write(offset int64, p []byte) error {
	if b.released {
		return backend.Errorf(backend.TransferFailure, "host.Buffer.Write", "use after release")
	}
	if offset < 0 || offset+int64(len(p)) > int64(len(b.data)) {
		return backend.Errorf(backend.TransferFailure, "host.Buffer.Write",
			"range [%d, %d) outside buffer of %d bytes", offset, offset+int64(len(p)), len(b.data))
	}
	copy(b.data[offset:], p)
	return nil
}

func (b *hostBuffer) Read(offset int64, p []byte) error {
	if b.released {
		return backend.Errorf(backend.TransferFailure, "host.Buffer.Read", "use after release")
	}
	if offset < 0 || offset+int64(len(p)) > int64(len(b.data)) {
		return backend.Errorf(backend.TransferFailure, "host.Buffer.Read",
			"range [%d, %d) outside buffer of %d bytes", offset, offset+int64(len(p)), len(b.data))
	}
	copy(p, b.data[offset:])
	return nil
}

func (b *hostBuffer) Release() {
	b.released = true
	b.data = nil
}
