//go:build !windows

// Package webgpu implements the GPU device on WebGPU. On platforms
// without wgpu_native support the package still registers itself so the
// backend name resolves, but opening a device always fails.
package webgpu

import (
	"runtime"

	"github.com/kinetix-hpc/kinetix/internal/backend"
)

func init() {
	backend.Register("webgpu", New)
}

// New always fails on this platform.
func New(cfg backend.Config) (backend.Device, error) {
	return nil, backend.Errorf(backend.DeviceNotFound, "webgpu.New",
		"webgpu backend is not available on %s/%s", runtime.GOOS, runtime.GOARCH)
}

// IsAvailable reports false on this platform.
func IsAvailable() bool { return false }
