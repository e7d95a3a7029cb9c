// Copyright 2025 The Kinetix Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU offload backend. Kernel binaries
// are WGSL compute shaders; buffers live in GPU storage memory and the
// runtime moves chunks through staging copies.
//
// The native implementation is available where a WebGPU runtime library
// can be loaded. On other platforms the backend stays registered and New
// reports a device-not-found failure, so selection logic needs no build
// tags:
//
//	if !webgpu.IsAvailable() {
//	    log.Println("falling back to host execution")
//	}
//
//	dev, err := webgpu.New(kernel.DeviceConfig{
//	    Backend: "webgpu",
//	    Kind:    kernel.KindGPU,
//	})
package webgpu

import (
	internalwebgpu "github.com/kinetix-hpc/kinetix/internal/backend/webgpu"
	"github.com/kinetix-hpc/kinetix/kernel"
)

// New opens a WebGPU adapter as an execution device. Only GPU-kind
// requests are served; the platform hint is matched against the adapter
// descriptor.
func New(cfg kernel.DeviceConfig) (kernel.Device, error) {
	return internalwebgpu.New(cfg)
}

// IsAvailable reports whether a WebGPU adapter can be acquired.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
