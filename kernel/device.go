// Copyright 2025 The Kinetix Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"github.com/kinetix-hpc/kinetix/internal/backend"
)

// Device is one opened execution target. Implementations register
// themselves; Open selects one by name.
type Device = backend.Device

// DeviceConfig selects and constrains the device to open.
type DeviceConfig = backend.Config

// DeviceKind is the class of device requested.
type DeviceKind = backend.Kind

// Device kinds.
const (
	KindCPU DeviceKind = backend.KindCPU
	KindGPU DeviceKind = backend.KindGPU
)

// Open selects and opens a device. Importing a backend package (for
// example backend/host or backend/webgpu) registers it.
func Open(cfg DeviceConfig) (Device, error) {
	return backend.Open(cfg)
}

// Backends lists the registered backend names, sorted.
func Backends() []string {
	return backend.Backends()
}

// Error is a classified device or runtime failure.
type Error = backend.Error

// Code classifies a failure.
type Code = backend.Code

// Failure codes.
const (
	DeviceNotFound        Code = backend.DeviceNotFound
	NoDevicesOfKind       Code = backend.NoDevicesOfKind
	TooManyUnitsRequested Code = backend.TooManyUnitsRequested
	BinaryNotFound        Code = backend.BinaryNotFound
	BinaryReadError       Code = backend.BinaryReadError
	BuildFailure          Code = backend.BuildFailure
	NotInitialized        Code = backend.NotInitialized
	AllocationFailure     Code = backend.AllocationFailure
	TransferFailure       Code = backend.TransferFailure
)

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	return backend.IsCode(err, code)
}

// CodeOf extracts the classification from an error chain, or 0.
func CodeOf(err error) Code {
	return backend.CodeOf(err)
}

// BuildLog extracts the verbatim build diagnostics from an error chain,
// or "" when the chain holds none.
func BuildLog(err error) string {
	return backend.BuildLog(err)
}
