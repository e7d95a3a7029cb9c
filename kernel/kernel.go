// Copyright 2025 The Kinetix Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package kernel provides the public API for executing generated
// chemical-kinetics kernels over batches of thermochemical conditions.
//
// A kernel is described by a Spec (its arrays and element width) and
// driven by a Runtime that owns the device-side state:
//   - Compile runs the injected build step once, if any
//   - Resize allocates device buffers for a problem size
//   - Invoke evaluates every condition, tiling the batch into chunks
//   - Finalize releases everything in reverse acquisition order
//
// Example:
//
//	dev, err := kernel.Open(kernel.DeviceConfig{Backend: "host"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rt, err := kernel.NewRuntime(dev, spec, kernel.Config{MaxPerRun: 1 << 16}, logger)
//	if err != nil {
//	    dev.Release()
//	    log.Fatal(err)
//	}
//	defer rt.Finalize()
//
//	if err := rt.Resize(ctx, numConditions, 0, false); err != nil {
//	    log.Fatal(err)
//	}
//	if err := rt.Invoke(hostArrays); err != nil {
//	    log.Fatal(err)
//	}
package kernel

import (
	"go.uber.org/zap"

	internalkernel "github.com/kinetix-hpc/kinetix/internal/kernel"
	"github.com/kinetix-hpc/kinetix/internal/layout"
)

// Spec describes one generated kernel: its name, entry point, element
// width and per-condition arrays.
type Spec = internalkernel.Spec

// Array is one named kernel array.
type Array = internalkernel.Array

// ArrayKind classifies how an array crosses the host/device boundary.
type ArrayKind = internalkernel.ArrayKind

// Array kinds.
const (
	KindIn      ArrayKind = internalkernel.KindIn
	KindOut     ArrayKind = internalkernel.KindOut
	KindScratch ArrayKind = internalkernel.KindScratch
)

// ParseArrayKind converts the manifest tag ("in", "out", "scratch").
func ParseArrayKind(s string) (ArrayKind, error) {
	return internalkernel.ParseArrayKind(s)
}

// Config carries the execution parameters a kernel was generated for.
type Config = internalkernel.Config

// Runtime drives one kernel on one device through the
// compile/resize/invoke/finalize lifecycle.
type Runtime = internalkernel.Runtime

// NewRuntime binds a kernel spec to an opened device. The runtime owns
// the device from here on; Finalize releases it. log may be nil.
func NewRuntime(dev Device, spec Spec, cfg Config, log *zap.Logger) (*Runtime, error) {
	return internalkernel.NewRuntime(dev, spec, cfg, log)
}

// Order is the storage ordering of batched per-condition arrays.
type Order = layout.Order

// Storage orderings.
const (
	// RowMajor stores all fields of one condition contiguously ("C").
	RowMajor Order = layout.RowMajor
	// ColMajor stores all conditions of one field contiguously ("F").
	ColMajor Order = layout.ColMajor
)

// ParseOrder converts the single-letter order tag ("C" or "F").
func ParseOrder(s string) (Order, error) {
	return layout.ParseOrder(s)
}
