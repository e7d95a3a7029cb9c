// Copyright 2025 The Kinetix Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package host provides the native execution backend: generated kernel
// routines compiled into the binary and run across a worker pool.
//
// The host device has no binary loading step. A generated package
// registers its routines from init and the runtime resolves them by
// entry name:
//
//	func init() {
//	    host.Register("species_rates", speciesRates)
//	}
//
//	func speciesRates(lo, hi int, args host.Args) {
//	    thisRun := args.Int(0)
//	    phi := args.Float64(1)
//	    for i := lo; i < hi; i++ {
//	        if i >= thisRun {
//	            continue
//	        }
//	        // ...
//	    }
//	}
//
// Routines must be pure per condition: disjoint ranges of the same
// argument set run concurrently.
package host

import (
	internalhost "github.com/kinetix-hpc/kinetix/internal/backend/host"
	"github.com/kinetix-hpc/kinetix/kernel"
)

// Func is a generated kernel routine evaluating conditions [lo, hi).
type Func = internalhost.Func

// Args is the positional argument set handed to a routine: args[0] is
// the chunk size, followed by one buffer per named array.
type Args = internalhost.Args

// New opens the host device. The configuration's work size caps the
// worker count; zero uses every available CPU.
func New(cfg kernel.DeviceConfig) (kernel.Device, error) {
	return internalhost.New(cfg)
}

// Register makes a kernel routine resolvable under name. Generated
// packages call this from init.
func Register(name string, fn Func) {
	internalhost.Register(name, fn)
}

// Registered lists the resolvable kernel names, sorted.
func Registered() []string {
	return internalhost.Registered()
}
