// Copyright 2025 The Kinetix Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package conditions reads and writes batches of thermochemical
// conditions.
//
// The on-disk format is record-major raw float64, little endian: one
// record per condition holding the fields of every input array in
// manifest order. Read splits records into per-array host slices laid
// out in the requested storage order; the order shapes the returned
// slices only, never the file.
//
// Example:
//
//	fields := []conditions.Field{
//	    {Name: "phi", PerCond: 4},
//	    {Name: "param", PerCond: 1},
//	}
//	n, err := conditions.Count("data.bin", fields)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	arrays, err := conditions.Read("data.bin", n, kernel.RowMajor, fields)
package conditions

import (
	internal "github.com/kinetix-hpc/kinetix/internal/conditions"
	"github.com/kinetix-hpc/kinetix/kernel"
)

// Field names one input array and its elements per condition.
type Field = internal.Field

// Count reports how many whole conditions a file holds.
func Count(path string, fields []Field) (int, error) {
	return internal.Count(path, fields)
}

// Read loads the first n conditions into one host slice per field.
func Read(path string, n int, order kernel.Order, fields []Field) ([][]float64, error) {
	return internal.Read(path, n, order, fields)
}

// Write stores n conditions from one host slice per field.
func Write(path string, n int, order kernel.Order, fields []Field, arrays [][]float64) error {
	return internal.Write(path, n, order, fields, arrays)
}

// Generate draws n deterministic synthetic conditions, uniform in
// [0, 1). The same seed places the same value at each (condition,
// field, element) regardless of order.
func Generate(n int, order kernel.Order, fields []Field, seed int64) [][]float64 {
	return internal.Generate(n, order, fields, seed)
}

// ReadArray loads a raw float64 array dump.
func ReadArray(path string) ([]float64, error) {
	return internal.ReadArray(path)
}

// WriteArray dumps a host array as raw float64, little endian.
func WriteArray(path string, data []float64) error {
	return internal.WriteArray(path, data)
}

// Bytes views a float64 slice as raw bytes without copying.
func Bytes(data []float64) []byte {
	return internal.Bytes(data)
}

// Floats views raw bytes as a float64 slice without copying.
func Floats(data []byte) []float64 {
	return internal.Floats(data)
}

// Float32Bytes narrows a float64 array to the f32 bytes a 4-byte kernel
// consumes.
func Float32Bytes(data []float64) []byte {
	return internal.Float32Bytes(data)
}

// Float32Values widens f32 bytes back to a float64 array.
func Float32Values(data []byte) []float64 {
	return internal.Float32Values(data)
}
